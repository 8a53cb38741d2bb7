package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record the auth core operates on. Credentials are
// stored as an HMAC-SHA512 hash/salt pair, never as a reversible value.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email        string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Username     string         `gorm:"not null;size:100;uniqueIndex" json:"username"`
	PasswordHash []byte         `gorm:"not null" json:"-"`
	PasswordSalt []byte         `gorm:"not null" json:"-"`
	Role         string         `gorm:"size:20;default:'User'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// RoleName returns the user's role, defaulting to "User" when unset.
func (u *User) RoleName() string {
	if u.Role == "" {
		return "User"
	}
	return u.Role
}
