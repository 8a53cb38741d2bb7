package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken records an issued bearer credential so sessions can be revoked
// server-side. RefreshToken carries the opaque token string of the pair it was
// issued with (denormalized, avoids a join on logout).
type AccessToken struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Token        string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshToken string    `gorm:"size:128;index" json:"-"`
	ExpiresAt    time.Time `gorm:"not null;index" json:"expires_at"`
	Revoked      bool      `gorm:"default:false" json:"revoked"`
	CreatedAt    time.Time `json:"created_at"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
}
