package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the opaque, server-tracked half of a session. A token is
// redeemable exactly once: after rotation it stays in the table with Used set,
// preserving the audit trail of the chain. Expired tokens are hard-deleted,
// either lazily on presentation or by the cleanup sweep.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Token     string    `gorm:"uniqueIndex;not null;size:128" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
