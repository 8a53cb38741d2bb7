package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mingle-app/mingle-backend/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrTokenAlreadyUsed is returned when the conditional mark-used update
	// affects zero rows, i.e. a concurrent redemption won the race.
	ErrTokenAlreadyUsed = errors.New("refresh token already used")
)

// AuthRepository is the persistence boundary of the auth core. Every mutating
// operation commits atomically: a session transition is either fully applied
// or not observable at all.
type AuthRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error

	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, id uuid.UUID) error

	// CreateSession persists a freshly issued access/refresh pair.
	CreateSession(ctx context.Context, access *models.AccessToken, refresh *models.RefreshToken) error

	// RotateSession marks the old refresh token used and persists the new
	// pair in one transaction. The mark-used step is a conditional update;
	// ErrTokenAlreadyUsed is returned when it affects no row.
	RotateSession(ctx context.Context, oldRefreshID uuid.UUID, access *models.AccessToken, refresh *models.RefreshToken) error

	// RevokeSession revokes the access/refresh pair identified by the
	// refresh-token string. Revoking an unknown or already-revoked token is
	// a no-op success.
	RevokeSession(ctx context.Context, refreshToken string) error

	DeleteExpiredAccessTokens(ctx context.Context) (int64, error)
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
}
