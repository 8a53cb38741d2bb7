package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mingle-app/mingle-backend/internal/models"
)

// GormAuthRepository implements AuthRepository on PostgreSQL via GORM.
// Soft-deleted users are excluded by GORM's DeletedAt filter; token rows carry
// no DeletedAt and are always hard-deleted.
type GormAuthRepository struct {
	db *gorm.DB
}

func NewGormAuthRepository(db *gorm.DB) *GormAuthRepository {
	return &GormAuthRepository{db: db}
}

func (r *GormAuthRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &user, nil
}

func (r *GormAuthRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &user, nil
}

func (r *GormAuthRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *GormAuthRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var stored models.RefreshToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return &stored, nil
}

func (r *GormAuthRepository) DeleteRefreshToken(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.RefreshToken{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

func (r *GormAuthRepository) CreateSession(ctx context.Context, access *models.AccessToken, refresh *models.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(refresh).Error; err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
		if err := tx.Create(access).Error; err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		return nil
	})
}

func (r *GormAuthRepository) RotateSession(ctx context.Context, oldRefreshID uuid.UUID, access *models.AccessToken, refresh *models.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update: of two concurrent redemptions of the same
		// token, exactly one sees RowsAffected == 1.
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND used = false AND revoked = false", oldRefreshID).
			Update("used", true)
		if res.Error != nil {
			return fmt.Errorf("failed to mark refresh token used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrTokenAlreadyUsed
		}

		if err := tx.Create(refresh).Error; err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
		if err := tx.Create(access).Error; err != nil {
			return fmt.Errorf("failed to store access token: %w", err)
		}
		return nil
	})
}

func (r *GormAuthRepository) RevokeSession(ctx context.Context, refreshToken string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RefreshToken{}).
			Where("token = ?", refreshToken).
			Update("revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke refresh token: %w", err)
		}
		if err := tx.Model(&models.AccessToken{}).
			Where("refresh_token = ?", refreshToken).
			Update("revoked", true).Error; err != nil {
			return fmt.Errorf("failed to revoke access token: %w", err)
		}
		return nil
	})
}

func (r *GormAuthRepository) DeleteExpiredAccessTokens(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.AccessToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired access tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormAuthRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
