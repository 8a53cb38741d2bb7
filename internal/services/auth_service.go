package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mingle-app/mingle-backend/internal/dto"
	"github.com/mingle-app/mingle-backend/internal/locks"
	"github.com/mingle-app/mingle-backend/internal/models"
	"github.com/mingle-app/mingle-backend/internal/repository"
	"github.com/mingle-app/mingle-backend/internal/security"
)

// Outward-facing errors. Login failures are deliberately indistinguishable
// (same sentinel for unknown email, deleted user and wrong password) so the
// endpoint cannot be used to enumerate accounts. Refresh failures stay
// distinct: "expired" means log in again, "no longer valid" means the token
// was already redeemed and may have been stolen.
var (
	ErrAuthFailed   = errors.New("Auth failed")
	ErrInvalidToken = errors.New("Invalid token")
	ErrTokenExpired = errors.New("Token expired")
	ErrTokenReused  = errors.New("Refresh token is no longer valid")
	ErrEmailTaken   = errors.New("email already registered")
)

// AuthService orchestrates the session lifecycle:
// Anonymous -> Authenticated -> Rotated -> Revoked/Expired.
type AuthService struct {
	repo   repository.AuthRepository
	issuer *security.TokenIssuer
	locks  *locks.KeyedMutex
}

func NewAuthService(repo repository.AuthRepository, issuer *security.TokenIssuer) *AuthService {
	return &AuthService{
		repo:   repo,
		issuer: issuer,
		locks:  locks.NewKeyedMutex(),
	}
}

// Register creates a user and opens their first session.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenPairResponse, error) {
	if _, err := s.repo.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, salt, err := security.CreatePasswordHash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSession(ctx, pair.access, pair.refresh); err != nil {
		return nil, err
	}
	return pair.response(), nil
}

// Login verifies credentials and opens a session. Every failure path returns
// ErrAuthFailed.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenPairResponse, error) {
	user, err := s.repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAuthFailed
		}
		return nil, err
	}

	if !security.VerifyPassword(req.Password, user.PasswordHash, user.PasswordSalt) {
		return nil, ErrAuthFailed
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSession(ctx, pair.access, pair.refresh); err != nil {
		return nil, err
	}
	return pair.response(), nil
}

// RefreshSession redeems a refresh token for a new access/refresh pair.
// A token is redeemable exactly once: the consumed token is marked used and
// retained, and any later presentation fails with ErrTokenReused. Redemptions
// of the same token string are serialized through the keyed mutex; the
// repository's conditional update is the backstop for anything that slips
// past it (e.g. another process).
func (s *AuthService) RefreshSession(ctx context.Context, token string) (*dto.TokenPairResponse, error) {
	unlock := s.locks.Lock(token)
	defer unlock()

	stored, err := s.repo.FindRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	// Expiry wins over reuse: an expired token is removed and reported as
	// expired even if it was never redeemed.
	if time.Now().After(stored.ExpiresAt) {
		if err := s.repo.DeleteRefreshToken(ctx, stored.ID); err != nil {
			slog.Error("failed to delete expired refresh token", "error", err, "token_id", stored.ID)
		}
		return nil, ErrTokenExpired
	}

	if stored.Used || stored.Revoked {
		slog.Warn("refresh token reuse detected", "user_id", stored.UserID, "token_id", stored.ID)
		return nil, ErrTokenReused
	}

	user, err := s.repo.FindUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load token owner: %w", err)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RotateSession(ctx, stored.ID, pair.access, pair.refresh); err != nil {
		if errors.Is(err, repository.ErrTokenAlreadyUsed) {
			return nil, ErrTokenReused
		}
		return nil, err
	}
	return pair.response(), nil
}

// Logout revokes the access/refresh pair identified by the refresh token.
// Revoking an unknown or already-revoked token is a no-op success.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeSession(ctx, refreshToken)
}

// tokenPair bundles a freshly issued session before it is persisted.
type tokenPair struct {
	access      *models.AccessToken
	accessToken string
	refresh     *models.RefreshToken
}

func (s *AuthService) issuePair(user *models.User) (*tokenPair, error) {
	accessToken, accessExpiresAt, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefreshToken(user)
	if err != nil {
		return nil, err
	}

	access := &models.AccessToken{
		ID:           uuid.New(),
		Token:        accessToken,
		UserID:       user.ID,
		RefreshToken: refresh.Token,
		ExpiresAt:    accessExpiresAt,
	}
	return &tokenPair{access: access, accessToken: accessToken, refresh: refresh}, nil
}

func (p *tokenPair) response() *dto.TokenPairResponse {
	return &dto.TokenPairResponse{
		AccessToken:           p.accessToken,
		AccessTokenExpiresAt:  p.access.ExpiresAt,
		RefreshToken:          p.refresh.Token,
		RefreshTokenExpiresAt: p.refresh.ExpiresAt,
	}
}
