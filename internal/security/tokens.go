package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mingle-app/mingle-backend/internal/config"
	"github.com/mingle-app/mingle-backend/internal/models"
)

const (
	// refreshTokenBytes is the entropy of an opaque refresh token before encoding.
	refreshTokenBytes = 64
	// minSigningKeyBytes is the smallest acceptable HS256 secret (256 bits).
	minSigningKeyBytes = 32
)

// TokenIssuer mints the two halves of a session: short-lived HS256 access
// tokens that are verifiable without a database round-trip, and long-lived
// opaque refresh tokens that only mean something to the server-side store.
type TokenIssuer struct {
	cfg *config.Config
}

// NewTokenIssuer validates the signing secret before any token can be issued.
// A secret under 256 bits is a configuration error, never truncated or padded.
func NewTokenIssuer(cfg *config.Config) (*TokenIssuer, error) {
	if len(cfg.JWTSecret) < minSigningKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", minSigningKeyBytes, len(cfg.JWTSecret))
	}
	return &TokenIssuer{cfg: cfg}, nil
}

// IssueAccessToken builds and signs a JWT for the user. Expiry is
// now + ACCESS_TOKEN_MINUTES.
func (i *TokenIssuer) IssueAccessToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.cfg.AccessTokenTTL())

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.Username,
		"role": user.RoleName(),
		"jti":  uuid.New().String(),
		"iss":  i.cfg.JWTIssuer,
		"aud":  i.cfg.JWTAudience,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// IssueRefreshToken generates an opaque, URL-safe refresh token bound to the
// user, expiring after REFRESH_TOKEN_DAYS.
func (i *TokenIssuer) IssueRefreshToken(user *models.User) (*models.RefreshToken, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.RefreshToken{
		ID:        uuid.New(),
		Token:     base64.RawURLEncoding.EncodeToString(raw),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(i.cfg.RefreshTokenTTL()),
	}, nil
}
