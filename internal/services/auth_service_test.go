package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingle-app/mingle-backend/internal/config"
	"github.com/mingle-app/mingle-backend/internal/dto"
	"github.com/mingle-app/mingle-backend/internal/models"
	"github.com/mingle-app/mingle-backend/internal/repository"
	"github.com/mingle-app/mingle-backend/internal/security"
)

// fakeAuthRepository is an in-memory AuthRepository with the same atomicity
// semantics as the Postgres implementation (conditional mark-used update).
type fakeAuthRepository struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	accessTokens  map[string]*models.AccessToken
	refreshTokens map[string]*models.RefreshToken

	failNext error
}

func newFakeAuthRepository() *fakeAuthRepository {
	return &fakeAuthRepository{
		users:         make(map[uuid.UUID]*models.User),
		accessTokens:  make(map[string]*models.AccessToken),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (f *fakeAuthRepository) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeAuthRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAuthRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeAuthRepository) CreateUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return nil
}

func (f *fakeAuthRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt, ok := f.refreshTokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *rt
	return &copied, nil
}

func (f *fakeAuthRepository) DeleteRefreshToken(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, rt := range f.refreshTokens {
		if rt.ID == id {
			delete(f.refreshTokens, token)
		}
	}
	return nil
}

func (f *fakeAuthRepository) CreateSession(ctx context.Context, access *models.AccessToken, refresh *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	f.refreshTokens[refresh.Token] = refresh
	f.accessTokens[access.Token] = access
	return nil
}

func (f *fakeAuthRepository) RotateSession(ctx context.Context, oldRefreshID uuid.UUID, access *models.AccessToken, refresh *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rt := range f.refreshTokens {
		if rt.ID == oldRefreshID {
			if rt.Used || rt.Revoked {
				return repository.ErrTokenAlreadyUsed
			}
			rt.Used = true
			f.refreshTokens[refresh.Token] = refresh
			f.accessTokens[access.Token] = access
			return nil
		}
	}
	return repository.ErrTokenAlreadyUsed
}

func (f *fakeAuthRepository) RevokeSession(ctx context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rt, ok := f.refreshTokens[refreshToken]; ok {
		rt.Revoked = true
	}
	for _, at := range f.accessTokens {
		if at.RefreshToken == refreshToken {
			at.Revoked = true
		}
	}
	return nil
}

func (f *fakeAuthRepository) DeleteExpiredAccessTokens(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return 0, err
	}
	var deleted int64
	now := time.Now()
	for token, at := range f.accessTokens {
		if at.ExpiresAt.Before(now) {
			delete(f.accessTokens, token)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeAuthRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	now := time.Now()
	for token, rt := range f.refreshTokens {
		if rt.ExpiresAt.Before(now) {
			delete(f.refreshTokens, token)
			deleted++
		}
	}
	return deleted, nil
}

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		DBPassword:         "test",
		JWTSecret:          "0123456789abcdef0123456789abcdef",
		JWTIssuer:          "mingle-backend",
		JWTAudience:        "mingle-app",
		AccessTokenMinutes: 15,
		RefreshTokenDays:   7,
	}
}

func newTestService(t *testing.T) (*AuthService, *fakeAuthRepository) {
	t.Helper()
	issuer, err := security.NewTokenIssuer(testConfig())
	require.NoError(t, err)
	repo := newFakeAuthRepository()
	return NewAuthService(repo, issuer), repo
}

func seedUser(t *testing.T, repo *fakeAuthRepository, email, password string) *models.User {
	t.Helper()
	hash, salt, err := security.CreatePasswordHash(password)
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     "alice",
		PasswordHash: hash,
		PasswordSalt: salt,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// --- login ---

func TestLogin_Success(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, resp.AccessTokenExpiresAt.After(time.Now()))
	assert.True(t, resp.RefreshTokenExpiresAt.After(resp.AccessTokenExpiresAt))

	// Both halves were persisted.
	assert.Len(t, repo.refreshTokens, 1)
	assert.Len(t, repo.accessTokens, 1)
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	_, errUnknown := svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@x.com", Password: "Secret123!"})
	_, errWrongPw := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "wrong"})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.ErrorIs(t, errUnknown, ErrAuthFailed)
	assert.ErrorIs(t, errWrongPw, ErrAuthFailed)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestLogin_InfrastructureErrorIsNotAuthFailed(t *testing.T) {
	svc, repo := newTestService(t)
	repo.failNext = errors.New("connection reset")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "pw"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthFailed)
}

// --- register ---

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "a@x.com", Username: "bob", Password: "Another123!",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_OpensSession(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "b@x.com", Username: "bob", Password: "Another123!",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	// The stored credentials verify.
	loginResp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "b@x.com", Password: "Another123!"})
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, loginResp.RefreshToken)
}

// --- refresh ---

func TestRefreshSession_RotatesPair(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshSession(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The consumed token is retained, marked used.
	old := repo.refreshTokens[login.RefreshToken]
	require.NotNil(t, old)
	assert.True(t, old.Used)
}

func TestRefreshSession_SingleUse(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	_, err = svc.RefreshSession(context.Background(), login.RefreshToken)
	require.NoError(t, err)

	_, err = svc.RefreshSession(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestRefreshSession_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RefreshSession(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshSession_ExpiryWinsOverReuse(t *testing.T) {
	svc, repo := newTestService(t)
	user := seedUser(t, repo, "a@x.com", "Secret123!")

	expired := &models.RefreshToken{
		ID:        uuid.New(),
		Token:     "expired-token",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
		Used:      false,
	}
	repo.refreshTokens[expired.Token] = expired

	_, err := svc.RefreshSession(context.Background(), expired.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenReused)

	// Deleted as a side effect.
	_, ok := repo.refreshTokens[expired.Token]
	assert.False(t, ok)
}

func TestRefreshSession_RevokedToken(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))

	_, err = svc.RefreshSession(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)
}

func TestRefreshSession_ConcurrentRedemptions_ExactlyOneWins(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	const attempts = 10
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.RefreshSession(context.Background(), login.RefreshToken)
		}(i)
	}
	wg.Wait()

	var successes int
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrTokenReused)
		}
	}
	assert.Equal(t, 1, successes)
}

// --- logout ---

func TestLogout_Idempotent(t *testing.T) {
	svc, repo := newTestService(t)
	seedUser(t, repo, "a@x.com", "Secret123!")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), "never-issued"))

	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)
}

// --- full scenario ---

func TestSessionLifecycle_EndToEnd(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Email: "a@x.com", Username: "alice", Password: "Secret123!",
	})
	require.NoError(t, err)

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "a@x.com", Password: "Secret123!"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshSession(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.RefreshSession(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenReused)

	// The rotated token still works.
	_, err = svc.RefreshSession(context.Background(), refreshed.RefreshToken)
	require.NoError(t, err)
}
