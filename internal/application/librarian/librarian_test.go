package librarian

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xiebiao/library/internal/domain/librarian"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	apperrors "github.com/xiebiao/library/pkg/errors"
	"github.com/xiebiao/library/pkg/jwt"
)

// brokenSessionStore Redis不可用
type brokenSessionStore struct{}

func (brokenSessionStore) SaveSession(context.Context, uint, map[string]interface{}, time.Duration) error {
	return apperrors.ErrRedisError
}

func (brokenSessionStore) DeleteSession(context.Context, uint) error {
	return apperrors.ErrRedisError
}

func (brokenSessionStore) AddToBlacklist(context.Context, string, time.Duration) error {
	return apperrors.ErrRedisError
}

func newService(t *testing.T) librarian.Service {
	t.Helper()
	db, err := mysql.NewInMemoryDB()
	require.NoError(t, err)
	return librarian.NewServiceWithCost(mysql.NewLibrarianRepository(db), bcrypt.MinCost)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	sessions := redis.NewMemorySessionStore()
	manager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)

	info, err := NewRegisterUseCase(svc).Execute(ctx, RegisterRequest{
		Email:    "Alice@Library.org",
		Password: "shelves2024",
		Name:     "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@library.org", info.Email)

	_, err = NewRegisterUseCase(svc).Execute(ctx, RegisterRequest{Email: "alice@library.org", Password: "shelves2024", Name: "Alice"})
	assert.ErrorIs(t, err, librarian.ErrEmailDuplicate)

	resp, err := NewLoginUseCase(svc, manager, sessions).Execute(ctx, LoginRequest{
		Email:    "alice@library.org",
		Password: "shelves2024",
		ClientIP: "10.0.0.8",
	})
	require.NoError(t, err)
	assert.Equal(t, info.ID, resp.Librarian.ID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, info.ID, claims.LibrarianID)

	session, err := sessions.GetSession(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.8", session["ip"])

	t.Run("密码错误", func(t *testing.T) {
		_, err := NewLoginUseCase(svc, manager, sessions).Execute(ctx, LoginRequest{Email: "alice@library.org", Password: "wrong1234"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidPassword)
	})

	t.Run("会话存储不可用仍可登录", func(t *testing.T) {
		resp, err := NewLoginUseCase(svc, manager, brokenSessionStore{}).Execute(ctx, LoginRequest{Email: "alice@library.org", Password: "shelves2024"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	sessions := redis.NewMemorySessionStore()
	manager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)

	_, err := NewRegisterUseCase(svc).Execute(ctx, RegisterRequest{Email: "bob@library.org", Password: "catalog99", Name: "Bob"})
	require.NoError(t, err)
	resp, err := NewLoginUseCase(svc, manager, sessions).Execute(ctx, LoginRequest{Email: "bob@library.org", Password: "catalog99"})
	require.NoError(t, err)

	claims, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	require.NoError(t, NewLogoutUseCase(manager, sessions).Execute(ctx, claims, resp.AccessToken))

	revoked, err := sessions.IsInBlacklist(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = sessions.GetSession(ctx, claims.LibrarianID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	err = NewLogoutUseCase(manager, brokenSessionStore{}).Execute(ctx, claims, resp.AccessToken)
	assert.True(t, errors.Is(err, apperrors.ErrRedisError))
}

func TestRefresh(t *testing.T) {
	manager := jwt.NewManager("test-secret", time.Hour, 24*time.Hour)
	pair, err := manager.GenerateToken(7, "carol@library.org", "Carol")
	require.NoError(t, err)

	resp, err := NewRefreshUseCase(manager).Execute(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := manager.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.LibrarianID)

	_, err = NewRefreshUseCase(manager).Execute("garbage")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}
