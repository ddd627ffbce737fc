package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// sessionStore 两种实现共用的方法集
type sessionStore interface {
	SaveSession(ctx context.Context, librarianID uint, data map[string]interface{}, ttl time.Duration) error
	GetSession(ctx context.Context, librarianID uint) (map[string]string, error)
	DeleteSession(ctx context.Context, librarianID uint) error
	AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

var (
	_ sessionStore = (*SessionStore)(nil)
	_ sessionStore = (*MemorySessionStore)(nil)
)

func exerciseStore(t *testing.T, store sessionStore, librarianID uint, token string) {
	ctx := context.Background()

	_, err := store.GetSession(ctx, librarianID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, store.SaveSession(ctx, librarianID, map[string]interface{}{
		"email": "desk@library.org",
		"login": 1700000000,
	}, time.Minute))

	session, err := store.GetSession(ctx, librarianID)
	require.NoError(t, err)
	assert.Equal(t, "desk@library.org", session["email"])
	assert.Equal(t, "1700000000", session["login"])

	require.NoError(t, store.DeleteSession(ctx, librarianID))
	_, err = store.GetSession(ctx, librarianID)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	listed, err := store.IsInBlacklist(ctx, token)
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, store.AddToBlacklist(ctx, token, time.Minute))
	listed, err = store.IsInBlacklist(ctx, token)
	require.NoError(t, err)
	assert.True(t, listed)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseStore(t, NewMemorySessionStore(), 1, "token-a")
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.AddToBlacklist(ctx, "token-b", time.Minute))
	require.NoError(t, store.SaveSession(ctx, 2, map[string]interface{}{"k": "v"}, time.Minute))

	now = now.Add(2 * time.Minute)

	listed, err := store.IsInBlacklist(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, listed, "黑名单过期")

	_, err = store.GetSession(ctx, 2)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized, "会话过期")
}

// TestSessionStore_Redis 需要本地Redis, 不可用时跳过
func TestSessionStore_Redis(t *testing.T) {
	addr := os.Getenv("LIBRARY_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis不可用(%s): %v", addr, err)
	}

	token := "test-" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(context.Background(), blacklistKey(token), sessionKey(4242))
	})

	exerciseStore(t, NewSessionStore(client), 4242, token)
}
