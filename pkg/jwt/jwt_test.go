package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

func TestManager_GenerateAndParse(t *testing.T) {
	m := NewManager("secret", time.Hour, 24*time.Hour)

	pair, err := m.GenerateToken(7, "desk@library.org", "Front Desk")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := m.ParseToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.LibrarianID)
	assert.Equal(t, "desk@library.org", claims.Email)
	assert.Equal(t, "7", claims.Subject)
	assert.InDelta(t, time.Hour.Seconds(), m.RemainingTTL(claims).Seconds(), 5)

	refreshClaims, err := m.ParseToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refreshClaims.Email)

	access, err := m.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)
	refreshed, err := m.ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint(7), refreshed.LibrarianID)
}

func TestManager_ParseRejects(t *testing.T) {
	m := NewManager("secret", time.Hour, 24*time.Hour)
	pair, err := m.GenerateToken(1, "a@b.org", "A")
	require.NoError(t, err)

	t.Run("签名不匹配", func(t *testing.T) {
		_, err := NewManager("other", time.Hour, time.Hour).ParseToken(pair.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := m.ParseToken("not-a-token")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("已过期", func(t *testing.T) {
		later := NewManager("secret", time.Hour, 24*time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ParseToken(pair.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})
}
