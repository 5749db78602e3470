package auth

import (
	"context"
	"testing"
	"time"

	"gigboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars"

func newManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionManager(testSecret, time.Hour, rdb), mr
}

func TestSessionManager_IssueAndParse(t *testing.T) {
	m, _ := newManager(t)

	token, issued, err := m.Issue(42, models.RoleEmployer)
	require.NoError(t, err)

	claims, err := m.Parse(context.Background(), token)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
	assert.Equal(t, models.RoleEmployer, claims.Role)
	assert.Equal(t, issued.ID, claims.ID)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionManager_RejectsBadTokens(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		_, err := m.Parse(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessionManager("another-secret-that-is-32-chars-long", time.Hour, nil)
		token, _, err := other.Issue(1, models.RoleFreelancer)
		require.NoError(t, err)
		_, err = m.Parse(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewSessionManager(testSecret, time.Hour, nil)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.Issue(1, models.RoleFreelancer)
		require.NoError(t, err)
		_, err = m.Parse(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "1", "iss": "someone-else", "aud": Audience, "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = m.Parse(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "1", "iss": Issuer, "aud": Audience, "exp": time.Now().Add(time.Hour).Unix()}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(ctx, token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})
}

func TestSessionManager_Revoke(t *testing.T) {
	m, mr := newManager(t)
	ctx := context.Background()

	token, claims, err := m.Issue(7, models.RoleFreelancer)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, claims))

	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	ttl := mr.TTL(revokedKeyPrefix + claims.ID)
	assert.True(t, ttl > 0 && ttl <= time.Hour)
}

func TestSessionManager_RetireHonoursGrace(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	token, claims, err := m.Issue(7, models.RoleFreelancer)
	require.NoError(t, err)
	require.NoError(t, m.Retire(ctx, claims, 30*time.Second))

	_, err = m.Parse(ctx, token)
	require.NoError(t, err, "still usable inside the grace period")

	m.now = func() time.Time { return time.Now().Add(time.Minute) }
	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_RetireKeepsEarlierRevoke(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	token, claims, err := m.Issue(7, models.RoleFreelancer)
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, claims))
	require.NoError(t, m.Retire(ctx, claims, time.Minute))

	_, err = m.Parse(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_NeedsRotation(t *testing.T) {
	m := NewSessionManager(testSecret, time.Hour, nil)
	_, claims, err := m.Issue(1, models.RoleFreelancer)
	require.NoError(t, err)
	assert.False(t, m.NeedsRotation(claims))

	m.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	assert.True(t, m.NeedsRotation(claims))
}
