package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAppSessionStore_CreateGetDelete(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	s := NewAppSessionStore(rdb, time.Hour)

	require.NoError(t, s.Create(ctx, "sid-1", "user-1", "alice", "10.0.0.1"))

	got, err := s.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, got.IssuedAt+3600, got.ExpiresAt)

	require.NoError(t, s.Delete(ctx, "sid-1"))
	_, err = s.Get(ctx, "sid-1")
	assert.ErrorIs(t, err, redis.Nil)

	members, err := rdb.SMembers(ctx, userSetKey("user-1")).Result()
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestAppSessionStore_Expires(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	s := NewAppSessionStore(rdb, time.Minute)

	require.NoError(t, s.Create(ctx, "sid", "u", "bob", ""))
	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "sid")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestAppSessionStore_RevokeAllForUser(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	s := NewAppSessionStore(rdb, time.Hour)

	require.NoError(t, s.Create(ctx, "a", "u1", "carol", ""))
	require.NoError(t, s.Create(ctx, "b", "u1", "carol", ""))
	require.NoError(t, s.Create(ctx, "c", "u2", "dave", ""))

	require.NoError(t, s.RevokeAllForUser(ctx, "u1"))

	for _, sid := range []string{"a", "b"} {
		_, err := s.Get(ctx, sid)
		assert.ErrorIs(t, err, redis.Nil, sid)
	}
	_, err := s.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	tok, err := s.Sign("sid-9", "user-9")
	require.NoError(t, err)

	sid, err := s.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "sid-9", sid)
}

func TestSigner_Rejects(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	other := NewSigner("other", time.Hour)
	tok, err := other.Sign("sid", "u")
	require.NoError(t, err)

	_, err = s.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewSigner("secret", -time.Minute)
	old, err := expired.Sign("sid", "u")
	require.NoError(t, err)
	_, err = s.Parse(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginThrottle(t *testing.T) {
	mr, rdb := newRedis(t)
	ctx := context.Background()
	th := NewLoginThrottle(rdb, 3, 10*time.Minute)

	for i := 0; i < 3; i++ {
		blocked, err := th.Blocked(ctx, "Eve")
		require.NoError(t, err)
		assert.False(t, blocked)
		require.NoError(t, th.Fail(ctx, "Eve"))
	}

	blocked, err := th.Blocked(ctx, "eve")
	require.NoError(t, err)
	assert.True(t, blocked, "usernames are case-insensitive")

	mr.FastForward(11 * time.Minute)
	blocked, err = th.Blocked(ctx, "eve")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, th.Fail(ctx, "eve"))
	require.NoError(t, th.Reset(ctx, "eve"))
	blocked, err = th.Blocked(ctx, "eve")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestPasswordHash(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "correct horse"))
	assert.False(t, CheckPassword(h, "wrong horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}
