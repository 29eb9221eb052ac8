package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Active int `json:"active"`
	Late   int `json:"late"`
}

func newHelper(t *testing.T) (*miniredis.Miniredis, *Helper) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewHelper(rdb, "stats:", nil)
}

func TestHelper_SetGet(t *testing.T) {
	mr, c := newHelper(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", stats{Active: 2, Late: 1}, time.Minute))
	assert.True(t, mr.Exists("stats:k"))

	var got stats
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, stats{Active: 2, Late: 1}, got)

	err := c.Get(ctx, "missing", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestGetOrLoad(t *testing.T) {
	_, c := newHelper(t)
	ctx := context.Background()
	calls := 0
	load := func(context.Context) (stats, error) {
		calls++
		return stats{Active: calls}, nil
	}

	first, err := GetOrLoad(ctx, c, KeyDashboardStats, time.Minute, load)
	require.NoError(t, err)
	second, err := GetOrLoad(ctx, c, KeyDashboardStats, time.Minute, load)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	require.NoError(t, c.InvalidateStats(ctx))
	third, err := GetOrLoad(ctx, c, KeyDashboardStats, time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Active)
}

func TestGetOrLoad_PropagatesLoadError(t *testing.T) {
	_, c := newHelper(t)
	boom := errors.New("boom")
	_, err := GetOrLoad(context.Background(), c, "x", time.Minute, func(context.Context) (stats, error) {
		return stats{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestHelper_NilClientIsAlwaysMiss(t *testing.T) {
	c := NewHelper(nil, "stats:", nil)
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "k", 1, time.Minute))
	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrCacheNotAvailable)
	assert.NoError(t, c.InvalidateStats(ctx))

	got, err := GetOrLoad(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
