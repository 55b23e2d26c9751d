package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	lease, err := l.Acquire(ctx, JobKey("a"), time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, JobKey("a"), time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	other, err := l.Acquire(ctx, JobKey("b"), time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))
	_, err = l.Acquire(ctx, JobKey("a"), time.Minute)
	require.NoError(t, err)
}

func TestLocalLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	stale, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	// the stale owner must not drop the new lease
	require.NoError(t, stale.Release(ctx))
	_, err = l.Acquire(ctx, "k", time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)
	require.NoError(t, fresh.Release(ctx))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	l := NewRedisLocker(rdb, "t:", nil)

	lease, err := l.Acquire(ctx, JobKey("1"), time.Minute)
	require.NoError(t, err)
	got, err := mr.Get("t:job:1")
	require.NoError(t, err)
	assert.Equal(t, lease.Token, got)
	assert.Greater(t, mr.TTL("t:job:1"), time.Duration(0))

	_, err = l.Acquire(ctx, JobKey("1"), time.Minute)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("t:job:1"))

	_, err = l.Acquire(ctx, JobKey("1"), time.Minute)
	require.NoError(t, err)
}

func TestRedisLocker_ExpiredLeaseDoesNotReleaseNewOwner(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	l := NewRedisLocker(rdb, "t:", nil)

	stale, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	got, err := mr.Get("t:k")
	require.NoError(t, err)
	assert.Equal(t, fresh.Token, got)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = NewRedisClient(context.Background(), "not a url")
	require.Error(t, err)
}
