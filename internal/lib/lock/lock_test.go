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

func setupLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, ttl), mr
}

func TestTryLock_ExclusiveUntilReleased(t *testing.T) {
	locker, mr := setupLocker(t, time.Minute)
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "renewal")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:renewal"))

	_, err = locker.TryLock(ctx, "renewal")
	require.ErrorIs(t, err, ErrHeld)

	other, err := locker.TryLock(ctx, "trial")
	require.NoError(t, err, "different names do not block each other")
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("lock:renewal"))

	again, err := locker.TryLock(ctx, "renewal")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestTryLock_ExpiresAfterTTL(t *testing.T) {
	locker, mr := setupLocker(t, 2*time.Second)
	ctx := context.Background()

	_, err := locker.TryLock(ctx, "renewal")
	require.NoError(t, err)

	mr.FastForward(3 * time.Second)

	release, err := locker.TryLock(ctx, "renewal")
	require.NoError(t, err, "abandoned lock must expire")
	require.NoError(t, release(ctx))
}

func TestTryLock_RedisUnavailable(t *testing.T) {
	locker, mr := setupLocker(t, time.Minute)
	mr.Close()

	_, err := locker.TryLock(context.Background(), "renewal")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}
