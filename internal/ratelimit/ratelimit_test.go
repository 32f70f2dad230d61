package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/schoolgle/schoolgle/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockerExclusive(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "sweep", "someone-else"))
	assert.True(t, mr.Exists("sweep"))

	require.NoError(t, locker.Release(ctx, "sweep", token))
	assert.False(t, mr.Exists("sweep"))
}

func TestWithLock(t *testing.T) {
	mr, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	ran := false
	err := locker.WithLock(ctx, "job", time.Minute, func(context.Context) error {
		ran = true
		assert.True(t, mr.Exists("job"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("job"))

	require.NoError(t, mr.Set("job", "other"))
	err = locker.WithLock(ctx, "job", time.Minute, func(context.Context) error {
		t.Fatal("must not run while held")
		return nil
	})
	assert.True(t, errors.Is(err, ErrLockHeld))
}

func TestNilLockerRunsUnguarded(t *testing.T) {
	var locker *Locker
	called := false
	require.NoError(t, locker.WithLock(context.Background(), "x", time.Second, func(context.Context) error {
		called = true
		return nil
	}))
	assert.True(t, called)
	assert.Nil(t, NewLocker(nil))
}

func TestTriggerLimiterBurst(t *testing.T) {
	_, client := newRedis(t)
	cfg := config.Config{RateLimit: config.RateLimitConfig{TriggerPerMinute: 1, TriggerBurst: 2}}
	limiter := NewTriggerLimiter(client, cfg)
	require.True(t, limiter.Enabled())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := limiter.Allow(ctx, "key_a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, "key_a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	res, err = limiter.Allow(ctx, "key_b")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTriggerLimiterDisabledWithoutRedis(t *testing.T) {
	limiter := NewTriggerLimiter(nil, config.Config{RateLimit: config.RateLimitConfig{TriggerPerMinute: 1, TriggerBurst: 1}})
	assert.False(t, limiter.Enabled())
	res, err := limiter.Allow(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
