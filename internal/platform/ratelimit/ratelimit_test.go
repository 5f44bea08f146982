package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, "test", max, window), mr
}

func TestLimiterAllowsWithinWindow(t *testing.T) {
	limiter, _ := newLimiter(t, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "hit %d should be allowed", i+1)
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter, _ := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "separate keys must not share a counter")
}

func TestLimiterWindowResets(t *testing.T) {
	limiter, mr := newLimiter(t, 1, time.Minute)
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _ = limiter.Allow(ctx, "10.0.0.1")
	require.False(t, allowed)

	mr.FastForward(time.Minute + time.Second)

	allowed, _, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "counter should reset after the window elapses")
}
