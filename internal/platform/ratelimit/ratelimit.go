// Package ratelimit implements a fixed-window request counter backed by
// Redis. The counter is an injected dependency rather than package state so
// handlers and their tests stay free of hidden shared state.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key within a fixed window.
type Limiter struct {
	client *redis.Client
	prefix string
	max    int64
	window time.Duration
}

// New constructs a Limiter allowing max hits per window for each key.
func New(client *redis.Client, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: prefix, max: int64(max), window: window}
}

// Allow records a hit for key and reports whether it is within the limit.
// When the limit is exceeded, retryAfter holds the remaining window time.
// Counter store failures surface as errors; callers decide the policy
// (abuse mitigation typically fails open, unlike authorization).
func (l *Limiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("ratelimit: incr %s: %w", redisKey, err)
	}

	if count.Val() <= l.max {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = l.window
	}
	return false, ttl, nil
}
