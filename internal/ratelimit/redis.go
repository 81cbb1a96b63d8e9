package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared across replicas. Each key
// maps to a counter that expires with the window.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit requests per key per window.
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	redisKey := "ratelimit:" + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("rate limit check for %s: %w", key, err)
	}

	// The window starts with the first hit and must not move afterwards:
	// refreshing the TTL on every call would let steady traffic keep the
	// counter alive forever. TTL < 0 covers both a fresh counter and one
	// that lost its expiry.
	windowLeft := ttl.Val()
	count := int(incr.Val())
	if count == 1 || windowLeft < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return nil, fmt.Errorf("rate limit expiry for %s: %w", key, err)
		}
		windowLeft = l.window
	}

	result := &Result{
		Allowed: count <= l.limit,
		Limit:   l.limit,
		ResetAt: time.Now().Add(windowLeft),
	}
	if result.Allowed {
		result.Remaining = l.limit - count
	}
	return result, nil
}
