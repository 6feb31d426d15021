// Package cache holds the Redis-backed rate limiter guarding the copilot
// chat endpoint.
package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window request quota per user. The window key
// carries its own TTL, so stale windows expire on their own.
type RateLimiter struct {
	client *redisv9.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redisv9.Client, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow counts one request for the user and reports whether it fits the
// window quota. The count is incremented even for denied requests.
func (l *RateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := l.windowKey(userID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr rate window failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire rate window failed: %w", err)
		}
	}
	return count <= int64(l.limit), nil
}

// Remaining returns how many requests the user has left in the current
// window.
func (l *RateLimiter) Remaining(ctx context.Context, userID string) (int, error) {
	raw, err := l.client.Get(ctx, l.windowKey(userID)).Int64()
	if err == redisv9.Nil {
		return l.limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get rate window failed: %w", err)
	}
	remaining := l.limit - int(raw)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *RateLimiter) windowKey(userID string) string {
	return fmt.Sprintf("copilot:rate:%s", userID)
}
