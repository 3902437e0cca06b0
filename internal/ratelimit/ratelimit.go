// Package ratelimit counts attempts per key in fixed redis windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Limiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// New returns a limiter allowing limit attempts per key per window.
func New(client *redis.Client, limit int64, window time.Duration) *Limiter {
	return &Limiter{client: client, prefix: "ratelimit:", limit: limit, window: window}
}

// Allow records one attempt for key and reports whether it is within the
// limit. The window starts at the first attempt.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr %s: %w", k, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire %s: %w", k, err)
		}
	}
	return count <= l.limit, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

// NewClient connects to redis and pings it. A nil client is returned when
// redis is unreachable so callers can run without throttling.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}
