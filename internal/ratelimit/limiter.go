// Package ratelimit implements Redis fixed-window counters used to throttle
// sign-in attempts and password-reset requests.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Limiter allows Max hits per Window for each key.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

func New(rdb redis.UniversalClient, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  rdb,
		prefix: prefix,
		max:    max,
		window: window,
	}
}

// Allow counts one hit for identifier and returns ErrRateLimited once the
// window budget is spent.
func (l *Limiter) Allow(ctx context.Context, identifier string) error {
	key := l.key(identifier)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	if count > int64(l.max) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter, e.g. after a successful sign-in.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, l.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(identifier string) string {
	return l.prefix + ":" + strings.ToLower(strings.TrimSpace(identifier))
}
