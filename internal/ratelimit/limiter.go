// Package ratelimit provides a Redis-backed fixed-window rate limiter
// keyed by client IP and purpose (login, signup, ...).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts requests per IP within a fixed window
type Limiter struct {
	client      *redis.Client
	window      time.Duration
	maxRequests int64
}

func NewLimiter(client *redis.Client, window time.Duration, maxRequests int64) *Limiter {
	return &Limiter{
		client:      client,
		window:      window,
		maxRequests: maxRequests,
	}
}

// getIPKey generates the Redis key for an IP and purpose
func getIPKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

// CheckIPRateLimitWithPurpose reports whether the IP has exceeded the
// window for the given purpose. It does not count the request.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, getIPKey(ip, purpose)).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return count >= l.maxRequests, nil
}

// RecordIPRequestWithPurpose counts a request against the IP's window.
// The window starts with the first request and expires as a whole.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := getIPKey(ip, purpose)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}
