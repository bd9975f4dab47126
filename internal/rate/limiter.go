package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds one fixed-window policy.
type Config struct {
	// Prefix namespaces the counter keys, e.g. "rl:login:".
	Prefix string
	// Limit is the number of hits allowed per Window. Zero disables the limiter.
	Limit  int
	Window time.Duration
}

// Limiter enforces a fixed-window hit budget per key using Redis counters,
// so every server instance shares the same budget.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.redis != nil && l.config.Limit > 0 && l.config.Window > 0
}

// Allow records a hit for key and returns ErrRateLimited once the window's
// budget is exhausted. A disabled limiter allows everything.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.config.Prefix+key, l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.Limit) {
		return ErrRateLimited
	}
	return nil
}

// RetryAfter returns the time left in key's current window.
func (l *Limiter) RetryAfter(ctx context.Context, key string) (time.Duration, error) {
	if !l.Enabled() {
		return 0, nil
	}
	ttl, err := l.redis.PTTL(ctx, l.config.Prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Reset clears key's counter.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.config.Prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Hits returns the counter for key in the current window.
func (l *Limiter) Hits(ctx context.Context, key string) (int, error) {
	if !l.Enabled() {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.config.Prefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: only the first hit sets the expiry.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
