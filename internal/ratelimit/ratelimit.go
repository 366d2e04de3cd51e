// Package ratelimit bounds login attempts per key over a fixed window,
// backed by redis so the limit holds across instances.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter interface {
	// Allow records one attempt for key and reports whether it is still
	// within the limit. Errors are returned, never swallowed: a broken
	// limiter must not wave logins through.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset clears the counter for key, used after a successful login.
	Reset(ctx context.Context, key string) error
}

type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
}

func NewRedisLimiter(url string, maxAttempts int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisLimiter{
		client:      redis.NewClient(opts),
		maxAttempts: maxAttempts,
		window:      window,
	}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := hashKey(key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return count <= int64(l.maxAttempts), nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, hashKey(key)).Err()
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// hashKey hides usernames and addresses from anyone reading the redis
// keyspace.
func hashKey(key string) string {
	return fmt.Sprintf("login_attempts:%x", sha256.Sum256([]byte(key)))
}
