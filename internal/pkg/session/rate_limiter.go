// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Login attempts allowed per window, per ip and email.
const (
	MaxLoginAttempts    = 5
	LoginWindow         = 15 * time.Minute
	MaxResetAttempts    = 3
	PasswordResetWindow = time.Hour
)

func LoginKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ip, email)
}

func PasswordResetKey(email string) string {
	return fmt.Sprintf("ratelimit:password_reset:%s", email)
}

type RedisRateLimiter struct {
	client *redis.Client
}

func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// Hit counts one attempt and reports whether it is still within the limit.
func (r *RedisRateLimiter) Hit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment attempts: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set attempt window: %w", err)
		}
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, nil
}

func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
