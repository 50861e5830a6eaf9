// internal/pkg/session/redis_store.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put caches the session until its token expires.
func (r *RedisStore) Put(ctx context.Context, s *SessionData) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := r.client.Set(ctx, sessionKey(s.UserID, s.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, userID int64, sid string) (*SessionData, error) {
	data, err := r.client.Get(ctx, sessionKey(userID, sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var s SessionData
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64, sid string) error {
	return r.client.Del(ctx, sessionKey(userID, sid)).Err()
}

// Blacklist marks a token id as unusable for ttl.
func (r *RedisStore) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, blacklistKey(jti), "1", ttl).Err()
}

func (r *RedisStore) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return exists > 0, nil
}

func sessionKey(userID int64, sid string) string {
	return fmt.Sprintf("session:%d:%s", userID, sid)
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("blacklist:%s", jti)
}
