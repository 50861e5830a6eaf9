// internal/pkg/session/types.go
package session

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by a Store that holds no entry for the key.
var ErrCacheMiss = errors.New("session cache miss")

// SessionData is the cached view of a device session used on every request.
type SessionData struct {
	SessionID    string     `json:"sid"`
	UserID       int64      `json:"user_id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	DeviceID     string     `json:"device_id,omitempty"`
	DeviceName   string     `json:"device_name,omitempty"`
	Approved     bool       `json:"approved"`
	IsMainDevice bool       `json:"is_main_device"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	LastSeen     time.Time  `json:"last_seen"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// IsRevoked reports whether the session was terminated.
func (s *SessionData) IsRevoked() bool {
	return s.RevokedAt != nil
}

// Store caches session state and the token blacklist.
type Store interface {
	Put(ctx context.Context, s *SessionData) error
	Get(ctx context.Context, userID int64, sid string) (*SessionData, error)
	Delete(ctx context.Context, userID int64, sid string) error
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Limiter counts attempts inside a fixed window.
type Limiter interface {
	Hit(ctx context.Context, key string, limit int64, window time.Duration) (allowed bool, remaining int64, err error)
	Reset(ctx context.Context, key string) error
}
