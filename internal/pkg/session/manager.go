// internal/pkg/session/manager.go
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"

	"go.uber.org/zap"
)

// Last-seen is written back at most this often per session.
const touchInterval = time.Minute

// Manager fronts the session table with a Store. The table stays the source of
// truth; the cache is dropped or rewritten whenever a session changes state.
type Manager struct {
	store    Store
	sessions auth.SessionRepository
	users    auth.UserRepository
	logger   *zap.Logger
	now      func() time.Time
}

func NewManager(store Store, sessions auth.SessionRepository, users auth.UserRepository, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		sessions: sessions,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// Cache stores a freshly created or changed session.
func (m *Manager) Cache(ctx context.Context, s *auth.Session, u *auth.User) error {
	return m.store.Put(ctx, toData(s, u))
}

// Resolve returns the session behind an access token, falling back to the
// database on a cache miss.
func (m *Manager) Resolve(ctx context.Context, userID int64, sid string) (*SessionData, error) {
	data, err := m.store.Get(ctx, userID, sid)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		m.logger.Warn("session cache read failed, falling back to database",
			zap.String("sid", sid), zap.Error(err))
	}

	return m.load(ctx, userID, sid)
}

// Refresh re-reads a session from the database and rewrites the cache entry.
func (m *Manager) Refresh(ctx context.Context, userID int64, sid string) error {
	if err := m.store.Delete(ctx, userID, sid); err != nil {
		m.logger.Warn("failed to drop cached session", zap.String("sid", sid), zap.Error(err))
	}
	_, err := m.load(ctx, userID, sid)
	return err
}

// Touch bumps last_seen when the cached value is stale enough, then reloads
// the cache entry from the table; the caller's copy is never written back.
// ErrSessionRevoked means the row was no longer live.
func (m *Manager) Touch(ctx context.Context, data *SessionData) error {
	now := m.now()
	if data.IsRevoked() || now.Sub(data.LastSeen) < touchInterval {
		return nil
	}
	touched, err := m.sessions.TouchSession(ctx, data.SessionID, now)
	if err != nil {
		m.logger.Warn("failed to update session last_seen", zap.String("sid", data.SessionID), zap.Error(err))
		return nil
	}
	if err := m.Refresh(ctx, data.UserID, data.SessionID); err != nil {
		m.logger.Warn("failed to reload session", zap.String("sid", data.SessionID), zap.Error(err))
	}
	if !touched {
		return xerrors.ErrSessionRevoked
	}
	data.LastSeen = now
	return nil
}

// Blacklist makes a token id unusable until it would have expired anyway.
func (m *Manager) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	return m.store.Blacklist(ctx, jti, time.Until(expiresAt))
}

func (m *Manager) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return m.store.IsBlacklisted(ctx, jti)
}

func (m *Manager) load(ctx context.Context, userID int64, sid string) (*SessionData, error) {
	s, err := m.sessions.FindSessionByID(ctx, sid)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrSessionExpired
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s.UserID != userID {
		return nil, xerrors.Wrap(xerrors.ErrSessionExpired, "session identity mismatch")
	}
	if !s.ExpiresAt.IsZero() && m.now().After(s.ExpiresAt) {
		return nil, xerrors.ErrSessionExpired
	}

	u, err := m.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load session owner: %w", err)
	}

	data := toData(s, u)
	if err := m.store.Put(ctx, data); err != nil {
		m.logger.Warn("failed to restore session to cache", zap.String("sid", sid), zap.Error(err))
	}
	return data, nil
}

func toData(s *auth.Session, u *auth.User) *SessionData {
	return &SessionData{
		SessionID:    s.ID,
		UserID:       s.UserID,
		Email:        u.Email,
		Role:         u.Role,
		DeviceID:     s.DeviceID,
		DeviceName:   s.DeviceName,
		Approved:     s.Approved,
		IsMainDevice: s.IsMainDevice,
		RevokedAt:    s.RevokedAt,
		LastSeen:     s.LastSeen,
		ExpiresAt:    s.ExpiresAt,
	}
}
