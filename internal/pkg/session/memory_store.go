// internal/pkg/session/memory_store.go
package session

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data      SessionData
	expiresAt time.Time
}

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is a single-process Store for development and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]memoryItem
	blacklist map[string]time.Time
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]memoryItem),
		blacklist: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (m *MemoryStore) Put(_ context.Context, s *SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionKey(s.UserID, s.SessionID)] = memoryItem{data: *s, expiresAt: s.ExpiresAt}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, userID int64, sid string) (*SessionData, error) {
	m.mu.RLock()
	item, ok := m.sessions[sessionKey(userID, sid)]
	m.mu.RUnlock()
	if !ok || m.now().After(item.expiresAt) {
		return nil, ErrCacheMiss
	}
	data := item.data
	return &data, nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(userID, sid))
	return nil
}

func (m *MemoryStore) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist[jti] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	until, ok := m.blacklist[jti]
	return ok && m.now().Before(until), nil
}

// MemoryRateLimiter is the in-process Limiter.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	counters map[string]counter
	now      func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{counters: make(map[string]counter), now: time.Now}
}

func (l *MemoryRateLimiter) Hit(_ context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.counters[key]
	if c.expiresAt.IsZero() || now.After(c.expiresAt) {
		c = counter{expiresAt: now.Add(window)}
	}
	c.count++
	l.counters[key] = c

	remaining := limit - c.count
	if remaining < 0 {
		remaining = 0
	}
	return c.count <= limit, remaining, nil
}

func (l *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
	return nil
}
