package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledgerdesk/internal/domain/auth"
	xerrors "ledgerdesk/internal/pkg/errors"
)

// SessionRepository mirrors the constraints of the device_sessions table.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]auth.Session)}
}

func (r *SessionRepository) CreateSession(_ context.Context, s *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return xerrors.Wrap(xerrors.ErrConflict, "session id taken")
	}
	if s.IsMainDevice {
		if r.mainLocked(s.UserID, s.CreatedAt) != nil {
			return xerrors.Wrap(xerrors.ErrConflict, "user already has a main device")
		}
		r.dropExpiredMainLocked(s.UserID, s.CreatedAt)
	}
	s.LastSeen = s.CreatedAt
	r.sessions[s.ID] = *s
	return nil
}

func (r *SessionRepository) FindSessionByID(_ context.Context, id string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "session")
	}
	return &s, nil
}

func (r *SessionRepository) ListSessions(_ context.Context, userID int64) ([]auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []auth.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *SessionRepository) FindMainDevice(_ context.Context, userID int64, at time.Time) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.mainLocked(userID, at); s != nil {
		return s, nil
	}
	return nil, xerrors.Wrap(xerrors.ErrNotFound, "main device")
}

func (r *SessionRepository) ApproveSession(_ context.Context, userID int64, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.ownedLocked(userID, id)
	if err != nil {
		return err
	}
	if s.IsRevoked() {
		return xerrors.Wrap(xerrors.ErrSessionRevoked, "cannot approve a revoked session")
	}
	if s.Approved {
		return nil
	}
	s.Approved = true
	s.ApprovedAt = &at
	r.sessions[id] = s
	return nil
}

func (r *SessionRepository) RevokeSession(_ context.Context, userID int64, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.ownedLocked(userID, id)
	if err != nil {
		return err
	}
	r.sessions[id] = revoked(s, at)
	return nil
}

func (r *SessionRepository) RevokeOtherSessions(_ context.Context, userID int64, keepID string, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, s := range r.sessions {
		if s.UserID != userID || id == keepID || s.IsRevoked() {
			continue
		}
		r.sessions[id] = revoked(s, at)
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *SessionRepository) TransferMainDevice(_ context.Context, userID int64, fromID, toID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from, err := r.ownedLocked(userID, fromID)
	if err != nil {
		return err
	}
	if !from.IsMainDevice || from.IsRevoked() {
		return xerrors.ErrNotMainDevice
	}
	to, err := r.ownedLocked(userID, toID)
	if err != nil {
		return err
	}
	if to.IsRevoked() {
		return xerrors.Wrap(xerrors.ErrSessionRevoked, "cannot transfer to a revoked session")
	}
	if !to.Approved {
		return xerrors.Wrap(xerrors.ErrSessionNotActive, "target session must be approved")
	}

	from.IsMainDevice = false
	to.IsMainDevice = true
	r.sessions[fromID] = from
	r.sessions[toID] = to
	return nil
}

func (r *SessionRepository) TouchSession(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.IsRevoked() {
		return false, nil
	}
	s.LastSeen = at
	r.sessions[id] = s
	return true, nil
}

// mainLocked returns the live main device at the given time.
func (r *SessionRepository) mainLocked(userID int64, at time.Time) *auth.Session {
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsMainDevice && !s.IsRevoked() && !expired(s, at) {
			return &s
		}
	}
	return nil
}

func (r *SessionRepository) dropExpiredMainLocked(userID int64, at time.Time) {
	for id, s := range r.sessions {
		if s.UserID == userID && s.IsMainDevice && !s.IsRevoked() && expired(s, at) {
			s.IsMainDevice = false
			r.sessions[id] = s
		}
	}
}

func expired(s auth.Session, at time.Time) bool {
	return !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(at)
}

func (r *SessionRepository) ownedLocked(userID int64, id string) (auth.Session, error) {
	s, ok := r.sessions[id]
	if !ok || s.UserID != userID {
		return auth.Session{}, xerrors.Wrap(xerrors.ErrNotFound, "session")
	}
	return s, nil
}

func revoked(s auth.Session, at time.Time) auth.Session {
	if s.RevokedAt == nil {
		s.RevokedAt = &at
	}
	s.Approved = false
	s.IsMainDevice = false
	return s
}
