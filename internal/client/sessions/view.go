// Package sessions is the device management view of the main device.
package sessions

import (
	"context"
	"sync"

	"ledgerdesk/internal/client/api"

	"go.uber.org/zap"
)

// Backend is the session half of the REST client.
type Backend interface {
	Sessions(ctx context.Context) ([]api.Session, error)
	ApproveSession(ctx context.Context, sid string) error
	RevokeSession(ctx context.Context, sid string) error
	RevokeOtherSessions(ctx context.Context) ([]string, error)
	TransferMainDevice(ctx context.Context, sid string) error
}

// Snapshot is a copy of the view state.
type Snapshot struct {
	Sessions []api.Session
	Loading  bool
	Error    string
}

// View holds the last fetched session list. Actions never edit the list
// locally; every success is followed by a full refetch.
type View struct {
	backend Backend
	logger  *zap.Logger

	mu       sync.Mutex
	sessions []api.Session
	inflight int
	errMsg   string
}

func NewView(backend Backend, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{backend: backend, logger: logger}
}

// Fetch replaces the list with the backend's.
func (v *View) Fetch(ctx context.Context) error {
	v.begin()
	list, err := v.backend.Sessions(ctx)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inflight--
	if err != nil {
		v.errMsg = err.Error()
		return err
	}
	v.sessions = list
	return nil
}

func (v *View) Approve(ctx context.Context, sid string) error {
	return v.act(ctx, "approve", func() error { return v.backend.ApproveSession(ctx, sid) })
}

func (v *View) Revoke(ctx context.Context, sid string) error {
	return v.act(ctx, "revoke", func() error { return v.backend.RevokeSession(ctx, sid) })
}

// RevokeOthers signs out every device but this one.
func (v *View) RevokeOthers(ctx context.Context) error {
	return v.act(ctx, "revoke others", func() error {
		revoked, err := v.backend.RevokeOtherSessions(ctx)
		if err == nil {
			v.logger.Info("sessions revoked", zap.Int("count", len(revoked)))
		}
		return err
	})
}

func (v *View) TransferMain(ctx context.Context, sid string) error {
	return v.act(ctx, "transfer main", func() error { return v.backend.TransferMainDevice(ctx, sid) })
}

// act runs a POST and refetches on success. A failure only sets Error.
func (v *View) act(ctx context.Context, name string, call func() error) error {
	v.begin()
	err := call()
	v.mu.Lock()
	v.inflight--
	if err != nil {
		v.errMsg = err.Error()
		v.mu.Unlock()
		v.logger.Debug("session action failed", zap.String("action", name), zap.Error(err))
		return err
	}
	v.mu.Unlock()
	return v.Fetch(ctx)
}

func (v *View) begin() {
	v.mu.Lock()
	v.inflight++
	v.errMsg = ""
	v.mu.Unlock()
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	list := make([]api.Session, len(v.sessions))
	copy(list, v.sessions)
	return Snapshot{Sessions: list, Loading: v.inflight > 0, Error: v.errMsg}
}

// Current returns the caller's own session, if listed.
func (s Snapshot) Current() (api.Session, bool) {
	for _, sess := range s.Sessions {
		if sess.IsCurrent {
			return sess, true
		}
	}
	return api.Session{}, false
}

// Status labels a session for display.
func Status(s api.Session) string {
	switch {
	case s.RevokedAt != nil && s.ApprovedAt == nil:
		return "rejected"
	case s.RevokedAt != nil:
		return "revoked"
	case s.Approved:
		return "approved"
	default:
		return "pending"
	}
}
