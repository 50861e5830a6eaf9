// Package devices implements multi-device approval: the main device approves,
// revokes and hands over its role; other devices only see themselves until approved.
package devices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerdesk/internal/domain/auth"
	wstypes "ledgerdesk/internal/domain/websocket"
	xerrors "ledgerdesk/internal/pkg/errors"
	"ledgerdesk/internal/pkg/session"

	"go.uber.org/zap"
)

type Service struct {
	sessions       auth.SessionRepository
	sessionManager *session.Manager
	notifier       wstypes.Notifier
	logger         *zap.Logger
	now            func() time.Time
}

func NewService(sessions auth.SessionRepository, sessionManager *session.Manager, notifier wstypes.Notifier, logger *zap.Logger) *Service {
	if notifier == nil {
		notifier = wstypes.NopNotifier{}
	}
	return &Service{
		sessions:       sessions,
		sessionManager: sessionManager,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
}

// List returns the caller's sessions with is_current set. Callers that are not
// approved see only their own entry.
func (s *Service) List(ctx context.Context, caller *session.SessionData) ([]auth.Session, error) {
	if !caller.Approved || caller.IsRevoked() {
		own, err := s.sessions.FindSessionByID(ctx, caller.SessionID)
		if err != nil {
			return nil, err
		}
		own.IsCurrent = true
		return []auth.Session{*own}, nil
	}

	list, err := s.sessions.ListSessions(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].IsCurrent = list[i].ID == caller.SessionID
	}
	return list, nil
}

// Approve lets a pending session in.
func (s *Service) Approve(ctx context.Context, caller *session.SessionData, sid string) error {
	if err := s.requireMain(ctx, caller); err != nil {
		return err
	}
	if err := s.sessions.ApproveSession(ctx, caller.UserID, sid, s.now()); err != nil {
		return err
	}
	s.refresh(ctx, caller.UserID, sid)

	s.logger.Info("session approved", zap.Int64("user_id", caller.UserID), zap.String("sid", sid),
		zap.String("by", caller.SessionID))
	s.notifier.NotifySession(caller.UserID, wstypes.EventTypeSessionApproved, wstypes.SessionEventData{
		SessionID: sid,
		Status:    auth.SessionApproved,
	})
	return nil
}

// Revoke ends another session. Pending sessions end up rejected.
func (s *Service) Revoke(ctx context.Context, caller *session.SessionData, sid string) error {
	if err := s.requireMain(ctx, caller); err != nil {
		return err
	}
	if sid == caller.SessionID {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "use logout to end the current session")
	}
	if err := s.sessions.RevokeSession(ctx, caller.UserID, sid, s.now()); err != nil {
		return err
	}
	s.refresh(ctx, caller.UserID, sid)

	status := auth.SessionRevoked
	if revoked, err := s.sessions.FindSessionByID(ctx, sid); err == nil {
		status = revoked.Status()
	}

	s.logger.Info("session revoked", zap.Int64("user_id", caller.UserID), zap.String("sid", sid),
		zap.String("status", status))
	s.notifier.ForceLogout(caller.UserID, []string{sid}, "revoked from main device")
	s.notifier.NotifySession(caller.UserID, wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
		SessionID: sid,
		Status:    status,
		Reason:    "revoked",
	})
	return nil
}

// RevokeOthers ends every session except the caller's.
func (s *Service) RevokeOthers(ctx context.Context, caller *session.SessionData) ([]string, error) {
	if err := s.requireMain(ctx, caller); err != nil {
		return nil, err
	}
	ids, err := s.sessions.RevokeOtherSessions(ctx, caller.UserID, caller.SessionID, s.now())
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.refresh(ctx, caller.UserID, id)
		s.notifier.NotifySession(caller.UserID, wstypes.EventTypeSessionRevoked, wstypes.SessionEventData{
			SessionID: id,
			Reason:    "revoke_others",
		})
	}
	s.notifier.ForceLogout(caller.UserID, ids, "signed out from main device")

	s.logger.Info("other sessions revoked", zap.Int64("user_id", caller.UserID), zap.Int("count", len(ids)))
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// TransferMain hands main-device status to another approved session.
func (s *Service) TransferMain(ctx context.Context, caller *session.SessionData, sid string) error {
	if err := s.requireMain(ctx, caller); err != nil {
		return err
	}
	if sid == caller.SessionID {
		return xerrors.Wrap(xerrors.ErrInvalidInput, "session is already the main device")
	}
	if err := s.sessions.TransferMainDevice(ctx, caller.UserID, caller.SessionID, sid); err != nil {
		return err
	}
	s.refresh(ctx, caller.UserID, caller.SessionID)
	s.refresh(ctx, caller.UserID, sid)

	s.logger.Info("main device transferred", zap.Int64("user_id", caller.UserID),
		zap.String("from", caller.SessionID), zap.String("to", sid))
	s.notifier.NotifySession(caller.UserID, wstypes.EventTypeSessionMainTransferred, wstypes.SessionEventData{
		SessionID: sid,
		Status:    auth.SessionApproved,
		Message:   "This device is now the main device",
	})
	return nil
}

// requireMain checks the database, not the cache, so a transfer that just
// happened elsewhere is honoured.
func (s *Service) requireMain(ctx context.Context, caller *session.SessionData) error {
	current, err := s.sessions.FindSessionByID(ctx, caller.SessionID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrSessionExpired
		}
		return fmt.Errorf("load caller session: %w", err)
	}
	if current.UserID != caller.UserID {
		return xerrors.ErrSessionExpired
	}
	if current.IsRevoked() {
		return xerrors.ErrSessionRevoked
	}
	if !current.IsMainDevice {
		return xerrors.ErrNotMainDevice
	}
	return nil
}

func (s *Service) refresh(ctx context.Context, userID int64, sid string) {
	if err := s.sessionManager.Refresh(ctx, userID, sid); err != nil {
		s.logger.Warn("failed to refresh cached session", zap.String("sid", sid), zap.Error(err))
	}
}
