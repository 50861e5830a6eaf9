// internal/websocket/handler/session.go
package handlers

import (
	"context"
	"fmt"

	"ledgerdesk/internal/domain/auth"
	wstypes "ledgerdesk/internal/domain/websocket"
	ws "ledgerdesk/internal/websocket"
)

// SessionHandler answers status queries from a device waiting for approval.
type SessionHandler struct {
	sessions auth.SessionRepository
}

func NewSessionHandler(sessions auth.SessionRepository) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SupportedEvents returns events this handler supports
func (h *SessionHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeSessionStatus}
}

func (h *SessionHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	switch msg.Type {
	case wstypes.EventTypeSessionStatus:
		return h.handleStatus(ctx, client)
	default:
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}
}

// handleStatus reports the caller's own session; other sessions are not exposed here.
func (h *SessionHandler) handleStatus(ctx context.Context, client *ws.Client) error {
	s, err := h.sessions.FindSessionByID(ctx, client.SessionID())
	if err != nil {
		return err
	}
	if s.UserID != client.UserID() {
		return fmt.Errorf("session %s does not belong to caller", s.ID)
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionStatus, wstypes.SessionEventData{
		SessionID:  s.ID,
		DeviceName: s.DeviceName,
		Status:     s.Status(),
	}))
	return nil
}
