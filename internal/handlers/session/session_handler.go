// internal/handlers/session/session_handler.go
package session

import (
	"net/http"

	"ledgerdesk/internal/domain/auth"
	"ledgerdesk/internal/middleware"
	"ledgerdesk/internal/pkg/response"
	sessioncache "ledgerdesk/internal/pkg/session"
	"ledgerdesk/internal/service/devices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	devices *devices.Service
	logger  *zap.Logger
}

func NewSessionHandler(devices *devices.Service, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		devices: devices,
		logger:  logger,
	}
}

// List returns the caller's device sessions. A device that is not approved
// sees only itself, which is what the approval gate polls.
func (h *SessionHandler) List(c *gin.Context) {
	caller, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	sessions, err := h.devices.List(c.Request.Context(), caller)
	if err != nil {
		response.FromError(c, "failed to list sessions", err)
		return
	}

	response.Success(c, http.StatusOK, "sessions retrieved", sessions)
}

// Approve lets a pending device in (main device only)
func (h *SessionHandler) Approve(c *gin.Context) {
	h.act(c, "session approved", func(caller *sessioncache.SessionData, sid string) error {
		return h.devices.Approve(c.Request.Context(), caller, sid)
	})
}

// Revoke terminates one other device, rejecting it if still pending (main device only)
func (h *SessionHandler) Revoke(c *gin.Context) {
	h.act(c, "session revoked", func(caller *sessioncache.SessionData, sid string) error {
		return h.devices.Revoke(c.Request.Context(), caller, sid)
	})
}

// TransferMain hands main-device status to another approved device
func (h *SessionHandler) TransferMain(c *gin.Context) {
	h.act(c, "main device transferred", func(caller *sessioncache.SessionData, sid string) error {
		return h.devices.TransferMain(c.Request.Context(), caller, sid)
	})
}

// RevokeOthers terminates every session except the caller's (main device only)
func (h *SessionHandler) RevokeOthers(c *gin.Context) {
	caller, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	revoked, err := h.devices.RevokeOthers(c.Request.Context(), caller)
	if err != nil {
		response.FromError(c, "failed to revoke sessions", err)
		return
	}

	h.logger.Info("other sessions revoked",
		zap.Int64("user_id", caller.UserID),
		zap.Int("count", len(revoked)))

	response.Success(c, http.StatusOK, "other sessions revoked", auth.RevokeOthersResponse{Revoked: revoked})
}

func (h *SessionHandler) act(c *gin.Context, message string, fn func(caller *sessioncache.SessionData, sid string) error) {
	caller, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req auth.SessionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := fn(caller, req.SID); err != nil {
		h.logger.Warn("session action failed",
			zap.String("action", c.FullPath()),
			zap.String("caller_sid", caller.SessionID),
			zap.String("target_sid", req.SID),
			zap.Error(err))
		response.FromError(c, "session action failed", err)
		return
	}

	response.Success(c, http.StatusOK, message, gin.H{"sid": req.SID})
}
