// internal/handlers/websocket/websocket.go
package handlers

import (
	"net/http"
	"time"

	"ledgerdesk/internal/middleware"
	"ledgerdesk/internal/pkg/response"
	ws "ledgerdesk/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" or an empty
// list accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return &WebSocketHandler{
		hub:      hub,
		upgrader: upgrader,
		logger:   logger,
	}
}

// HandleConnection authenticates the session token then upgrades.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := middleware.ExtractToken(c)
	if token == "" {
		response.Unauthorized(c, "missing authentication token")
		return
	}

	auth, err := h.hub.AuthenticateClient(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Error(c, http.StatusUnauthorized, "authentication failed", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, auth)
	if err := h.hub.Register(c.Request.Context(), client); err != nil {
		h.logger.Warn("websocket client not registered",
			zap.Error(err),
			zap.String("sid", auth.SessionID),
		)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", auth.UserID),
		zap.String("sid", auth.SessionID),
		zap.String("device", auth.DeviceName),
	)

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns connection counts for the caller and overall.
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"user_connections":  h.hub.GetConnectedClients(userID),
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now(),
	})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || len(set) == 0 || set[origin]
	}
}
