// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "ledgerdesk/internal/domain/websocket"
	"ledgerdesk/internal/pkg/jwt"
	"ledgerdesk/internal/pkg/session"

	"go.uber.org/zap"
)

type Hub struct {
	// Registered clients by user ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	handlerRegistry *HandlerRegistry

	jwtVerifier    *jwt.Verifier
	sessionManager *session.Manager
	logger         *zap.Logger
}

// BroadcastMessage targets users, optionally narrowed to specific sessions.
// Subject names the session the event is about; devices still waiting for
// approval only receive events whose Subject is their own session.
type BroadcastMessage struct {
	UserIDs    []int64
	SessionIDs []string
	Subject    string
	Channel    wstypes.ChannelType
	Message    *wstypes.WSMessage
}

func NewHub(jwtVerifier *jwt.Verifier, sessionManager *session.Manager, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client, 64),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		jwtVerifier:     jwtVerifier,
		sessionManager:  sessionManager,
		logger:          logger,
	}
}

// AuthenticateClient validates the token and the session behind it. Pending
// sessions may connect so they learn about their approval; revoked ones may not.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.jwtVerifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	blacklisted, err := h.sessionManager.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, ErrTokenBlacklisted
	}

	data, err := h.sessionManager.Resolve(ctx, claims.UserID, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if data.IsRevoked() {
		return nil, ErrSessionRevoked
	}

	return &ClientAuth{
		UserID:       claims.UserID,
		SessionID:    claims.SessionID(),
		Role:         data.Role,
		Email:        data.Email,
		DeviceName:   data.DeviceName,
		Approved:     data.Approved,
		IsMainDevice: data.IsMainDevice,
	}, nil
}

// Register hands a connected client to the run loop. It gives up when the hub
// has stopped or ctx ends, so a caller never blocks on a dead hub.
func (h *Hub) Register(ctx context.Context, client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage dispatches to a registered handler; unknown types fall through.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", client.userID),
		zap.String("sid", client.sessionID),
		zap.Int("total", total))

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":        client.userID,
		"session_id":     client.sessionID,
		"role":           client.role,
		"approved":       client.Approved(),
		"is_main_device": client.isMainDevice,
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.userID)
			}

			h.logger.Info("websocket client disconnected",
				zap.Int64("user_id", client.userID),
				zap.String("sid", client.sessionID),
				zap.Int("total", h.totalClients()))
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(client *Client) {
		if !client.IsSubscribed(msg.Channel) {
			return
		}
		if len(msg.SessionIDs) > 0 && !containsString(msg.SessionIDs, client.sessionID) {
			return
		}
		own := msg.Subject != "" && msg.Subject == client.sessionID
		if own {
			switch msg.Message.Type {
			case wstypes.EventTypeSessionApproved:
				client.approved.Store(true)
			case wstypes.EventTypeSessionRevoked:
				client.approved.Store(false)
			}
		}
		if !own && !client.Approved() {
			return
		}
		client.SendMessage(msg.Message)
	}

	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				deliver(client)
			}
		}
		return
	}

	for _, userID := range msg.UserIDs {
		for client := range h.clients[userID] {
			deliver(client)
		}
	}
}

// NotifySession tells the user's approved devices about a session change. A
// device that is still pending only hears about its own session.
func (h *Hub) NotifySession(userID int64, eventType wstypes.EventType, data wstypes.SessionEventData) {
	h.publish(&BroadcastMessage{
		UserIDs: []int64{userID},
		Subject: data.SessionID,
		Channel: wstypes.ChannelSessions,
		Message: wstypes.NewMessage(eventType, data),
	})
}

// ForceLogout tells the devices holding the given sessions that they were signed out.
func (h *Hub) ForceLogout(userID int64, sessionIDs []string, reason string) {
	if len(sessionIDs) == 0 {
		return
	}
	for _, sid := range sessionIDs {
		h.publish(&BroadcastMessage{
			UserIDs:    []int64{userID},
			SessionIDs: []string{sid},
			Subject:    sid,
			Channel:    wstypes.ChannelSystem,
			Message: wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
				SessionID: sid,
				Reason:    reason,
				Message:   "You have been logged out",
			}),
		})
	}
}

func (h *Hub) GetConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

// publish never blocks a request handler; a full queue drops the event.
func (h *Hub) publish(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			zap.String("type", string(msg.Message.Type)))
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	default:
		go func() { h.unregister <- client }()
	}
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
