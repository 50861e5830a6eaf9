// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Session events (server -> client)
	EventTypeSessionPending         EventType = "session:pending"
	EventTypeSessionApproved        EventType = "session:approved"
	EventTypeSessionRevoked         EventType = "session:revoked"
	EventTypeSessionMainTransferred EventType = "session:main_transferred"
	EventTypeForceLogout            EventType = "session:force_logout"

	// Session queries (client -> server)
	EventTypeSessionStatus EventType = "session:status"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// ChannelType groups events a client can subscribe to.
type ChannelType string

const (
	ChannelSessions ChannelType = "sessions"
	ChannelSystem   ChannelType = "system"
)

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionEventData describes a change to one device session.
type SessionEventData struct {
	SessionID  string `json:"session_id"`
	DeviceName string `json:"device_name,omitempty"`
	IP         string `json:"ip,omitempty"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

// DecodeData re-decodes the loosely typed payload into target.
func (m *WSMessage) DecodeData(target interface{}) error {
	raw, err := json.Marshal(m.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}
