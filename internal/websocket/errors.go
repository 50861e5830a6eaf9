// internal/websocket/errors.go
package websocket

import "errors"

var (
	ErrTokenBlacklisted = errors.New("token has been blacklisted")
	ErrSessionRevoked   = errors.New("session has been revoked")
	ErrHubStopped       = errors.New("websocket hub has stopped")
)
