// Package events follows the server's session events over the websocket.
package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	wstypes "ledgerdesk/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrUnsupported marks a backend without the websocket endpoint.
var ErrUnsupported = errors.New("server does not push session events")

// Event is a session change pushed by the server.
type Event struct {
	Type    wstypes.EventType
	Session wstypes.SessionEventData
	At      time.Time
}

// IsSession reports whether the event concerns a device session.
func (e Event) IsSession() bool {
	return strings.HasPrefix(string(e.Type), "session:")
}

// Listener dials /ws with the bearer token and decodes incoming messages.
type Listener struct {
	url    string
	tokens func() string
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewListener derives the websocket URL from the REST base URL.
func NewListener(baseURL string, tokens func() string, logger *zap.Logger) (*Listener, error) {
	u, err := wsURL(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
	}
	return &Listener{url: u, tokens: tokens, dialer: dialer, logger: logger}, nil
}

func wsURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}

// Listen delivers events to fn until ctx ends or the server closes the
// connection. A normal close after ctx ends returns ctx.Err().
func (l *Listener) Listen(ctx context.Context, fn func(Event)) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.tokens())

	conn, resp, err := l.dialer.DialContext(ctx, l.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return ErrUnsupported
		}
		if resp != nil {
			return fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		msg, err := wstypes.ParseMessage(data)
		if err != nil {
			l.logger.Debug("unreadable websocket message", zap.Error(err))
			continue
		}
		ev := Event{Type: msg.Type, At: msg.Timestamp}
		if ev.IsSession() {
			if err := msg.DecodeData(&ev.Session); err != nil {
				l.logger.Debug("bad session payload", zap.String("type", string(msg.Type)), zap.Error(err))
			}
		}
		if msg.Type == wstypes.EventTypeError {
			var e wstypes.ErrorData
			if err := msg.DecodeData(&e); err == nil {
				l.logger.Warn("server reported error", zap.String("code", e.Code), zap.String("message", e.Message))
			}
			continue
		}
		fn(ev)
	}
}
