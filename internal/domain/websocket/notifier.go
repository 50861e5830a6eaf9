package websocket

// Notifier pushes session events to connected devices.
type Notifier interface {
	NotifySession(userID int64, eventType EventType, data SessionEventData)
	ForceLogout(userID int64, sessionIDs []string, reason string)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) NotifySession(int64, EventType, SessionEventData) {}
func (NopNotifier) ForceLogout(int64, []string, string)               {}
