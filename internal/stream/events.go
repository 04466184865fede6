package stream

import "time"

// Server→client event names shared by the SSE and WebSocket transports.
const (
	EventConnected       = "connected"
	EventPing            = "ping"
	EventNotification    = "notification"
	EventDashboardUpdate = "dashboardUpdate"
	EventSystemAlert     = "systemAlert"
)

// ConnectedPayload is sent once, immediately after a stream is established.
type ConnectedPayload struct {
	ClientID  string `json:"clientId"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// PingPayload is the named heartbeat event pushed on every open stream.
type PingPayload struct {
	Timestamp int64  `json:"timestamp"`
	ClientID  string `json:"clientId"`
}

func NewConnectedPayload(clientID string) ConnectedPayload {
	return ConnectedPayload{
		ClientID:  clientID,
		Timestamp: time.Now().UnixMilli(),
		Message:   "stream established",
	}
}

func NewPingPayload(clientID string) PingPayload {
	return PingPayload{
		Timestamp: time.Now().UnixMilli(),
		ClientID:  clientID,
	}
}
