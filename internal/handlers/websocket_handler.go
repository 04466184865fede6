package handlers

import (
	"encoding/json"
	"errors"
	"log"

	"github.com/gofiber/websocket/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
)

// WebSocketHandler serves the WebSocket transport. It shares the
// connection registry with the SSE transport, so delivery code never cares
// which transport a user is on.
type WebSocketHandler struct {
	registry *stream.Registry
}

func NewWebSocketHandler(registry *stream.Registry) *WebSocketHandler {
	return &WebSocketHandler{registry: registry}
}

// wsEnvelope mirrors the SSE frame shape: a named event plus its JSON
// payload.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(string)
	if !ok || userID == "" {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthenticated"))
		_ = c.Close()
		return
	}

	conn, err := h.registry.Add(userID, map[string]string{
		"transport": "websocket",
		"ip":        c.RemoteAddr().String(),
	})
	if err != nil {
		reason := "registration failed"
		if errors.Is(err, stream.ErrTooManyConnections) {
			reason = "connection limit reached"
		}
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
		_ = c.Close()
		return
	}

	// Writer goroutine owns the socket writes; the read loop below owns the
	// socket reads and the registry removal.
	go func() {
		connected, _ := json.Marshal(stream.NewConnectedPayload(conn.ID))
		if err := c.WriteJSON(wsEnvelope{Event: stream.EventConnected, Data: connected}); err != nil {
			h.registry.Remove(conn.ID)
			return
		}
		for {
			select {
			case frame := <-conn.Frames():
				if err := c.WriteJSON(wsEnvelope{Event: frame.Event, Data: frame.Data}); err != nil {
					log.Printf("WebSocket write failed for connection %s: %v", conn.ID, err)
					h.registry.Remove(conn.ID)
					return
				}
				h.registry.Touch(conn.ID)
			case <-conn.Done():
				_ = c.Close()
				return
			}
		}
	}()

	// Clients only send pings and acks; reading exists to track liveness
	// and to notice the close.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
		h.registry.Touch(conn.ID)
	}
	h.registry.Remove(conn.ID)
}
