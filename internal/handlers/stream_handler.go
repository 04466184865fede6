package handlers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/httpx"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/service"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
	"github.com/valyala/fasthttp"
)

// keepaliveEvery is the interval for SSE comment lines between heartbeats;
// comments keep buffering proxies from cutting the stream without costing
// clients a parse.
const keepaliveEvery = 15 * time.Second

type StreamHandler struct {
	registry            *stream.Registry
	notificationService *service.NotificationService
}

func NewStreamHandler(registry *stream.Registry, notificationService *service.NotificationService) *StreamHandler {
	return &StreamHandler{registry: registry, notificationService: notificationService}
}

// HandleStream serves GET /api/stream as a server-sent event stream. The
// connection is registered before headers are written so a cap rejection
// can still produce a clean error response.
func (h *StreamHandler) HandleStream(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Authentication required")
	}

	conn, err := h.registry.Add(userID, map[string]string{
		"transport": "sse",
		"ip":        c.IP(),
		"userAgent": c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		if errors.Is(err, stream.ErrTooManyConnections) {
			return httpx.Error(c, fiber.StatusTooManyRequests, "too_many_connections", "Connection limit reached for user")
		}
		return httpx.Internal(c, "stream_register_failed")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	registry := h.registry
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer registry.Remove(conn.ID)

		connected, _ := json.Marshal(stream.NewConnectedPayload(conn.ID))
		if err := writeSSE(w, stream.EventConnected, connected); err != nil {
			return
		}

		keepalive := time.NewTicker(keepaliveEvery)
		defer keepalive.Stop()

		for {
			select {
			case frame := <-conn.Frames():
				if err := writeSSE(w, frame.Event, frame.Data); err != nil {
					log.Printf("Stream write failed for connection %s: %v", conn.ID, err)
					return
				}
				registry.Touch(conn.ID)
			case <-keepalive.C:
				if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
				registry.Touch(conn.ID)
			case <-conn.Done():
				return
			}
		}
	}))

	return nil
}

func writeSSE(w *bufio.Writer, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

// HandleUpdates serves GET /api/stream/updates, the polling fallback for
// clients that cannot hold a stream open.
func (h *StreamHandler) HandleUpdates(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Authentication required")
	}

	since := time.Now().Add(-30 * time.Second)
	explicit := false
	if raw := c.Query("since"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return httpx.BadRequest(c, "invalid_since", "since must be a unix millisecond timestamp")
		}
		since = time.UnixMilli(ms)
		explicit = true
	}

	// The default window is served from cache so aggressive pollers do not
	// hammer the store; explicit windows vary per client and bypass it.
	if !explicit {
		if body, ok := h.notificationService.CachedUpdates(userID); ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		}
	}

	notifications, err := h.notificationService.Since(userID, since, 0)
	if err != nil {
		log.Printf("Updates poll failed for user %s: %v", userID, err)
		return httpx.Internal(c, "updates_failed")
	}

	body, err := json.Marshal(fiber.Map{
		"userId":    userID,
		"timestamp": time.Now().UnixMilli(),
		"updates":   notifications,
	})
	if err != nil {
		return httpx.Internal(c, "updates_failed")
	}
	if !explicit {
		h.notificationService.CacheUpdates(userID, body)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}
