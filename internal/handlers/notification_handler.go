package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/httpx"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/models"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	trackingService     *service.TrackingService
}

func NewNotificationHandler(notificationService *service.NotificationService, trackingService *service.TrackingService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		trackingService:     trackingService,
	}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Authentication required")
	}

	unreadOnly := c.Query("unread") == "true"
	limit := c.QueryInt("limit", 0)

	notifications, err := h.notificationService.List(userID, unreadOnly, limit)
	if err != nil {
		log.Printf("Listing notifications for user %s failed: %v", userID, err)
		return httpx.Internal(c, "list_failed")
	}
	return c.JSON(fiber.Map{"notifications": notifications})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Authentication required")
	}

	notificationID := c.Params("id")
	updated, err := h.notificationService.MarkRead(userID, notificationID)
	if err != nil {
		log.Printf("Marking notification %s read failed: %v", notificationID, err)
		return httpx.Internal(c, "mark_read_failed")
	}
	if !updated {
		return httpx.NotFound(c, "notification_not_found", "Notification not found or already read")
	}
	return c.JSON(fiber.Map{"status": "read"})
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Authentication required")
	}

	affected, err := h.notificationService.MarkAllRead(userID)
	if err != nil {
		log.Printf("Marking all notifications read for user %s failed: %v", userID, err)
		return httpx.Internal(c, "mark_all_read_failed")
	}
	return c.JSON(fiber.Map{"status": "read", "count": affected})
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := httpx.LocalString(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "missing_user", "Authentication required")
	}

	count, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		log.Printf("Unread count for user %s failed: %v", userID, err)
		return httpx.Internal(c, "unread_count_failed")
	}
	return c.JSON(fiber.Map{"count": count})
}

type trackRequest struct {
	NotificationID string                 `json:"notificationId"`
	Event          string                 `json:"event"`
	Metadata       map[string]interface{} `json:"metadata"`
}

// Track handles POST /api/notifications/track. Auth is optional here;
// service workers report delivery events after the page's session is gone.
func (h *NotificationHandler) Track(c *fiber.Ctx) error {
	var req trackRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if req.NotificationID == "" || req.Event == "" {
		return httpx.BadRequest(c, "missing_fields", "notificationId and event are required")
	}
	kind := models.DeliveryEventKind(req.Event)
	if !models.ClientReportableDeliveryEventKind(kind) {
		return httpx.BadRequest(c, "invalid_event", "Event kind cannot be reported by clients")
	}

	metadata := req.Metadata
	if userID, ok := c.Locals("userID").(string); ok && userID != "" {
		if metadata == nil {
			metadata = make(map[string]interface{})
		}
		metadata["userId"] = userID
	}

	event, err := h.trackingService.Record(req.NotificationID, kind, metadata)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDeliveryEvent):
			return httpx.BadRequest(c, "invalid_event", "Unknown delivery event kind")
		case errors.Is(err, service.ErrNotificationNotFound):
			return httpx.NotFound(c, "notification_not_found", "Notification not found")
		default:
			log.Printf("Tracking %s for notification %s failed: %v", req.Event, req.NotificationID, err)
			return httpx.Internal(c, "track_failed")
		}
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         event.ID,
		"status":     "recorded",
		"outOfOrder": event.OutOfOrder,
	})
}

// Events handles GET /api/notifications/:id/events (admin only).
func (h *NotificationHandler) Events(c *fiber.Ctx) error {
	events, err := h.trackingService.History(c.Params("id"))
	if err != nil {
		log.Printf("Event history for notification %s failed: %v", c.Params("id"), err)
		return httpx.Internal(c, "events_failed")
	}
	return c.JSON(fiber.Map{"events": events})
}
