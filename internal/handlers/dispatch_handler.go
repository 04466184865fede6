package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/httpx"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/service"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/validation"
)

// dispatchTimeout bounds recipient resolution and row writes; the stream
// fan-out itself is asynchronous and not covered by it.
const dispatchTimeout = 10 * time.Second

type DispatchHandler struct {
	dispatchService *service.DispatchService
}

func NewDispatchHandler(dispatchService *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatchService: dispatchService}
}

// Dispatch handles POST /api/internal/dispatch, the producer-facing entry
// point. Producers are other backend services, authenticated by a shared
// token rather than a user session.
func (h *DispatchHandler) Dispatch(c *fiber.Ctx) error {
	token := os.Getenv("INTERNAL_API_TOKEN")
	if token == "" || subtle.ConstantTimeCompare([]byte(c.Get("X-Internal-Token")), []byte(token)) != 1 {
		return httpx.Unauthorized(c, "invalid_internal_token", "Invalid internal token")
	}

	var input service.DispatchInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	input.Type = validation.NormalizeEventType(input.Type)
	if !validation.ValidateEventType(input.Type) {
		return httpx.BadRequest(c, "invalid_type", "type must be uppercase snake case")
	}
	if !validation.ValidateIdempotencyKey(input.IdempotencyKey) {
		return httpx.BadRequest(c, "invalid_idempotency_key", "idempotencyKey is too long")
	}
	for _, userID := range input.UserIDs {
		if !validation.ValidateUserID(userID) {
			return httpx.BadRequest(c, "invalid_user_id", "userIds contains an invalid id")
		}
	}

	ctx, cancel := context.WithTimeout(c.Context(), dispatchTimeout)
	defer cancel()

	result, err := h.dispatchService.Dispatch(ctx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("Dispatch of %s timed out", input.Type)
			return httpx.Error(c, fiber.StatusGatewayTimeout, "dispatch_timeout", "Dispatch timed out")
		}
		log.Printf("Dispatch of %s failed: %v", input.Type, err)
		return httpx.Internal(c, "dispatch_failed")
	}
	return c.Status(fiber.StatusAccepted).JSON(result)
}
