package middleware

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/httpx"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/ratelimit"
)

// KeyByUser scopes a rate limit to the authenticated user, falling back to
// the client IP for anonymous requests.
func KeyByUser(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userID").(string); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.IP()
}

// KeyByIP scopes a rate limit to the client IP.
func KeyByIP(c *fiber.Ctx) string {
	return "ip:" + c.IP()
}

// RateLimit enforces one named rule. A nil limiter disables the check.
func RateLimit(limiter *ratelimit.Limiter, rule string, keyFunc func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limiter == nil {
			return c.Next()
		}
		decision := limiter.Check(c.Context(), rule, rule+":"+keyFunc(c))
		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			return httpx.TooManyRequests(c, retryAfter)
		}
		return c.Next()
	}
}
