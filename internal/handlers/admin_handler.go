package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/cache"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/httpx"
	"github.com/parkkyonghun0510/lc-opd-daily-sub010/internal/stream"
)

type AdminHandler struct {
	registry *stream.Registry
	presence *cache.PresenceCache
}

func NewAdminHandler(registry *stream.Registry, presence *cache.PresenceCache) *AdminHandler {
	return &AdminHandler{registry: registry, presence: presence}
}

// Connections handles GET /api/admin/connections: the local snapshot plus
// the per-instance stats every instance mirrors into Redis.
func (h *AdminHandler) Connections(c *fiber.Ctx) error {
	local := h.registry.Stats()

	response := fiber.Map{
		"instanceId": h.registry.InstanceID(),
		"local":      local,
	}

	if h.presence != nil {
		instances, err := h.presence.GlobalStats()
		if err != nil {
			log.Printf("Global connection stats unavailable: %v", err)
		} else {
			totalConns := 0
			for _, inst := range instances {
				totalConns += inst.Connections
			}
			response["instances"] = instances
			response["totalConnections"] = totalConns
		}

		// Summing per-instance unique_users would double-count users
		// connected to two instances; the shared online set is exact.
		if count, err := h.presence.OnlineUserCount(); err != nil {
			log.Printf("Global unique user count unavailable: %v", err)
		} else {
			response["globalUniqueUsers"] = count
		}
	}

	return c.JSON(response)
}

// IsOnline handles GET /api/admin/users/:id/online.
func (h *AdminHandler) IsOnline(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return httpx.BadRequest(c, "missing_user_id", "user id is required")
	}
	online := h.presence.IsUserOnline(userID)
	if !online {
		// Presence in Redis can lag; a local connection is authoritative.
		if _, ok := h.registry.Stats().PerUser[userID]; ok {
			online = true
		}
	}
	return c.JSON(fiber.Map{"userId": userID, "online": online})
}
