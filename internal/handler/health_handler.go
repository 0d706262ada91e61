package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger is an interface for health check ping operations.
// Implemented by pgxpool.Pool and the bolt and memory repositories.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	store  Pinger
	driver string
}

// NewHealthHandler creates a new HealthHandler for the given store.
// driver names the store in responses and logs.
func NewHealthHandler(store Pinger, driver string) *HealthHandler {
	return &HealthHandler{store: store, driver: driver}
}

// Check performs a health check by pinging the invite store.
// Returns 200 OK with {"status": "healthy"} when the store is reachable.
// Returns 503 Service Unavailable with {"status": "unhealthy", "error": "..."} when it is not.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.store.Ping(c.Context()); err != nil {
		log.Error().Err(err).Str("store", h.driver).Msg("health check failed: store unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"store":  h.driver,
			"error":  "store connection failed",
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"store":  h.driver,
	})
}
