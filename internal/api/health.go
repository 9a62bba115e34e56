package api

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Pinger checks connectivity to a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness/readiness endpoint. With no deps it always reports ok; cmd/chitter constructs it
// with no deps for both storage backends.
type HealthHandler struct {
	deps []Pinger
}

// NewHealthHandler creates a new health handler that pings every dep on each request.
func NewHealthHandler(deps ...Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Health handles GET /api/v1/health.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	for _, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
