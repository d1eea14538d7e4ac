package handler

import (
	"github.com/gofiber/fiber/v2"

	"canister/internal/database"
)

// HealthHandler exposes readiness and liveness endpoints.
type HealthHandler struct {
	db *database.DB
}

// NewHealthHandler creates the handler for health endpoints.
func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

var _ Registrar = (*HealthHandler)(nil)

// Routes mounts the health endpoints.
func (h *HealthHandler) Routes(r fiber.Router) {
	r.Get("/health", h.health)
	r.Get("/healthz", h.liveness)
}

// health checks DB connectivity only; the blob store is exercised lazily per
// request and has no cheap ping.
func (h *HealthHandler) health(c *fiber.Ctx) error {
	if err := h.db.HealthCheck(c.UserContext()); err != nil {
		return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
}

// liveness is a simple probe that answers as long as the process serves.
func (h *HealthHandler) liveness(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}
