package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// HealthStatus describes which integrations the process was started with.
type HealthStatus struct {
	Redis   func(ctx context.Context) bool
	Flux    bool
	MiniMax bool
	Backend bool
	Storage bool
	Auth    bool
}

type HealthHandler struct {
	status HealthStatus
}

func NewHealthHandler(status HealthStatus) *HealthHandler {
	return &HealthHandler{status: status}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Reports upstream integrations. placeholderShots is true when project shots are not real Flux renders.
// @Tags         Health
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	redisOK := h.status.Redis != nil && h.status.Redis(c.Context())
	return c.JSON(fiber.Map{
		"status":           "ok",
		"placeholderShots": !h.status.Flux,
		"services": fiber.Map{
			"redis":   redisOK,
			"flux":    h.status.Flux,
			"minimax": h.status.MiniMax,
			"backend": h.status.Backend,
			"storage": h.status.Storage,
			"auth":    h.status.Auth,
		},
	})
}
