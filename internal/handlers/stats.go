package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/parolevive/backend/internal/services"
	"github.com/parolevive/backend/pkg/utils"
)

type StatsHandler struct {
	Stats *services.StatsService
}

func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{Stats: stats}
}

// Overview aggregates counts across all resources, optionally bounded
// by from/to query parameters (RFC3339).
func (h *StatsHandler) Overview(c *fiber.Ctx) error {
	var r services.StatsRange
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "from must be RFC3339")
		}
		r.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "to must be RFC3339")
		}
		r.To = &parsed
	}
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return utils.Error(c, fiber.StatusBadRequest, "to must not be before from")
	}

	overview, err := h.Stats.Overview(r)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed computing stats")
	}

	return utils.Success(c, fiber.StatusOK, overview)
}
