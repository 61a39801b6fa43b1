package http

import (
	"pipeline_server/core/service/pipeline"

	"github.com/gofiber/fiber/v2"
)

// StatsHandler exposes aggregate pipeline counts.
type StatsHandler struct {
	stats *pipeline.StatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(stats *pipeline.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Register registers stats routes
func (h *StatsHandler) Register(router fiber.Router) {
	router.Get("/stats", h.Get)
}

// Get returns processing stats for a timeframe
// @Summary Get pipeline processing stats
// @Tags Stats
// @Produce json
// @Param timeframe query string false "1h, 24h, 7d or 30d (default 24h)"
// @Success 200 {object} domain.PipelineStats
// @Router /api/v1/stats [get]
func (h *StatsHandler) Get(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	timeframe := c.Query("timeframe", "24h")

	stats, err := h.stats.GetStats(c.Context(), tenantID, timeframe)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return c.JSON(stats)
}
