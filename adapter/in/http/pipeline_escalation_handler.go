package http

import (
	"time"

	"pipeline_server/core/port/out"
	"pipeline_server/core/service/escalation"

	"github.com/gofiber/fiber/v2"
)

const defaultEscalationListLimit = 50

// EscalationHandler exposes manual escalation and the audit log.
type EscalationHandler struct {
	engine *escalation.Engine
	repo   out.EscalationRepository
}

// NewEscalationHandler creates a new EscalationHandler
func NewEscalationHandler(engine *escalation.Engine, repo out.EscalationRepository) *EscalationHandler {
	return &EscalationHandler{engine: engine, repo: repo}
}

// Register registers escalation routes
func (h *EscalationHandler) Register(router fiber.Router) {
	escalations := router.Group("/escalations")

	escalations.Post("/manual", h.Manual)
	escalations.Get("/", h.List)
}

// ManualEscalationRequest represents an operator-initiated escalation
type ManualEscalationRequest struct {
	Email    EmailRequest `json:"email"`
	Reason   string       `json:"reason"`
	Priority int          `json:"priority"`
}

// Manual escalates an email on operator request
// @Summary Manually escalate an email
// @Tags Escalations
// @Accept json
// @Produce json
// @Param request body ManualEscalationRequest true "Escalation request"
// @Success 200 {object} domain.EscalationResult
// @Router /api/v1/escalations/manual [post]
func (h *EscalationHandler) Manual(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	var req ManualEscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.engine.ProcessManual(c.Context(), tenantID, req.Email.toDomain(), req.Reason, req.Priority)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return c.JSON(result)
}

// List returns recent escalation records for the tenant
// @Summary List escalation records
// @Tags Escalations
// @Produce json
// @Param since query string false "RFC3339 lower bound (default 24h ago)"
// @Param limit query int false "Limit (default 50)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/escalations [get]
func (h *EscalationHandler) List(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "since must be RFC3339"})
		}
		since = parsed
	}

	limit := c.QueryInt("limit", defaultEscalationListLimit)
	if limit <= 0 || limit > 200 {
		limit = defaultEscalationListLimit
	}

	records, err := h.repo.ListByTenant(c.Context(), tenantID, since, limit)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"escalations": records,
		"total":       len(records),
	})
}
