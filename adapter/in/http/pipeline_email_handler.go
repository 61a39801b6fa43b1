package http

import (
	"strconv"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/core/service/pipeline"
	"pipeline_server/core/service/queue"

	"github.com/gofiber/fiber/v2"
)

// EmailHandler exposes the processing pipeline over HTTP.
type EmailHandler struct {
	orchestrator *pipeline.Orchestrator
	queueService *queue.Service
	producer     out.InboundProducer
}

// NewEmailHandler creates a new EmailHandler. producer may be nil when
// Redis is not configured; the enqueue endpoint then writes directly.
func NewEmailHandler(orchestrator *pipeline.Orchestrator, queueService *queue.Service, producer out.InboundProducer) *EmailHandler {
	return &EmailHandler{
		orchestrator: orchestrator,
		queueService: queueService,
		producer:     producer,
	}
}

// Register registers email processing routes
func (h *EmailHandler) Register(router fiber.Router) {
	emails := router.Group("/emails")

	emails.Post("/process", h.Process)
	emails.Post("/batch", h.ProcessBatch)
	emails.Post("/queue", h.Enqueue)
	emails.Get("/queue/:id", h.GetQueueItem)
}

// EmailRequest is the wire form of an inbound email
type EmailRequest struct {
	ID                string         `json:"id"`
	From              string         `json:"from"`
	To                string         `json:"to"`
	Subject           string         `json:"subject"`
	Body              string         `json:"body"`
	ReceivedAt        *time.Time     `json:"received_at,omitempty"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

func (r *EmailRequest) toDomain() *domain.Email {
	email := &domain.Email{
		ID:                r.ID,
		From:              r.From,
		To:                r.To,
		Subject:           r.Subject,
		Body:              r.Body,
		ProviderMessageID: r.ProviderMessageID,
		Metadata:          r.Metadata,
	}
	if r.ReceivedAt != nil {
		email.ReceivedAt = *r.ReceivedAt
	} else {
		email.ReceivedAt = time.Now().UTC()
	}
	return email
}

// ProcessEmailRequest represents a synchronous processing request
type ProcessEmailRequest struct {
	Email           EmailRequest      `json:"email"`
	BusinessContext map[string]string `json:"business_context,omitempty"`
}

// ProcessBatchRequest represents a batch processing request
type ProcessBatchRequest struct {
	Emails          []EmailRequest    `json:"emails"`
	BusinessContext map[string]string `json:"business_context,omitempty"`
}

// EnqueueRequest represents an asynchronous enqueue request
type EnqueueRequest struct {
	Email        EmailRequest `json:"email"`
	Priority     int          `json:"priority"`
	ScheduledFor *time.Time   `json:"scheduled_for,omitempty"`
}

// Process runs one email through the full pipeline synchronously
// @Summary Process an email through the decision pipeline
// @Tags Emails
// @Accept json
// @Produce json
// @Param request body ProcessEmailRequest true "Email to process"
// @Success 200 {object} domain.PipelineResult
// @Router /api/v1/emails/process [post]
func (h *EmailHandler) Process(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	var req ProcessEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.orchestrator.ProcessEmail(c.Context(), tenantID, req.Email.toDomain(), req.BusinessContext)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return c.JSON(result)
}

// ProcessBatch runs multiple emails through the pipeline synchronously.
// A failing email yields a fallback-marked result, never fails the batch.
// @Summary Process a batch of emails
// @Tags Emails
// @Accept json
// @Produce json
// @Param request body ProcessBatchRequest true "Emails to process"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/emails/batch [post]
func (h *EmailHandler) ProcessBatch(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	var req ProcessBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Emails) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "emails must not be empty"})
	}

	emails := make([]*domain.Email, len(req.Emails))
	for i := range req.Emails {
		emails[i] = req.Emails[i].toDomain()
	}

	results := h.orchestrator.ProcessBatch(c.Context(), tenantID, emails, req.BusinessContext)

	return c.JSON(fiber.Map{
		"results": results,
		"total":   len(results),
	})
}

// Enqueue accepts an email for asynchronous processing. With a stream
// producer configured the email goes through the ingestion bus,
// otherwise straight into the queue.
// @Summary Queue an email for asynchronous processing
// @Tags Emails
// @Accept json
// @Produce json
// @Param request body EnqueueRequest true "Email to enqueue"
// @Success 202 {object} map[string]interface{}
// @Router /api/v1/emails/queue [post]
func (h *EmailHandler) Enqueue(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	var req EnqueueRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	email := req.Email.toDomain()
	if !email.HasRequiredFields() {
		return c.Status(400).JSON(fiber.Map{"error": "email requires from and subject"})
	}

	if h.producer != nil && req.Priority == 0 && req.ScheduledFor == nil {
		if err := h.producer.PublishInbound(c.Context(), tenantID, email); err != nil {
			return AppErrorResponse(c, err)
		}
		return c.Status(202).JSON(fiber.Map{"status": "accepted", "email_id": email.ID})
	}

	priority := req.Priority
	if priority == 0 {
		priority = domain.DefaultQueuePriority
	}
	scheduledFor := time.Time{}
	if req.ScheduledFor != nil {
		scheduledFor = *req.ScheduledFor
	}

	itemID, err := h.queueService.Add(c.Context(), tenantID, email, priority, scheduledFor)
	if err != nil {
		return AppErrorResponse(c, err)
	}

	return c.Status(202).JSON(fiber.Map{
		"status":   "accepted",
		"item_id":  itemID,
		"email_id": email.ID,
	})
}

// GetQueueItem returns a queued item with its status and result
// @Summary Get a queue item
// @Tags Emails
// @Produce json
// @Param id path int true "Queue item ID"
// @Success 200 {object} domain.QueueItem
// @Router /api/v1/emails/queue/{id} [get]
func (h *EmailHandler) GetQueueItem(c *fiber.Ctx) error {
	tenantID, err := MustGetTenantID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid queue item ID"})
	}

	item, err := h.queueService.Get(c.Context(), tenantID, id)
	if err != nil {
		return AppErrorResponse(c, err)
	}
	if item == nil {
		return c.Status(404).JSON(fiber.Map{"error": "queue item not found"})
	}

	return c.JSON(item)
}
