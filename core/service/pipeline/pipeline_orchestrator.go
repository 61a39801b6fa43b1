// Package pipeline composes the full per-email decision flow:
// classify, evaluate rules, route, reply or escalate, and report one
// structured outcome. The pipeline never raises a processing error to
// the caller; irrecoverable stage failures degrade to a fixed
// acknowledgement marked as a fallback outcome.
package pipeline

import (
	"context"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/service/classification"
	"pipeline_server/core/service/escalation"
	"pipeline_server/core/service/response"
	"pipeline_server/core/service/routing"
	"pipeline_server/core/service/rules"
	"pipeline_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fallbackAcknowledgement is returned when reply composition fails
// beyond recovery.
const fallbackAcknowledgement = "Thank you for contacting us. We received your message and will get back to you shortly."

// Orchestrator runs one email through every stage. Re-entrant: a
// failed item resubmitted later restarts the full flow with no partial
// state carried over.
type Orchestrator struct {
	classifier *classification.Classifier
	rules      *rules.Engine
	router     *routing.Router
	escalation *escalation.Engine
	generator  *response.Generator
	templates  *response.TemplateEngine
	log        zerolog.Logger
	now        func() time.Time
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(
	classifier *classification.Classifier,
	rulesEngine *rules.Engine,
	router *routing.Router,
	escalationEngine *escalation.Engine,
	generator *response.Generator,
	templates *response.TemplateEngine,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		rules:      rulesEngine,
		router:     router,
		escalation: escalationEngine,
		generator:  generator,
		templates:  templates,
		log:        log.With().Str("component", "pipeline").Logger(),
		now:        time.Now,
	}
}

// ProcessEmail runs the full pipeline for one email. Only structurally
// invalid input is rejected; every other failure degrades to a usable
// fallback outcome.
func (o *Orchestrator) ProcessEmail(ctx context.Context, tenantID uuid.UUID, email *domain.Email, businessContext map[string]string) (*domain.PipelineResult, error) {
	if email == nil || !email.HasRequiredFields() {
		return nil, apperr.ValidationFailed("email requires from and subject")
	}

	start := o.now()
	result := &domain.PipelineResult{
		EmailID:  email.ID,
		TenantID: tenantID,
		Pipeline: domain.PipelineFull,
	}

	// Classify. The classifier chain guarantees a classification.
	result.Classification = o.classifier.Classify(ctx, email)

	// Evaluate business rules once; the escalation stage reuses them.
	triggered, err := o.rules.Evaluate(ctx, email, tenantID, result.Classification)
	if err != nil {
		o.log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("email_id", email.ID).
			Err(err).
			Msg("rule evaluation failed, continuing without rules")
		triggered = nil
	}
	result.TriggeredRules = triggered

	// Route. Never fails.
	result.Routing = o.router.Route(ctx, result.Classification)

	// Reply when routing asks for one.
	if result.Routing.AutoReply || result.Classification.RequiresResponse {
		result.Response = o.composeReply(ctx, tenantID, email, result.Classification, businessContext)
		if result.Response.FallbackUsed && result.Response.Text == fallbackAcknowledgement {
			result.Pipeline = domain.PipelineFallback
		}
	}

	// Escalate when routing or rules demand it.
	if result.Routing.Escalate || len(triggered) > 0 {
		esc, err := o.escalation.ProcessWithRules(ctx, tenantID, email, result.Classification, result.Routing, triggered)
		if err != nil {
			o.log.Error().
				Str("tenant_id", tenantID.String()).
				Str("email_id", email.ID).
				Err(err).
				Msg("escalation stage failed")
			esc = &domain.EscalationResult{Escalated: false}
		}
		result.Escalation = esc
	}

	result.ProcessedAt = o.now()
	result.DurationMs = result.ProcessedAt.Sub(start).Milliseconds()

	o.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("email_id", email.ID).
		Str("category", string(result.Classification.Category)).
		Str("urgency", string(result.Classification.Urgency)).
		Str("route", string(result.Routing.Action)).
		Str("pipeline", result.Pipeline).
		Int64("duration_ms", result.DurationMs).
		Msg("email processed")

	return result, nil
}

// ProcessBatch runs the pipeline for each email in order. Per-email
// validation errors produce a fallback-marked placeholder result so
// one bad email cannot sink its batch.
func (o *Orchestrator) ProcessBatch(ctx context.Context, tenantID uuid.UUID, emails []*domain.Email, businessContext map[string]string) []*domain.PipelineResult {
	results := make([]*domain.PipelineResult, 0, len(emails))
	for _, email := range emails {
		r, err := o.ProcessEmail(ctx, tenantID, email, businessContext)
		if err != nil {
			id := ""
			if email != nil {
				id = email.ID
			}
			o.log.Warn().
				Str("tenant_id", tenantID.String()).
				Str("email_id", id).
				Err(err).
				Msg("email rejected during batch processing")
			r = &domain.PipelineResult{
				EmailID:        id,
				TenantID:       tenantID,
				Classification: domain.DefaultClassification(),
				Pipeline:       domain.PipelineFallback,
				ProcessedAt:    o.now(),
			}
		}
		results = append(results, r)
	}
	return results
}

// composeReply generates a reply and wraps it in the tenant's outbound
// template. A panic-free guarantee: any failure yields the fixed
// acknowledgement.
func (o *Orchestrator) composeReply(ctx context.Context, tenantID uuid.UUID, email *domain.Email, c *domain.Classification, businessContext map[string]string) *domain.GeneratedResponse {
	resp, err := o.generator.GenerateResponse(ctx, tenantID, email, c.Category, businessContext)
	if err != nil || resp == nil || resp.Text == "" {
		o.log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("email_id", email.ID).
			Err(err).
			Msg("reply composition failed, using fixed acknowledgement")
		return &domain.GeneratedResponse{
			Text:         fallbackAcknowledgement,
			StyleApplied: false,
			FallbackUsed: true,
		}
	}

	if o.templates != nil {
		text, templateID := o.templates.Apply(ctx, tenantID, string(c.Category), resp.Text, businessContext)
		resp.Text = text
		resp.TemplateID = templateID
	}
	return resp
}
