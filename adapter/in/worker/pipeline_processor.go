package worker

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"pipeline_server/core/domain"
	"pipeline_server/core/service/pipeline"
	"pipeline_server/core/service/queue"
	"pipeline_server/pkg/apperr"
)

// Processor runs one claimed queue item through the decision pipeline
// and records the outcome back on the item.
type Processor struct {
	orchestrator *pipeline.Orchestrator
	queueService *queue.Service
	log          zerolog.Logger
}

// NewProcessor creates a job processor.
func NewProcessor(orchestrator *pipeline.Orchestrator, queueService *queue.Service, log zerolog.Logger) *Processor {
	return &Processor{
		orchestrator: orchestrator,
		queueService: queueService,
		log:          log.With().Str("component", "job_processor").Logger(),
	}
}

// Process executes a single job. The item was already moved to
// processing when the batch was claimed.
func (p *Processor) Process(ctx context.Context, job *Job) error {
	email, err := emailFromItem(job.Item)
	if err != nil {
		p.log.Error().
			Err(err).
			Int64("item_id", job.Item.ID).
			Msg("queue item carries no usable email payload")
		return p.queueService.MarkFailed(ctx, job.Item.ID, "invalid email payload: "+err.Error())
	}

	result, err := p.orchestrator.ProcessEmail(ctx, job.TenantID, email, nil)
	if err != nil {
		return err
	}

	return p.queueService.MarkCompleted(ctx, job.Item.ID, resultPayload(result))
}

// MarkAbandoned marks a job failed once the pool gives up on it, so
// the item does not sit in processing forever.
func (p *Processor) MarkAbandoned(ctx context.Context, job *Job, reason string) {
	if err := p.queueService.MarkFailed(ctx, job.Item.ID, reason); err != nil {
		p.log.Error().
			Err(err).
			Int64("item_id", job.Item.ID).
			Str("reason", reason).
			Msg("failed to mark abandoned job")
	}
}

// emailFromItem reconstructs the email from the metadata snapshot taken
// at enqueue time.
func emailFromItem(item *domain.QueueItem) (*domain.Email, error) {
	raw, ok := item.Metadata["email"]
	if !ok {
		return nil, apperr.ValidationFailed("queue item has no email metadata")
	}

	// metadata round-trips through jsonb, so the stored value may be a
	// decoded map rather than the original struct
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, apperr.ValidationFailed("email metadata is not serializable")
	}

	var email domain.Email
	if err := json.Unmarshal(data, &email); err != nil {
		return nil, apperr.ValidationFailed("email metadata is malformed")
	}
	if !email.HasRequiredFields() {
		return nil, apperr.ValidationFailed("email metadata is missing required fields")
	}
	return &email, nil
}

// resultPayload flattens the pipeline outcome into the queue result
// column. auto_reply feeds the stats aggregation.
func resultPayload(result *domain.PipelineResult) map[string]any {
	payload := map[string]any{
		"email_id":    result.EmailID,
		"pipeline":    result.Pipeline,
		"duration_ms": result.DurationMs,
	}
	if result.Classification != nil {
		payload["category"] = string(result.Classification.Category)
		payload["urgency"] = string(result.Classification.Urgency)
	}
	if result.Routing != nil {
		payload["action"] = string(result.Routing.Action)
		payload["auto_reply"] = result.Routing.AutoReply
	}
	if result.Escalation != nil {
		payload["escalated"] = result.Escalation.Escalated
	}
	if result.Response != nil {
		payload["response_generated"] = true
		payload["fallback_used"] = result.Response.FallbackUsed
	}
	return payload
}
