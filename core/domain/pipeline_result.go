package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline outcome markers. Fallback outcomes are still successful from
// the caller's point of view; the marker exists for observability.
const (
	PipelineFull     = "full"
	PipelineFallback = "fallback"
)

// PipelineResult is the single structured outcome produced for every
// processed email.
type PipelineResult struct {
	EmailID        string             `json:"email_id"`
	TenantID       uuid.UUID          `json:"tenant_id"`
	Classification *Classification    `json:"classification"`
	Routing        *RoutingDecision   `json:"routing"`
	Response       *GeneratedResponse `json:"response,omitempty"`
	TriggeredRules []TriggeredRule    `json:"triggered_rules,omitempty"`
	Escalation     *EscalationResult  `json:"escalation,omitempty"`
	Pipeline       string             `json:"pipeline"` // full | fallback
	ProcessedAt    time.Time          `json:"processed_at"`
	DurationMs     int64              `json:"duration_ms"`
}

// PipelineStats aggregates per-tenant processing counts over a window.
type PipelineStats struct {
	TenantID      uuid.UUID `json:"tenant_id"`
	Timeframe     string    `json:"timeframe"`
	TotalQueued   int64     `json:"total_queued"`
	Completed     int64     `json:"completed"`
	Failed        int64     `json:"failed"`
	PendingReview int64     `json:"pending_review"`
	Escalations   int64     `json:"escalations"`
	AutoReplies   int64     `json:"auto_replies"`
	GeneratedAt   time.Time `json:"generated_at"`
}
