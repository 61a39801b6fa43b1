package out

import (
	"context"
	"time"

	"pipeline_server/core/domain"

	"github.com/google/uuid"
)

// ClassificationService is the external AI classification provider.
// Errors from it are never surfaced to callers of the pipeline; the
// classifier falls back to rule-based scoring.
type ClassificationService interface {
	// Classify returns a structured classification for the email, or an
	// error on network failure, timeout, or unparsable output.
	Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error)
}

// GenerationService is the external reply-generation provider.
type GenerationService interface {
	// GenerateReply produces a reply body. The system prompt embeds the
	// tenant's style profile when one is provided.
	GenerateReply(ctx context.Context, email *domain.Email, category domain.EmailCategory, profile *domain.StyleProfile, businessContext map[string]string) (string, error)
}

// NotifyResult is the outcome of one notification delivery attempt.
type NotifyResult struct {
	Success bool
	Error   string
}

// Notifier is the abstract notification channel used by escalation
// actions (manager alerts, SMS, ticket creation, callbacks). Delivery
// providers are out of scope; implementations only carry the payload
// to a configured endpoint.
type Notifier interface {
	Send(ctx context.Context, tenantID uuid.UUID, notifyType string, payload map[string]any) NotifyResult
}

// StatsCache is a bounded, TTL'd per-tenant cache in front of stats
// aggregation and style profile reads.
type StatsCache interface {
	GetStats(ctx context.Context, tenantID uuid.UUID, timeframe string) (*domain.PipelineStats, bool)
	SetStats(ctx context.Context, tenantID uuid.UUID, timeframe string, stats *domain.PipelineStats, ttl time.Duration)
	GetStyleProfile(ctx context.Context, tenantID uuid.UUID) (*domain.StyleProfile, bool)
	SetStyleProfile(ctx context.Context, tenantID uuid.UUID, profile *domain.StyleProfile, ttl time.Duration)
}

// InboundProducer publishes inbound email events onto the ingestion
// bus for asynchronous queueing.
type InboundProducer interface {
	PublishInbound(ctx context.Context, tenantID uuid.UUID, email *domain.Email) error
}
