// Package out defines the outbound ports the core services depend on.
package out

import (
	"context"
	"time"

	"pipeline_server/core/domain"

	"github.com/google/uuid"
)

// QueueRepository persists queue items. Implementations must make
// ClaimBatch an atomic dequeue-and-claim so no item is handed to two
// workers.
type QueueRepository interface {
	// Insert stores a new item with status pending and returns its id.
	Insert(ctx context.Context, item *domain.QueueItem) (int64, error)

	// GetByID returns the item or nil when it does not exist.
	GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.QueueItem, error)

	// Update merges a patch into an existing item. Missing items are a
	// no-op (the caller logs, nothing fails).
	Update(ctx context.Context, tenantID uuid.UUID, id int64, patch *domain.QueueItemPatch) (bool, error)

	// UpdateStatus performs a guarded one-way transition. It returns
	// false when the item was not in the expected source status.
	UpdateStatus(ctx context.Context, id int64, from, to domain.QueueStatus, result map[string]any, failureReason string) (bool, error)

	// FetchDue returns items in the given status whose scheduled_for is
	// not in the future, ordered by priority descending then scheduled
	// time then insertion order, at most limit of them. tenantID may be
	// uuid.Nil to fetch across tenants.
	FetchDue(ctx context.Context, tenantID uuid.UUID, status domain.QueueStatus, now time.Time, limit int) ([]*domain.QueueItem, error)

	// ClaimBatch atomically moves up to limit due pending items to
	// processing and returns them, ordered by priority descending then
	// insertion order. Safe to call from concurrent workers.
	ClaimBatch(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*domain.QueueItem, error)

	// BoostPriority raises (never lowers) the priority of pending items
	// referencing the given email.
	BoostPriority(ctx context.Context, tenantID uuid.UUID, emailRef string, priority int) error
}

// EscalationRepository persists the append-only escalation audit log.
type EscalationRepository interface {
	Insert(ctx context.Context, record *domain.EscalationRecord) (int64, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]*domain.EscalationRecord, error)
	CountSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error)
}

// RuleRepository reads tenant business rules. Ordering is priority
// ascending, then insertion order for equal priorities.
type RuleRepository interface {
	ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.BusinessRule, error)
}

// StyleProfileRepository reads the externally maintained style profile.
// A missing profile is (nil, nil), not an error.
type StyleProfileRepository interface {
	GetByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.StyleProfile, error)
}

// TemplateRepository reads tenant response templates.
type TemplateRepository interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.ResponseTemplate, error)
	GetByCategory(ctx context.Context, tenantID uuid.UUID, category string) ([]*domain.ResponseTemplate, error)
	GetDefault(ctx context.Context, tenantID uuid.UUID) (*domain.ResponseTemplate, error)
}

// StatsRepository aggregates processing counts from durable storage.
type StatsRepository interface {
	Aggregate(ctx context.Context, tenantID uuid.UUID, since time.Time) (*domain.PipelineStats, error)
}
