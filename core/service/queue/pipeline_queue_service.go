// Package queue implements the durable, priority-ordered email queue.
package queue

import (
	"context"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/pkg/apperr"
	"pipeline_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBatchSize bounds how many due items one batch returns.
const DefaultBatchSize = 20

// Service wraps the queue repository with validation and lifecycle
// rules. Ordering within a batch is strictly priority-first; equal
// priorities preserve arrival order (stable sort on insertion id).
type Service struct {
	repo      out.QueueRepository
	batchSize int
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates a queue service.
func NewService(repo out.QueueRepository, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		batchSize: DefaultBatchSize,
		log:       log.With().Str("component", "queue").Logger(),
		now:       time.Now,
	}
}

// Add inserts an email into the queue with status pending and returns
// the new item id. Emails missing from/subject are rejected with a
// validation error.
func (s *Service) Add(ctx context.Context, tenantID uuid.UUID, email *domain.Email, priority int, scheduledFor time.Time) (int64, error) {
	if email == nil {
		return 0, apperr.ValidationFailed("email is required")
	}
	if !email.HasRequiredFields() {
		return 0, apperr.ValidationFailed("email requires from and subject")
	}
	if scheduledFor.IsZero() {
		scheduledFor = s.now()
	}

	item := &domain.QueueItem{
		ID:           snowflake.ID(),
		TenantID:     tenantID,
		EmailRef:     email.ID,
		Priority:     priority,
		Status:       domain.StatusPending,
		ScheduledFor: scheduledFor,
		Metadata:     map[string]any{"email": email},
		CreatedAt:    s.now(),
	}

	id, err := s.repo.Insert(ctx, item)
	if err != nil {
		return 0, apperr.DatabaseError("queue insert", err)
	}

	s.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("email_id", email.ID).
		Int64("item_id", id).
		Int("priority", priority).
		Msg("email queued")
	return id, nil
}

// UpdateItem merges a patch into an item. A missing item is a logged
// no-op, not an error.
func (s *Service) UpdateItem(ctx context.Context, tenantID uuid.UUID, id int64, patch *domain.QueueItemPatch) error {
	found, err := s.repo.Update(ctx, tenantID, id, patch)
	if err != nil {
		return apperr.DatabaseError("queue update", err)
	}
	if !found {
		s.log.Warn().
			Str("tenant_id", tenantID.String()).
			Int64("item_id", id).
			Msg("update for unknown queue item ignored")
	}
	return nil
}

// MarkProcessing claims an item for a worker: pending → processing.
func (s *Service) MarkProcessing(ctx context.Context, id int64) error {
	return s.transition(ctx, id, domain.StatusPending, domain.StatusProcessing, nil, "")
}

// MarkCompleted records the final result: processing → completed.
func (s *Service) MarkCompleted(ctx context.Context, id int64, result map[string]any) error {
	return s.transition(ctx, id, domain.StatusProcessing, domain.StatusCompleted, result, "")
}

// MarkFailed records a failure reason: processing → failed.
func (s *Service) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, domain.StatusProcessing, domain.StatusFailed, nil, reason)
}

// MarkPendingReview parks an item for manual handling: pending →
// pending_review. Terminal for automation.
func (s *Service) MarkPendingReview(ctx context.Context, id int64) error {
	return s.transition(ctx, id, domain.StatusPending, domain.StatusPendingReview, nil, "")
}

// transition performs a guarded one-way move. An item not in the
// expected source status is a logic error surfaced as a warning, never
// a hard failure; illegal back-transitions cannot occur.
func (s *Service) transition(ctx context.Context, id int64, from, to domain.QueueStatus, result map[string]any, reason string) error {
	if !domain.CanTransition(from, to) {
		s.log.Warn().
			Int64("item_id", id).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("illegal queue transition requested, ignored")
		return nil
	}

	moved, err := s.repo.UpdateStatus(ctx, id, from, to, result, reason)
	if err != nil {
		return apperr.DatabaseError("queue status update", err)
	}
	if !moved {
		s.log.Warn().
			Int64("item_id", id).
			Str("expected", string(from)).
			Str("to", string(to)).
			Msg("queue item not in expected status, transition skipped")
	}
	return nil
}

// NextBatch returns due items in the given status, ordered by priority
// descending then scheduled time ascending, arrival order for full
// ties. Items scheduled in the future are excluded. tenantID may be
// uuid.Nil to pull across tenants.
func (s *Service) NextBatch(ctx context.Context, tenantID uuid.UUID, status domain.QueueStatus) ([]*domain.QueueItem, error) {
	items, err := s.repo.FetchDue(ctx, tenantID, status, s.now(), s.batchSize)
	if err != nil {
		return nil, apperr.DatabaseError("queue fetch", err)
	}
	return items, nil
}

// ClaimBatch atomically dequeues up to the batch size of due pending
// items, moving them to processing. Used by the worker dispatcher; the
// storage layer guarantees no item is claimed twice.
func (s *Service) ClaimBatch(ctx context.Context, tenantID uuid.UUID) ([]*domain.QueueItem, error) {
	items, err := s.repo.ClaimBatch(ctx, tenantID, s.now(), s.batchSize)
	if err != nil {
		return nil, apperr.DatabaseError("queue claim", err)
	}
	return items, nil
}

// BoostPriority raises the priority of pending items for an email.
// Used by the high_priority escalation action.
func (s *Service) BoostPriority(ctx context.Context, tenantID uuid.UUID, emailRef string, priority int) error {
	if err := s.repo.BoostPriority(ctx, tenantID, emailRef, priority); err != nil {
		return apperr.DatabaseError("queue priority boost", err)
	}
	return nil
}

// Get returns one item, or nil when it does not exist.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.QueueItem, error) {
	item, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, apperr.DatabaseError("queue get", err)
	}
	return item, nil
}
