package persistence

import (
	"context"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// StatsAdapter implements out.StatsRepository using PostgreSQL.
type StatsAdapter struct {
	db *sqlx.DB
}

// NewStatsAdapter creates a new StatsAdapter.
func NewStatsAdapter(db *sqlx.DB) *StatsAdapter {
	return &StatsAdapter{db: db}
}

// statsRow holds the aggregated counters for one tenant window.
type statsRow struct {
	TotalQueued   int64 `db:"total_queued"`
	Completed     int64 `db:"completed"`
	Failed        int64 `db:"failed"`
	PendingReview int64 `db:"pending_review"`
	AutoReplies   int64 `db:"auto_replies"`
}

// Aggregate computes queue counters and escalation counts for a
// tenant since the given time.
func (a *StatsAdapter) Aggregate(ctx context.Context, tenantID uuid.UUID, since time.Time) (*domain.PipelineStats, error) {
	queueQuery := `
		SELECT
			COUNT(*) AS total_queued,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed,
			COUNT(*) FILTER (WHERE status = 'pending_review') AS pending_review,
			COUNT(*) FILTER (WHERE status = 'completed' AND result->>'auto_reply' = 'true') AS auto_replies
		FROM email_queue
		WHERE tenant_id = $1 AND created_at >= $2
	`

	var row statsRow
	if err := a.db.GetContext(ctx, &row, queueQuery, tenantID, since); err != nil {
		return nil, err
	}

	escalationQuery := `SELECT COUNT(*) FROM escalation_log WHERE tenant_id = $1 AND created_at >= $2`
	var escalations int64
	if err := a.db.GetContext(ctx, &escalations, escalationQuery, tenantID, since); err != nil {
		return nil, err
	}

	return &domain.PipelineStats{
		TenantID:      tenantID,
		TotalQueued:   row.TotalQueued,
		Completed:     row.Completed,
		Failed:        row.Failed,
		PendingReview: row.PendingReview,
		Escalations:   escalations,
		AutoReplies:   row.AutoReplies,
	}, nil
}

// Compile-time interface check
var _ out.StatsRepository = (*StatsAdapter)(nil)
