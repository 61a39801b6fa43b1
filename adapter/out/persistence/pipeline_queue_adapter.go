package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// QueueAdapter implements out.QueueRepository using PostgreSQL.
type QueueAdapter struct {
	db *sqlx.DB
}

// NewQueueAdapter creates a new QueueAdapter.
func NewQueueAdapter(db *sqlx.DB) *QueueAdapter {
	return &QueueAdapter{db: db}
}

// queueItemRow represents the database row for queue items.
type queueItemRow struct {
	ID            int64          `db:"id"`
	TenantID      uuid.UUID      `db:"tenant_id"`
	EmailRef      string         `db:"email_ref"`
	Priority      int            `db:"priority"`
	Status        string         `db:"status"`
	ScheduledFor  time.Time      `db:"scheduled_for"`
	Metadata      []byte         `db:"metadata"`
	Result        []byte         `db:"result"`
	FailureReason sql.NullString `db:"failure_reason"`
	Attempts      int            `db:"attempts"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

func (r *queueItemRow) toDomain() *domain.QueueItem {
	item := &domain.QueueItem{
		ID:           r.ID,
		TenantID:     r.TenantID,
		EmailRef:     r.EmailRef,
		Priority:     r.Priority,
		Status:       domain.QueueStatus(r.Status),
		ScheduledFor: r.ScheduledFor,
		Attempts:     r.Attempts,
	}

	if r.FailureReason.Valid {
		item.FailureReason = r.FailureReason.String
	}
	if r.CreatedAt.Valid {
		item.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		item.UpdatedAt = r.UpdatedAt.Time
	}

	if len(r.Metadata) > 0 {
		var metadata map[string]any
		if err := json.Unmarshal(r.Metadata, &metadata); err == nil {
			item.Metadata = metadata
		}
	}
	if len(r.Result) > 0 {
		var result map[string]any
		if err := json.Unmarshal(r.Result, &result); err == nil {
			item.Result = result
		}
	}

	return item
}

// Insert stores a new queue item.
func (a *QueueAdapter) Insert(ctx context.Context, item *domain.QueueItem) (int64, error) {
	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}

	query := `
		INSERT INTO email_queue (
			id, tenant_id, email_ref, priority, status,
			scheduled_for, metadata, attempts
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, 0
		)
		RETURNING id
	`

	var id int64
	err = a.db.QueryRowxContext(ctx, query,
		item.ID,
		item.TenantID,
		item.EmailRef,
		item.Priority,
		string(item.Status),
		item.ScheduledFor,
		metadataJSON,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID returns a queue item, or nil when it does not exist.
func (a *QueueAdapter) GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.QueueItem, error) {
	query := `
		SELECT id, tenant_id, email_ref, priority, status, scheduled_for,
		       metadata, result, failure_reason, attempts, created_at, updated_at
		FROM email_queue
		WHERE id = $1 AND tenant_id = $2
	`

	var row queueItemRow
	err := a.db.GetContext(ctx, &row, query, id, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// Update merges a patch into an existing item. Returns false when the
// item does not exist.
func (a *QueueAdapter) Update(ctx context.Context, tenantID uuid.UUID, id int64, patch *domain.QueueItemPatch) (bool, error) {
	var metadataJSON []byte
	if patch.Metadata != nil {
		metadataJSON, _ = json.Marshal(patch.Metadata)
	}

	query := `
		UPDATE email_queue
		SET priority      = COALESCE($3, priority),
		    scheduled_for = COALESCE($4, scheduled_for),
		    metadata      = CASE WHEN $5::jsonb IS NULL THEN metadata ELSE metadata || $5::jsonb END,
		    updated_at    = NOW()
		WHERE id = $1 AND tenant_id = $2
	`

	res, err := a.db.ExecContext(ctx, query, id, tenantID, patch.Priority, patch.ScheduledFor, metadataJSON)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateStatus performs a guarded transition. The WHERE clause on the
// source status makes the move atomic; returns false when the item was
// not in the expected status.
func (a *QueueAdapter) UpdateStatus(ctx context.Context, id int64, from, to domain.QueueStatus, result map[string]any, failureReason string) (bool, error) {
	var resultJSON []byte
	if result != nil {
		resultJSON, _ = json.Marshal(result)
	}

	query := `
		UPDATE email_queue
		SET status         = $3,
		    result         = COALESCE($4, result),
		    failure_reason = NULLIF($5, ''),
		    attempts       = attempts + CASE WHEN $3 = 'processing' THEN 1 ELSE 0 END,
		    updated_at     = NOW()
		WHERE id = $1 AND status = $2
	`

	res, err := a.db.ExecContext(ctx, query, id, string(from), string(to), resultJSON, failureReason)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FetchDue returns due items ordered by priority descending, then
// scheduled time, then arrival order. The limit applies after the
// ordering, so a late high-priority insert always makes the batch.
func (a *QueueAdapter) FetchDue(ctx context.Context, tenantID uuid.UUID, status domain.QueueStatus, now time.Time, limit int) ([]*domain.QueueItem, error) {
	query := `
		SELECT id, tenant_id, email_ref, priority, status, scheduled_for,
		       metadata, result, failure_reason, attempts, created_at, updated_at
		FROM email_queue
		WHERE status = $1
		  AND scheduled_for <= $2
		  AND ($3::uuid IS NULL OR tenant_id = $3)
		ORDER BY priority DESC, scheduled_for ASC, id ASC
		LIMIT $4
	`

	tenantArg := any(tenantID)
	if tenantID == uuid.Nil {
		tenantArg = nil
	}

	var rows []queueItemRow
	if err := a.db.SelectContext(ctx, &rows, query, string(status), now, tenantArg, limit); err != nil {
		return nil, err
	}

	items := make([]*domain.QueueItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toDomain()
	}
	return items, nil
}

// ClaimBatch atomically moves due pending items to processing and
// returns them. FOR UPDATE SKIP LOCKED keeps concurrent workers from
// claiming the same rows.
func (a *QueueAdapter) ClaimBatch(ctx context.Context, tenantID uuid.UUID, now time.Time, limit int) ([]*domain.QueueItem, error) {
	query := `
		UPDATE email_queue
		SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM email_queue
			WHERE status = 'pending'
			  AND scheduled_for <= $1
			  AND ($2::uuid IS NULL OR tenant_id = $2)
			ORDER BY priority DESC, id ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, tenant_id, email_ref, priority, status, scheduled_for,
		          metadata, result, failure_reason, attempts, created_at, updated_at
	`

	tenantArg := any(tenantID)
	if tenantID == uuid.Nil {
		tenantArg = nil
	}

	var rows []queueItemRow
	if err := a.db.SelectContext(ctx, &rows, query, now, tenantArg, limit); err != nil {
		return nil, err
	}

	items := make([]*domain.QueueItem, len(rows))
	for i := range rows {
		items[i] = rows[i].toDomain()
	}
	return items, nil
}

// BoostPriority raises (never lowers) the priority of pending items
// referencing the email.
func (a *QueueAdapter) BoostPriority(ctx context.Context, tenantID uuid.UUID, emailRef string, priority int) error {
	query := `
		UPDATE email_queue
		SET priority = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND email_ref = $2
		  AND status = 'pending' AND priority < $3
	`
	_, err := a.db.ExecContext(ctx, query, tenantID, emailRef, priority)
	return err
}

// Compile-time interface check
var _ out.QueueRepository = (*QueueAdapter)(nil)
