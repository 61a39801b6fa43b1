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

// EscalationAdapter implements out.EscalationRepository using
// PostgreSQL. The table is append-only; there are no update paths.
type EscalationAdapter struct {
	db *sqlx.DB
}

// NewEscalationAdapter creates a new EscalationAdapter.
func NewEscalationAdapter(db *sqlx.DB) *EscalationAdapter {
	return &EscalationAdapter{db: db}
}

// escalationRow represents the database row for escalation records.
type escalationRow struct {
	ID             int64        `db:"id"`
	TenantID       uuid.UUID    `db:"tenant_id"`
	EmailRef       string       `db:"email_ref"`
	Reason         string       `db:"reason"`
	RuleID         string       `db:"rule_id"`
	Priority       int          `db:"priority"`
	TriggeredRules []byte       `db:"triggered_rules"`
	Results        []byte       `db:"results"`
	CreatedAt      sql.NullTime `db:"created_at"`
}

func (r *escalationRow) toDomain() *domain.EscalationRecord {
	record := &domain.EscalationRecord{
		ID:       r.ID,
		TenantID: r.TenantID,
		EmailRef: r.EmailRef,
		Reason:   r.Reason,
		RuleID:   r.RuleID,
		Priority: r.Priority,
	}
	if r.CreatedAt.Valid {
		record.CreatedAt = r.CreatedAt.Time
	}

	if len(r.TriggeredRules) > 0 {
		var rules []domain.TriggeredRule
		if err := json.Unmarshal(r.TriggeredRules, &rules); err == nil {
			record.TriggeredRules = rules
		}
	}
	if len(r.Results) > 0 {
		var results []domain.ActionResult
		if err := json.Unmarshal(r.Results, &results); err == nil {
			record.Results = results
		}
	}

	return record
}

// Insert appends one escalation record.
func (a *EscalationAdapter) Insert(ctx context.Context, record *domain.EscalationRecord) (int64, error) {
	rulesJSON, err := json.Marshal(record.TriggeredRules)
	if err != nil {
		rulesJSON = []byte("[]")
	}
	resultsJSON, err := json.Marshal(record.Results)
	if err != nil {
		resultsJSON = []byte("[]")
	}

	query := `
		INSERT INTO escalation_log (
			id, tenant_id, email_ref, reason, rule_id,
			priority, triggered_rules, results
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		RETURNING id
	`

	var id int64
	err = a.db.QueryRowxContext(ctx, query,
		record.ID,
		record.TenantID,
		record.EmailRef,
		record.Reason,
		record.RuleID,
		record.Priority,
		rulesJSON,
		resultsJSON,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListByTenant returns records created at or after since, newest
// first.
func (a *EscalationAdapter) ListByTenant(ctx context.Context, tenantID uuid.UUID, since time.Time, limit int) ([]*domain.EscalationRecord, error) {
	query := `
		SELECT id, tenant_id, email_ref, reason, rule_id,
		       priority, triggered_rules, results, created_at
		FROM escalation_log
		WHERE tenant_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	var rows []escalationRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID, since, limit); err != nil {
		return nil, err
	}

	records := make([]*domain.EscalationRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toDomain()
	}
	return records, nil
}

// CountSince counts records created at or after since.
func (a *EscalationAdapter) CountSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM escalation_log WHERE tenant_id = $1 AND created_at >= $2`

	var count int64
	if err := a.db.GetContext(ctx, &count, query, tenantID, since); err != nil {
		return 0, err
	}
	return count, nil
}

// Compile-time interface check
var _ out.EscalationRepository = (*EscalationAdapter)(nil)
