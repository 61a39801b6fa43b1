package persistence

import (
	"context"
	"database/sql"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// RuleAdapter implements out.RuleRepository using PostgreSQL.
type RuleAdapter struct {
	db *sqlx.DB
}

// NewRuleAdapter creates a new RuleAdapter.
func NewRuleAdapter(db *sqlx.DB) *RuleAdapter {
	return &RuleAdapter{db: db}
}

// ruleRow represents the database row for business rules.
type ruleRow struct {
	ID          int64          `db:"id"`
	TenantID    uuid.UUID      `db:"tenant_id"`
	Name        string         `db:"name"`
	Condition   string         `db:"condition"`
	Value       sql.NullString `db:"value"`
	Action      string         `db:"action"`
	Priority    int            `db:"priority"`
	Description sql.NullString `db:"description"`
	Enabled     bool           `db:"enabled"`
	CreatedAt   sql.NullTime   `db:"created_at"`
}

func (r *ruleRow) toDomain() *domain.BusinessRule {
	rule := &domain.BusinessRule{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Name:      r.Name,
		Condition: domain.ConditionType(r.Condition),
		Action:    r.Action,
		Priority:  r.Priority,
		Enabled:   r.Enabled,
	}
	if r.Value.Valid {
		rule.Value = r.Value.String
	}
	if r.Description.Valid {
		rule.Description = r.Description.String
	}
	if r.CreatedAt.Valid {
		rule.CreatedAt = r.CreatedAt.Time
	}
	return rule
}

// ListEnabledByTenant returns enabled rules ordered by priority
// ascending, then insertion order.
func (a *RuleAdapter) ListEnabledByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.BusinessRule, error) {
	query := `
		SELECT id, tenant_id, name, condition, value, action,
		       priority, description, enabled, created_at
		FROM business_rules
		WHERE tenant_id = $1 AND enabled = TRUE
		ORDER BY priority ASC, id ASC
	`

	var rows []ruleRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	rules := make([]*domain.BusinessRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].toDomain()
	}
	return rules, nil
}

// Compile-time interface check
var _ out.RuleRepository = (*RuleAdapter)(nil)
