package persistence

import (
	"context"
	"database/sql"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TemplateAdapter implements out.TemplateRepository using PostgreSQL.
type TemplateAdapter struct {
	db *sqlx.DB
}

// NewTemplateAdapter creates a new TemplateAdapter.
func NewTemplateAdapter(db *sqlx.DB) *TemplateAdapter {
	return &TemplateAdapter{db: db}
}

// templateRow represents the database row for response templates.
type templateRow struct {
	ID        int64        `db:"id"`
	TenantID  uuid.UUID    `db:"tenant_id"`
	Name      string       `db:"name"`
	Category  string       `db:"category"`
	Body      string       `db:"body"`
	IsDefault bool         `db:"is_default"`
	CreatedAt sql.NullTime `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (r *templateRow) toDomain() *domain.ResponseTemplate {
	tmpl := &domain.ResponseTemplate{
		ID:        r.ID,
		TenantID:  r.TenantID,
		Name:      r.Name,
		Category:  r.Category,
		Body:      r.Body,
		IsDefault: r.IsDefault,
	}
	if r.CreatedAt.Valid {
		tmpl.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		tmpl.UpdatedAt = r.UpdatedAt.Time
	}
	return tmpl
}

const templateColumns = `id, tenant_id, name, category, body, is_default, created_at, updated_at`

// ListByTenant returns all templates for a tenant in insertion order.
func (a *TemplateAdapter) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.ResponseTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM response_templates
		WHERE tenant_id = $1
		ORDER BY id ASC
	`

	var rows []templateRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, err
	}

	templates := make([]*domain.ResponseTemplate, len(rows))
	for i := range rows {
		templates[i] = rows[i].toDomain()
	}
	return templates, nil
}

// GetByCategory returns the tenant's templates for one category.
func (a *TemplateAdapter) GetByCategory(ctx context.Context, tenantID uuid.UUID, category string) ([]*domain.ResponseTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM response_templates
		WHERE tenant_id = $1 AND category = $2
		ORDER BY id ASC
	`

	var rows []templateRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID, category); err != nil {
		return nil, err
	}

	templates := make([]*domain.ResponseTemplate, len(rows))
	for i := range rows {
		templates[i] = rows[i].toDomain()
	}
	return templates, nil
}

// GetDefault returns the tenant's designated default template, or nil
// when none is marked.
func (a *TemplateAdapter) GetDefault(ctx context.Context, tenantID uuid.UUID) (*domain.ResponseTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM response_templates
		WHERE tenant_id = $1 AND is_default = TRUE
		ORDER BY id ASC
		LIMIT 1
	`

	var row templateRow
	err := a.db.GetContext(ctx, &row, query, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// Compile-time interface check
var _ out.TemplateRepository = (*TemplateAdapter)(nil)
