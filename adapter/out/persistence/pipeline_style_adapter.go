package persistence

import (
	"context"
	"database/sql"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// StyleProfileAdapter implements out.StyleProfileRepository using
// PostgreSQL. Profiles are written by an external analysis job; this
// adapter is read-only.
type StyleProfileAdapter struct {
	db *sqlx.DB
}

// NewStyleProfileAdapter creates a new StyleProfileAdapter.
func NewStyleProfileAdapter(db *sqlx.DB) *StyleProfileAdapter {
	return &StyleProfileAdapter{db: db}
}

// styleProfileRow represents the database row for style profiles.
type styleProfileRow struct {
	TenantID           uuid.UUID      `db:"tenant_id"`
	Tone               string         `db:"tone"`
	Formality          string         `db:"formality"`
	SignaturePhrases   pq.StringArray `db:"signature_phrases"`
	VocabularyPatterns pq.StringArray `db:"vocabulary_patterns"`
	AvgEmailLength     int            `db:"avg_email_length"`
	Confidence         int            `db:"confidence"`
	UpdatedAt          sql.NullTime   `db:"updated_at"`
}

func (r *styleProfileRow) toDomain() *domain.StyleProfile {
	profile := &domain.StyleProfile{
		TenantID:           r.TenantID,
		Tone:               r.Tone,
		Formality:          r.Formality,
		SignaturePhrases:   r.SignaturePhrases,
		VocabularyPatterns: r.VocabularyPatterns,
		AvgEmailLength:     r.AvgEmailLength,
		Confidence:         r.Confidence,
	}
	if r.UpdatedAt.Valid {
		profile.UpdatedAt = r.UpdatedAt.Time
	}
	return profile
}

// GetByTenant returns the tenant's style profile, or nil when none
// exists.
func (a *StyleProfileAdapter) GetByTenant(ctx context.Context, tenantID uuid.UUID) (*domain.StyleProfile, error) {
	query := `
		SELECT tenant_id, tone, formality, signature_phrases,
		       vocabulary_patterns, avg_email_length, confidence, updated_at
		FROM style_profiles
		WHERE tenant_id = $1
	`

	var row styleProfileRow
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
var _ out.StyleProfileRepository = (*StyleProfileAdapter)(nil)
