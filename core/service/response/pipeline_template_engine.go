package response

import (
	"context"
	"strings"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TemplateEngine wraps a generated reply in the tenant's outbound
// template. Substitution is literal string replacement only; unmatched
// placeholders stay in place.
type TemplateEngine struct {
	templates out.TemplateRepository
	log       zerolog.Logger
}

// NewTemplateEngine creates a template engine.
func NewTemplateEngine(templates out.TemplateRepository, log zerolog.Logger) *TemplateEngine {
	return &TemplateEngine{
		templates: templates,
		log:       log.With().Str("component", "template_engine").Logger(),
	}
}

// Apply selects the tenant's best template for the category and
// substitutes the reply into it. Missing templates or a failing read
// leave the reply unchanged.
func (t *TemplateEngine) Apply(ctx context.Context, tenantID uuid.UUID, category string, responseText string, businessContext map[string]string) (string, *int64) {
	tmpl := t.selectTemplate(ctx, tenantID, category)
	if tmpl == nil {
		return responseText, nil
	}
	return ApplyTemplate(responseText, tmpl, businessContext), &tmpl.ID
}

// selectTemplate prefers a category match, then the designated
// default, then the first available template.
func (t *TemplateEngine) selectTemplate(ctx context.Context, tenantID uuid.UUID, category string) *domain.ResponseTemplate {
	if t.templates == nil {
		return nil
	}

	byCategory, err := t.templates.GetByCategory(ctx, tenantID, category)
	if err != nil {
		t.log.Warn().Str("tenant_id", tenantID.String()).Err(err).Msg("template lookup failed")
		return nil
	}
	if len(byCategory) > 0 {
		return byCategory[0]
	}

	def, err := t.templates.GetDefault(ctx, tenantID)
	if err == nil && def != nil {
		return def
	}

	all, err := t.templates.ListByTenant(ctx, tenantID)
	if err != nil || len(all) == 0 {
		return nil
	}
	return all[0]
}

// ApplyTemplate substitutes the reply and business variables into the
// template body. {response} receives the reply text; every context key
// is replaced in both {key} and {{key}} forms. No conditionals, no
// loops, no escaping.
func ApplyTemplate(responseText string, tmpl *domain.ResponseTemplate, businessContext map[string]string) string {
	if tmpl == nil || tmpl.Body == "" {
		return responseText
	}
	result := strings.ReplaceAll(tmpl.Body, "{response}", responseText)
	for key, value := range businessContext {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
