package response

import (
	"context"
	"errors"
	"testing"

	"pipeline_server/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeTemplateRepo struct {
	templates []*domain.ResponseTemplate
	err       error
}

func (f *fakeTemplateRepo) ListByTenant(_ context.Context, _ uuid.UUID) ([]*domain.ResponseTemplate, error) {
	return f.templates, f.err
}

func (f *fakeTemplateRepo) GetByCategory(_ context.Context, _ uuid.UUID, category string) ([]*domain.ResponseTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.ResponseTemplate
	for _, t := range f.templates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetDefault(_ context.Context, _ uuid.UUID) (*domain.ResponseTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.templates {
		if t.IsDefault {
			return t, nil
		}
	}
	return nil, nil
}

func TestApplyTemplate_Substitution(t *testing.T) {
	tmpl := &domain.ResponseTemplate{
		ID:   1,
		Body: "Dear customer,\n\n{response}\n\nBest,\n{{business_name}}",
	}
	got := ApplyTemplate("Your appointment is confirmed.", tmpl, map[string]string{
		"business_name": "Acme Plumbing",
	})
	want := "Dear customer,\n\nYour appointment is confirmed.\n\nBest,\nAcme Plumbing"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyTemplate_SingleBracePlaceholders(t *testing.T) {
	tmpl := &domain.ResponseTemplate{Body: "{greeting} {response}"}
	got := ApplyTemplate("text", tmpl, map[string]string{"greeting": "Hello!"})
	if got != "Hello! text" {
		t.Errorf("got %q", got)
	}
}

func TestApplyTemplate_UnmatchedPlaceholdersKept(t *testing.T) {
	tmpl := &domain.ResponseTemplate{Body: "{response} -- {{unknown_token}} stays"}
	got := ApplyTemplate("x", tmpl, nil)
	if got != "x -- {{unknown_token}} stays" {
		t.Errorf("unmatched placeholder must stay as-is, got %q", got)
	}
}

func TestApplyTemplate_NilTemplate(t *testing.T) {
	if got := ApplyTemplate("unchanged", nil, nil); got != "unchanged" {
		t.Errorf("got %q", got)
	}
}

func TestApply_SelectionOrder(t *testing.T) {
	tenant := uuid.New()
	ctx := context.Background()

	categoryTmpl := &domain.ResponseTemplate{ID: 1, Category: "inquiry", Body: "category: {response}"}
	defaultTmpl := &domain.ResponseTemplate{ID: 2, Category: "other", IsDefault: true, Body: "default: {response}"}
	firstTmpl := &domain.ResponseTemplate{ID: 3, Category: "misc", Body: "first: {response}"}

	tests := []struct {
		name      string
		templates []*domain.ResponseTemplate
		category  string
		want      string
		wantID    int64
	}{
		{"category match wins", []*domain.ResponseTemplate{defaultTmpl, categoryTmpl}, "inquiry", "category: r", 1},
		{"default when no category match", []*domain.ResponseTemplate{firstTmpl, defaultTmpl}, "inquiry", "default: r", 2},
		{"first available as last resort", []*domain.ResponseTemplate{firstTmpl}, "inquiry", "first: r", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewTemplateEngine(&fakeTemplateRepo{templates: tt.templates}, zerolog.Nop())
			got, id := eng.Apply(ctx, tenant, tt.category, "r", nil)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if id == nil || *id != tt.wantID {
				t.Errorf("template id = %v, want %d", id, tt.wantID)
			}
		})
	}
}

func TestApply_NoTemplatesReturnsInput(t *testing.T) {
	eng := NewTemplateEngine(&fakeTemplateRepo{}, zerolog.Nop())
	got, id := eng.Apply(context.Background(), uuid.New(), "inquiry", "raw reply", nil)
	if got != "raw reply" {
		t.Errorf("got %q, want input unchanged", got)
	}
	if id != nil {
		t.Errorf("template id = %v, want nil", id)
	}
}

func TestApply_RepoErrorReturnsInput(t *testing.T) {
	eng := NewTemplateEngine(&fakeTemplateRepo{err: errors.New("db down")}, zerolog.Nop())
	got, _ := eng.Apply(context.Background(), uuid.New(), "inquiry", "raw reply", nil)
	if got != "raw reply" {
		t.Errorf("got %q, want input unchanged on error", got)
	}
}
