package response

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pipeline_server/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type fakeProfileRepo struct {
	profile *domain.StyleProfile
	err     error
	calls   int
}

func (f *fakeProfileRepo) GetByTenant(_ context.Context, _ uuid.UUID) (*domain.StyleProfile, error) {
	f.calls++
	return f.profile, f.err
}

type fakeGeneration struct {
	text  string
	err   error
	calls int
}

func (f *fakeGeneration) GenerateReply(_ context.Context, _ *domain.Email, _ domain.EmailCategory, _ *domain.StyleProfile, _ map[string]string) (string, error) {
	f.calls++
	return f.text, f.err
}

type memoryCache struct {
	profiles map[uuid.UUID]*domain.StyleProfile
}

func (m *memoryCache) GetStats(_ context.Context, _ uuid.UUID, _ string) (*domain.PipelineStats, bool) {
	return nil, false
}

func (m *memoryCache) SetStats(_ context.Context, _ uuid.UUID, _ string, _ *domain.PipelineStats, _ time.Duration) {
}

func (m *memoryCache) GetStyleProfile(_ context.Context, tenantID uuid.UUID) (*domain.StyleProfile, bool) {
	p, ok := m.profiles[tenantID]
	return p, ok
}

func (m *memoryCache) SetStyleProfile(_ context.Context, tenantID uuid.UUID, profile *domain.StyleProfile, _ time.Duration) {
	if m.profiles == nil {
		m.profiles = map[uuid.UUID]*domain.StyleProfile{}
	}
	m.profiles[tenantID] = profile
}

func testProfile(tenantID uuid.UUID) *domain.StyleProfile {
	return &domain.StyleProfile{
		TenantID:         tenantID,
		Tone:             "friendly",
		Formality:        "casual",
		SignaturePhrases: []string{"happy to help"},
		AvgEmailLength:   120,
		Confidence:       85,
	}
}

func inquiryEmail() *domain.Email {
	return &domain.Email{
		ID:      "em-1",
		From:    "customer@example.com",
		Subject: "Question about pricing",
		Body:    "what is your hourly rate?",
	}
}

func TestGenerateResponse_StyleApplied(t *testing.T) {
	tenant := uuid.New()
	gen := &fakeGeneration{text: "Hi! Our hourly rate is on our site. Happy to help!"}
	g := NewGenerator(&fakeProfileRepo{profile: testProfile(tenant)}, nil, gen, zerolog.Nop())

	resp, err := g.GenerateResponse(context.Background(), tenant, inquiryEmail(), domain.CategoryInquiry, nil)
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if !resp.StyleApplied {
		t.Error("expected StyleApplied")
	}
	if resp.FallbackUsed {
		t.Error("fallback must not be marked on success")
	}
	if resp.Confidence != 85 {
		t.Errorf("confidence = %d, want profile confidence 85", resp.Confidence)
	}
	if resp.Text != gen.text {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestGenerateResponse_NoProfileFallsBack(t *testing.T) {
	gen := &fakeGeneration{text: "should not be used"}
	g := NewGenerator(&fakeProfileRepo{}, nil, gen, zerolog.Nop())

	resp, err := g.GenerateResponse(context.Background(), uuid.New(), inquiryEmail(), domain.CategoryInquiry, nil)
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if gen.calls != 0 {
		t.Error("generation must not be called without a profile")
	}
	if resp.StyleApplied || !resp.FallbackUsed {
		t.Errorf("want fallback, got styleApplied=%v fallbackUsed=%v", resp.StyleApplied, resp.FallbackUsed)
	}
	if resp.Text == "" {
		t.Error("fallback text must be non-empty")
	}
}

func TestGenerateResponse_GenerationFailureFallsBack(t *testing.T) {
	tenant := uuid.New()
	gen := &fakeGeneration{err: errors.New("quota exceeded")}
	g := NewGenerator(&fakeProfileRepo{profile: testProfile(tenant)}, nil, gen, zerolog.Nop())

	resp, err := g.GenerateResponse(context.Background(), tenant, inquiryEmail(), domain.CategoryInquiry, nil)
	if err != nil {
		t.Fatalf("failure must not propagate, got %v", err)
	}
	if resp.StyleApplied {
		t.Error("styleApplied must be false on fallback")
	}
	if !resp.FallbackUsed {
		t.Error("fallbackUsed must be true")
	}
	if resp.Text == "" {
		t.Error("fallback text must be non-empty")
	}
}

func TestGenerateResponse_EmptyGenerationFallsBack(t *testing.T) {
	tenant := uuid.New()
	g := NewGenerator(&fakeProfileRepo{profile: testProfile(tenant)}, nil, &fakeGeneration{text: "   "}, zerolog.Nop())

	resp, _ := g.GenerateResponse(context.Background(), tenant, inquiryEmail(), domain.CategoryInquiry, nil)
	if !resp.FallbackUsed {
		t.Error("blank generated text must fall back")
	}
}

func TestFallback_KeywordSniff(t *testing.T) {
	g := NewGenerator(&fakeProfileRepo{}, nil, nil, zerolog.Nop())

	tests := []struct {
		name     string
		subject  string
		body     string
		contains string
	}{
		{"inquiry keywords", "pricing question", "how much does it cost?", "inquiry"},
		{"complaint keywords", "very unhappy", "I want a refund", "concerns"},
		{"appointment keywords", "booking request", "can I schedule a visit?", "scheduling"},
		{"no keywords", "hello", "just saying hi", "received it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := g.GenerateResponse(context.Background(), uuid.New(), &domain.Email{
				ID: "e", From: "a@b.com", Subject: tt.subject, Body: tt.body,
			}, domain.CategoryGeneral, nil)
			if err != nil {
				t.Fatalf("GenerateResponse: %v", err)
			}
			if !strings.Contains(strings.ToLower(resp.Text), tt.contains) {
				t.Errorf("text %q should contain %q", resp.Text, tt.contains)
			}
		})
	}
}

func TestGenerateMultipleOptions_VariationMarkers(t *testing.T) {
	tenant := uuid.New()
	g := NewGenerator(&fakeProfileRepo{profile: testProfile(tenant)}, nil, &fakeGeneration{text: "reply"}, zerolog.Nop())

	options, err := g.GenerateMultipleOptions(context.Background(), tenant, inquiryEmail(), domain.CategoryInquiry, nil, 3)
	if err != nil {
		t.Fatalf("GenerateMultipleOptions: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("options = %d, want 3", len(options))
	}
	for i, opt := range options {
		if opt.Variation != i+1 {
			t.Errorf("option %d variation = %d, want %d", i, opt.Variation, i+1)
		}
	}
}

func TestLoadProfile_CacheHitSkipsRepo(t *testing.T) {
	tenant := uuid.New()
	repo := &fakeProfileRepo{profile: testProfile(tenant)}
	cache := &memoryCache{}
	g := NewGenerator(repo, cache, &fakeGeneration{text: "reply"}, zerolog.Nop())

	// first call populates the cache
	if _, err := g.GenerateResponse(context.Background(), tenant, inquiryEmail(), domain.CategoryInquiry, nil); err != nil {
		t.Fatal(err)
	}
	if repo.calls != 1 {
		t.Fatalf("repo calls = %d, want 1", repo.calls)
	}

	// second call is served from cache
	if _, err := g.GenerateResponse(context.Background(), tenant, inquiryEmail(), domain.CategoryInquiry, nil); err != nil {
		t.Fatal(err)
	}
	if repo.calls != 1 {
		t.Errorf("repo calls = %d, want cache to absorb the second read", repo.calls)
	}
}

func TestLoadProfile_RepoErrorFallsBack(t *testing.T) {
	g := NewGenerator(&fakeProfileRepo{err: errors.New("db down")}, nil, &fakeGeneration{text: "reply"}, zerolog.Nop())
	resp, err := g.GenerateResponse(context.Background(), uuid.New(), inquiryEmail(), domain.CategoryInquiry, nil)
	if err != nil {
		t.Fatalf("profile read failure must not propagate, got %v", err)
	}
	if !resp.FallbackUsed {
		t.Error("expected fallback when profile read fails")
	}
}
