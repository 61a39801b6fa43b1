package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/core/service/classification"
	"pipeline_server/core/service/escalation"
	"pipeline_server/core/service/response"
	"pipeline_server/core/service/routing"
	"pipeline_server/core/service/rules"
	"pipeline_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func init() {
	if err := snowflake.Init(1); err != nil {
		panic(err)
	}
}

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeRuleRepo struct {
	rules []*domain.BusinessRule
	err   error
}

func (f *fakeRuleRepo) ListEnabledByTenant(_ context.Context, _ uuid.UUID) ([]*domain.BusinessRule, error) {
	return f.rules, f.err
}

type fakeEscalationRepo struct {
	records []*domain.EscalationRecord
}

func (f *fakeEscalationRepo) Insert(_ context.Context, record *domain.EscalationRecord) (int64, error) {
	f.records = append(f.records, record)
	return record.ID, nil
}

func (f *fakeEscalationRepo) ListByTenant(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]*domain.EscalationRecord, error) {
	return f.records, nil
}

func (f *fakeEscalationRepo) CountSince(_ context.Context, _ uuid.UUID, _ time.Time) (int64, error) {
	return int64(len(f.records)), nil
}

type fakeNotifier struct {
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, _ uuid.UUID, notifyType string, _ map[string]any) out.NotifyResult {
	f.sent = append(f.sent, notifyType)
	return out.NotifyResult{Success: true}
}

type fakeProfileRepo struct {
	profile *domain.StyleProfile
}

func (f *fakeProfileRepo) GetByTenant(_ context.Context, _ uuid.UUID) (*domain.StyleProfile, error) {
	return f.profile, nil
}

type fakeGeneration struct {
	text string
	err  error
}

func (f *fakeGeneration) GenerateReply(_ context.Context, _ *domain.Email, _ domain.EmailCategory, _ *domain.StyleProfile, _ map[string]string) (string, error) {
	return f.text, f.err
}

type fakeTemplateRepo struct {
	templates []*domain.ResponseTemplate
}

func (f *fakeTemplateRepo) ListByTenant(_ context.Context, _ uuid.UUID) ([]*domain.ResponseTemplate, error) {
	return f.templates, nil
}

func (f *fakeTemplateRepo) GetByCategory(_ context.Context, _ uuid.UUID, category string) ([]*domain.ResponseTemplate, error) {
	var out []*domain.ResponseTemplate
	for _, t := range f.templates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetDefault(_ context.Context, _ uuid.UUID) (*domain.ResponseTemplate, error) {
	for _, t := range f.templates {
		if t.IsDefault {
			return t, nil
		}
	}
	return nil, nil
}

type fixture struct {
	orch           *Orchestrator
	escalationRepo *fakeEscalationRepo
	notifier       *fakeNotifier
}

func newFixture(ruleRepo *fakeRuleRepo, profile *domain.StyleProfile, gen *fakeGeneration, templates []*domain.ResponseTemplate) *fixture {
	log := zerolog.Nop()

	classifier := classification.NewClassifier(log, classification.NewKeywordStrategy())
	rulesEngine := rules.NewEngine(ruleRepo, log)
	router := routing.NewRouter(log)

	var genSvc out.GenerationService
	if gen != nil {
		genSvc = gen
	}
	generator := response.NewGenerator(&fakeProfileRepo{profile: profile}, nil, genSvc, log)
	templateEngine := response.NewTemplateEngine(&fakeTemplateRepo{templates: templates}, log)

	escalationRepo := &fakeEscalationRepo{}
	notifier := &fakeNotifier{}
	escalationEngine := escalation.NewEngine(escalationRepo, rulesEngine, notifier, generator, nil, log)

	return &fixture{
		orch:           NewOrchestrator(classifier, rulesEngine, router, escalationEngine, generator, templateEngine, log),
		escalationRepo: escalationRepo,
		notifier:       notifier,
	}
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestProcessEmail_UrgentScenario(t *testing.T) {
	fx := newFixture(&fakeRuleRepo{}, nil, nil, nil)

	email := &domain.Email{
		ID:      "em-urgent",
		From:    "customer@example.com",
		Subject: "URGENT: pipe burst",
		Body:    "water everywhere, need help now",
	}
	result, err := fx.orch.ProcessEmail(context.Background(), uuid.New(), email, nil)
	if err != nil {
		t.Fatalf("ProcessEmail: %v", err)
	}
	if result.Classification.Category != domain.CategoryUrgent {
		t.Errorf("category = %s, want urgent", result.Classification.Category)
	}
	if result.Classification.Urgency != domain.UrgencyCritical {
		t.Errorf("urgency = %s, want critical", result.Classification.Urgency)
	}
	if !result.Routing.NotifyImmediately {
		t.Error("critical email must set NotifyImmediately")
	}
	if result.Routing.Priority < 90 {
		t.Errorf("priority = %d, want >= 90", result.Routing.Priority)
	}
	if result.Pipeline != domain.PipelineFull {
		t.Errorf("pipeline = %s, want full", result.Pipeline)
	}
}

func TestProcessEmail_PricingScenario(t *testing.T) {
	fx := newFixture(&fakeRuleRepo{}, nil, nil, nil)

	email := &domain.Email{
		ID:      "em-pricing",
		From:    "customer@example.com",
		Subject: "Question about pricing",
		Body:    "what is your hourly rate?",
	}
	result, err := fx.orch.ProcessEmail(context.Background(), uuid.New(), email, nil)
	if err != nil {
		t.Fatalf("ProcessEmail: %v", err)
	}
	if result.Classification.Category != domain.CategoryInquiry {
		t.Errorf("category = %s, want inquiry", result.Classification.Category)
	}
	if result.Routing.Action != domain.RouteAutoReply {
		t.Errorf("route = %s, want auto_reply", result.Routing.Action)
	}
	if result.Response == nil || result.Response.Text == "" {
		t.Fatal("auto_reply route must produce a non-empty response")
	}
	// no style profile: the generator's template fallback carried it
	if result.Response.StyleApplied {
		t.Error("styleApplied must be false without a profile")
	}
	if !result.Response.FallbackUsed {
		t.Error("fallbackUsed must be true without a profile")
	}
}

func TestProcessEmail_StyledReplyWithTemplate(t *testing.T) {
	tenant := uuid.New()
	profile := &domain.StyleProfile{TenantID: tenant, Tone: "friendly", Confidence: 80}
	gen := &fakeGeneration{text: "Our rate is $95/hr."}
	templates := []*domain.ResponseTemplate{
		{ID: 7, Category: "inquiry", Body: "Hi!\n{response}\n- {{business_name}}"},
	}
	fx := newFixture(&fakeRuleRepo{}, profile, gen, templates)

	email := &domain.Email{
		ID:      "em-1",
		From:    "customer@example.com",
		Subject: "pricing question",
		Body:    "how much is an estimate?",
	}
	result, err := fx.orch.ProcessEmail(context.Background(), tenant, email, map[string]string{"business_name": "Acme"})
	if err != nil {
		t.Fatalf("ProcessEmail: %v", err)
	}
	if result.Response == nil {
		t.Fatal("expected a response")
	}
	want := "Hi!\nOur rate is $95/hr.\n- Acme"
	if result.Response.Text != want {
		t.Errorf("text = %q, want %q", result.Response.Text, want)
	}
	if result.Response.TemplateID == nil || *result.Response.TemplateID != 7 {
		t.Errorf("template id = %v, want 7", result.Response.TemplateID)
	}
	if !result.Response.StyleApplied {
		t.Error("expected StyleApplied")
	}
}

func TestProcessEmail_ComplaintEscalatesAndAudits(t *testing.T) {
	tenant := uuid.New()
	ruleRepo := &fakeRuleRepo{rules: []*domain.BusinessRule{
		{ID: 1, TenantID: tenant, Condition: domain.ConditionCategory, Value: "complaint", Action: "notify_manager", Priority: 1, Enabled: true},
	}}
	fx := newFixture(ruleRepo, nil, nil, nil)

	email := &domain.Email{
		ID:      "em-complaint",
		From:    "angry@example.com",
		Subject: "complaint about poor service",
		Body:    "this is unacceptable, I want a refund",
	}
	result, err := fx.orch.ProcessEmail(context.Background(), tenant, email, nil)
	if err != nil {
		t.Fatalf("ProcessEmail: %v", err)
	}
	if result.Classification.Category != domain.CategoryComplaint {
		t.Fatalf("category = %s, want complaint", result.Classification.Category)
	}
	if !result.Routing.Escalate {
		t.Error("complaint must escalate")
	}
	if result.Escalation == nil || !result.Escalation.Escalated {
		t.Fatal("escalation result must be present and escalated")
	}
	if len(result.TriggeredRules) != 1 || result.TriggeredRules[0].RuleID != "1" {
		t.Errorf("triggered = %+v", result.TriggeredRules)
	}
	if len(fx.notifier.sent) != 1 || fx.notifier.sent[0] != "manager_alert" {
		t.Errorf("notifications = %v", fx.notifier.sent)
	}
	if len(fx.escalationRepo.records) != 1 {
		t.Errorf("audit records = %d, want 1", len(fx.escalationRepo.records))
	}
}

func TestProcessEmail_EscalateWithoutRules(t *testing.T) {
	fx := newFixture(&fakeRuleRepo{}, nil, nil, nil)

	email := &domain.Email{
		ID:      "em-complaint",
		From:    "angry@example.com",
		Subject: "complaint",
		Body:    "very disappointed",
	}
	result, err := fx.orch.ProcessEmail(context.Background(), uuid.New(), email, nil)
	if err != nil {
		t.Fatalf("ProcessEmail: %v", err)
	}
	// routing says escalate but no rules triggered: no side effects,
	// escalated=false
	if result.Escalation == nil {
		t.Fatal("escalation stage must still run")
	}
	if result.Escalation.Escalated {
		t.Error("zero triggered rules must not escalate")
	}
	if len(fx.escalationRepo.records) != 0 {
		t.Error("no audit record without triggered rules")
	}
}

func TestProcessEmail_RuleEvaluationFailureDegrades(t *testing.T) {
	fx := newFixture(&fakeRuleRepo{err: errors.New("db down")}, nil, nil, nil)

	email := &domain.Email{
		ID:      "em-1",
		From:    "customer@example.com",
		Subject: "pricing question",
		Body:    "how much?",
	}
	result, err := fx.orch.ProcessEmail(context.Background(), uuid.New(), email, nil)
	if err != nil {
		t.Fatalf("rule failure must not sink the pipeline, got %v", err)
	}
	if result.Classification == nil || result.Routing == nil {
		t.Error("classification and routing must still be produced")
	}
	if len(result.TriggeredRules) != 0 {
		t.Errorf("triggered = %+v, want none", result.TriggeredRules)
	}
}

func TestProcessEmail_RejectsInvalidInput(t *testing.T) {
	fx := newFixture(&fakeRuleRepo{}, nil, nil, nil)

	_, err := fx.orch.ProcessEmail(context.Background(), uuid.New(), &domain.Email{ID: "x", Body: "no headers"}, nil)
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestProcessBatch_BadEmailDoesNotSinkBatch(t *testing.T) {
	fx := newFixture(&fakeRuleRepo{}, nil, nil, nil)

	emails := []*domain.Email{
		{ID: "ok-1", From: "a@b.com", Subject: "question about pricing", Body: "quote please"},
		{ID: "bad", Body: "missing headers"},
		{ID: "ok-2", From: "c@d.com", Subject: "hello", Body: "hi there"},
	}
	results := fx.orch.ProcessBatch(context.Background(), uuid.New(), emails, nil)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results[1].Pipeline != domain.PipelineFallback {
		t.Errorf("bad email pipeline = %s, want fallback", results[1].Pipeline)
	}
	if results[0].Classification.Category != domain.CategoryInquiry {
		t.Errorf("first email category = %s", results[0].Classification.Category)
	}
	if results[2].Pipeline != domain.PipelineFull {
		t.Errorf("third email pipeline = %s, want full", results[2].Pipeline)
	}
}
