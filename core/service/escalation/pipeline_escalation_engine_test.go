package escalation

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
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

type fakeEscalationRepo struct {
	records []*domain.EscalationRecord
	fail    bool
}

func (f *fakeEscalationRepo) Insert(_ context.Context, record *domain.EscalationRecord) (int64, error) {
	if f.fail {
		return 0, errors.New("db down")
	}
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
	sent []string // notify types, in order
	fail bool
}

func (f *fakeNotifier) Send(_ context.Context, _ uuid.UUID, notifyType string, _ map[string]any) out.NotifyResult {
	f.sent = append(f.sent, notifyType)
	if f.fail {
		return out.NotifyResult{Success: false, Error: "webhook unreachable"}
	}
	return out.NotifyResult{Success: true}
}

type fakeResponder struct {
	calls int
	fail  bool
}

func (f *fakeResponder) Generate(_ context.Context, _ uuid.UUID, _ *domain.Email, _ *domain.Classification) (*domain.GeneratedResponse, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("generation failed")
	}
	return &domain.GeneratedResponse{Text: "thanks for reaching out"}, nil
}

type fakeBooster struct {
	boosts map[string]int
}

func (f *fakeBooster) BoostPriority(_ context.Context, _ uuid.UUID, emailRef string, priority int) error {
	if f.boosts == nil {
		f.boosts = map[string]int{}
	}
	f.boosts[emailRef] = priority
	return nil
}

type staticRuleRepo struct {
	rules []*domain.BusinessRule
}

func (s *staticRuleRepo) ListEnabledByTenant(_ context.Context, _ uuid.UUID) ([]*domain.BusinessRule, error) {
	return s.rules, nil
}

func newTestEngine(repo *fakeEscalationRepo, ruleRepo out.RuleRepository, notifier out.Notifier, responder Responder, booster PriorityBooster) *Engine {
	return NewEngine(repo, rules.NewEngine(ruleRepo, zerolog.Nop()), notifier, responder, booster, zerolog.Nop())
}

func triggered(ruleID, action string) domain.TriggeredRule {
	return domain.TriggeredRule{
		RuleID:    ruleID,
		Condition: domain.ConditionAllEmails,
		Action:    action,
		Priority:  1,
	}
}

func testEmail() *domain.Email {
	return &domain.Email{
		ID:      "em-1",
		From:    "angry@example.com",
		Subject: "this is unacceptable",
		Body:    "still not fixed",
	}
}

func TestProcessWithRules_NoRulesNoRecord(t *testing.T) {
	repo := &fakeEscalationRepo{}
	eng := newTestEngine(repo, &staticRuleRepo{}, &fakeNotifier{}, nil, nil)

	res, err := eng.ProcessWithRules(context.Background(), uuid.New(), testEmail(), domain.DefaultClassification(), nil, nil)
	if err != nil {
		t.Fatalf("ProcessWithRules: %v", err)
	}
	if res.Escalated {
		t.Error("no triggered rules must not escalate")
	}
	if len(repo.records) != 0 {
		t.Errorf("no record should be written, got %d", len(repo.records))
	}
}

func TestProcessWithRules_ExecutesEveryAction(t *testing.T) {
	repo := &fakeEscalationRepo{}
	notifier := &fakeNotifier{}
	responder := &fakeResponder{}
	booster := &fakeBooster{}
	eng := newTestEngine(repo, &staticRuleRepo{}, notifier, responder, booster)

	rulesIn := []domain.TriggeredRule{
		triggered("1", "escalate"),
		triggered("2", "notify_manager"),
		triggered("3", "create_ticket"),
		triggered("4", "send_sms"),
		triggered("5", "call_customer"),
		triggered("6", "high_priority"),
		triggered("7", "immediate_response"),
	}
	res, err := eng.ProcessWithRules(context.Background(), uuid.New(), testEmail(), domain.DefaultClassification(), &domain.RoutingDecision{Priority: 80}, rulesIn)
	if err != nil {
		t.Fatalf("ProcessWithRules: %v", err)
	}
	if !res.Escalated {
		t.Fatal("expected escalated=true")
	}
	if len(res.Results) != len(rulesIn) {
		t.Fatalf("results = %d, want %d", len(res.Results), len(rulesIn))
	}
	for _, r := range res.Results {
		if !r.Success {
			t.Errorf("action %s (rule %s) failed: %s", r.Action, r.RuleID, r.Error)
		}
	}

	wantNotify := []string{"manager_alert", "ticket", "sms", "callback_request"}
	if len(notifier.sent) != len(wantNotify) {
		t.Fatalf("notifications = %v, want %v", notifier.sent, wantNotify)
	}
	for i := range wantNotify {
		if notifier.sent[i] != wantNotify[i] {
			t.Errorf("notification[%d] = %s, want %s", i, notifier.sent[i], wantNotify[i])
		}
	}
	if responder.calls != 1 {
		t.Errorf("responder calls = %d, want 1", responder.calls)
	}
	if booster.boosts["em-1"] != boostedPriority {
		t.Errorf("boosted priority = %d, want %d", booster.boosts["em-1"], boostedPriority)
	}
	if len(repo.records) != 1 {
		t.Fatalf("records = %d, want 1", len(repo.records))
	}
	if repo.records[0].Priority != 80 {
		t.Errorf("record priority = %d, want 80", repo.records[0].Priority)
	}
}

func TestProcessWithRules_FailureDoesNotBlockSiblings(t *testing.T) {
	repo := &fakeEscalationRepo{}
	notifier := &fakeNotifier{fail: true}
	eng := newTestEngine(repo, &staticRuleRepo{}, notifier, &fakeResponder{}, &fakeBooster{})

	rulesIn := []domain.TriggeredRule{
		triggered("1", "notify_manager"),
		triggered("2", "escalate"),
	}
	res, err := eng.ProcessWithRules(context.Background(), uuid.New(), testEmail(), domain.DefaultClassification(), nil, rulesIn)
	if err != nil {
		t.Fatalf("ProcessWithRules: %v", err)
	}
	if res.Results[0].Success {
		t.Error("failed notification must be recorded as failed")
	}
	if res.Results[0].Error == "" {
		t.Error("failed action must carry an error message")
	}
	if !res.Results[1].Success {
		t.Error("sibling action must still run and succeed")
	}
	if len(repo.records) != 1 {
		t.Error("audit record must still be written")
	}
}

func TestProcessWithRules_UnknownActionRecorded(t *testing.T) {
	repo := &fakeEscalationRepo{}
	eng := newTestEngine(repo, &staticRuleRepo{}, &fakeNotifier{}, nil, nil)

	res, err := eng.ProcessWithRules(context.Background(), uuid.New(), testEmail(), domain.DefaultClassification(), nil, []domain.TriggeredRule{
		triggered("1", "page_the_ceo"),
		triggered("2", "escalate"),
	})
	if err != nil {
		t.Fatalf("ProcessWithRules: %v", err)
	}
	if res.Results[0].Success {
		t.Error("unknown action must fail")
	}
	if res.Results[0].Action != "page_the_ceo" {
		t.Errorf("action = %s", res.Results[0].Action)
	}
	if !res.Results[1].Success {
		t.Error("known sibling action must succeed")
	}
}

func TestProcessEscalation_EvaluatesRules(t *testing.T) {
	repo := &fakeEscalationRepo{}
	tenant := uuid.New()
	ruleRepo := &staticRuleRepo{rules: []*domain.BusinessRule{
		{ID: 1, TenantID: tenant, Condition: domain.ConditionCategory, Value: "complaint", Action: "notify_manager", Priority: 1, Enabled: true},
		{ID: 2, TenantID: tenant, Condition: domain.ConditionCategory, Value: "inquiry", Action: "send_sms", Priority: 2, Enabled: true},
	}}
	notifier := &fakeNotifier{}
	eng := newTestEngine(repo, ruleRepo, notifier, nil, nil)

	c := &domain.Classification{Category: domain.CategoryComplaint, Urgency: domain.UrgencyNormal, Sentiment: domain.SentimentNegative}
	res, err := eng.ProcessEscalation(context.Background(), tenant, testEmail(), c, &domain.RoutingDecision{Priority: 80})
	if err != nil {
		t.Fatalf("ProcessEscalation: %v", err)
	}
	if !res.Escalated {
		t.Fatal("matching rule must escalate")
	}
	if len(res.TriggeredRules) != 1 || res.TriggeredRules[0].RuleID != "1" {
		t.Errorf("triggered = %+v, want only rule 1", res.TriggeredRules)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "manager_alert" {
		t.Errorf("notifications = %v", notifier.sent)
	}
}

func TestProcessManual_UsesPseudoRule(t *testing.T) {
	repo := &fakeEscalationRepo{}
	eng := newTestEngine(repo, &staticRuleRepo{}, &fakeNotifier{}, nil, nil)

	res, err := eng.ProcessManual(context.Background(), uuid.New(), testEmail(), "customer called twice", 85)
	if err != nil {
		t.Fatalf("ProcessManual: %v", err)
	}
	if !res.Escalated {
		t.Fatal("manual escalation must escalate")
	}
	if len(res.TriggeredRules) != 1 || res.TriggeredRules[0].RuleID != "manual" {
		t.Errorf("triggered = %+v, want pseudo-rule manual", res.TriggeredRules)
	}
	if len(repo.records) != 1 {
		t.Fatal("manual escalation must be audited")
	}
	if repo.records[0].Reason != "customer called twice" {
		t.Errorf("reason = %q", repo.records[0].Reason)
	}
	if repo.records[0].Priority != 85 {
		t.Errorf("priority = %d, want 85", repo.records[0].Priority)
	}
}

func TestProcessManual_RequiresEmailFields(t *testing.T) {
	eng := newTestEngine(&fakeEscalationRepo{}, &staticRuleRepo{}, &fakeNotifier{}, nil, nil)
	_, err := eng.ProcessManual(context.Background(), uuid.New(), &domain.Email{ID: "x"}, "because", 0)
	if err == nil {
		t.Fatal("expected validation error for email without from/subject")
	}
}

func TestProcessWithRules_RecordInsertFailureKeepsOutcome(t *testing.T) {
	repo := &fakeEscalationRepo{fail: true}
	notifier := &fakeNotifier{}
	eng := newTestEngine(repo, &staticRuleRepo{}, notifier, nil, nil)

	res, err := eng.ProcessWithRules(context.Background(), uuid.New(), testEmail(), domain.DefaultClassification(), nil, []domain.TriggeredRule{
		triggered("1", "notify_manager"),
	})
	if err != nil {
		t.Fatalf("a lost audit row must not fail the escalation, got %v", err)
	}
	if !res.Escalated {
		t.Error("actions already ran, result must report escalated")
	}
	if len(res.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(res.Results))
	}
	if res.RecordID != 0 {
		t.Errorf("record id = %d, want 0 when the insert failed", res.RecordID)
	}
	if len(notifier.sent) == 0 {
		t.Error("notify action should have fired before the insert")
	}
}
