// Package escalation executes the actions of triggered business rules
// and keeps the append-only escalation audit log.
package escalation

import (
	"context"
	"fmt"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/core/service/rules"
	"pipeline_server/pkg/apperr"
	"pipeline_server/pkg/snowflake"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Responder produces an immediate reply for actions that demand one.
// The response service satisfies this.
type Responder interface {
	Generate(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification) (*domain.GeneratedResponse, error)
}

// PriorityBooster raises queue priority for an email. The queue
// service satisfies this.
type PriorityBooster interface {
	BoostPriority(ctx context.Context, tenantID uuid.UUID, emailRef string, priority int) error
}

// boostedPriority is what high_priority raises pending items to.
const boostedPriority = 90

type actionHandler func(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification, rule domain.TriggeredRule) (string, error)

// Engine runs escalation actions. Every triggered rule's action is
// attempted; individual failures are recorded in the audit log and
// never abort the run.
type Engine struct {
	escalationRepo out.EscalationRepository
	rulesEngine    *rules.Engine
	notifier       out.Notifier
	responder      Responder
	booster        PriorityBooster
	handlers       map[domain.ActionKind]actionHandler
	log            zerolog.Logger
	now            func() time.Time
}

// NewEngine creates an escalation engine. responder and booster may be
// nil; actions needing them then fail individually without aborting
// the run.
func NewEngine(
	escalationRepo out.EscalationRepository,
	rulesEngine *rules.Engine,
	notifier out.Notifier,
	responder Responder,
	booster PriorityBooster,
	log zerolog.Logger,
) *Engine {
	e := &Engine{
		escalationRepo: escalationRepo,
		rulesEngine:    rulesEngine,
		notifier:       notifier,
		responder:      responder,
		booster:        booster,
		log:            log.With().Str("component", "escalation").Logger(),
		now:            time.Now,
	}
	e.handlers = map[domain.ActionKind]actionHandler{
		domain.ActionEscalate:          e.handleEscalate,
		domain.ActionNotifyManager:     e.notifyHandler("manager_alert"),
		domain.ActionCreateTicket:      e.notifyHandler("ticket"),
		domain.ActionSendSMS:           e.notifyHandler("sms"),
		domain.ActionCallCustomer:      e.notifyHandler("callback_request"),
		domain.ActionHighPriority:      e.handleHighPriority,
		domain.ActionImmediateResponse: e.handleImmediateResponse,
		domain.ActionAutoReply:         e.handleImmediateResponse,
	}
	return e
}

// ProcessEscalation evaluates the tenant's rules against the
// classification and executes every triggered action. With zero
// triggered rules nothing is executed and nothing is written.
func (e *Engine) ProcessEscalation(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification, routing *domain.RoutingDecision) (*domain.EscalationResult, error) {
	triggered, err := e.rulesEngine.Evaluate(ctx, email, tenantID, classification)
	if err != nil {
		return nil, err
	}
	return e.ProcessWithRules(ctx, tenantID, email, classification, routing, triggered)
}

// ProcessWithRules executes the already-evaluated triggered rules.
// Used by the pipeline orchestrator, which evaluates rules once and
// shares the result.
func (e *Engine) ProcessWithRules(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification, routing *domain.RoutingDecision, triggered []domain.TriggeredRule) (*domain.EscalationResult, error) {
	if len(triggered) == 0 {
		return &domain.EscalationResult{Escalated: false}, nil
	}

	results := e.execute(ctx, tenantID, email, classification, triggered)

	priority := 50
	if routing != nil {
		priority = routing.Priority
	}
	record := &domain.EscalationRecord{
		ID:             snowflake.ID(),
		TenantID:       tenantID,
		EmailRef:       email.ID,
		Reason:         escalationReason(triggered),
		RuleID:         triggered[0].RuleID,
		Priority:       priority,
		TriggeredRules: triggered,
		Results:        results,
		CreatedAt:      e.now(),
	}
	recordID, err := e.escalationRepo.Insert(ctx, record)
	if err != nil {
		// Actions already fired; the caller still gets the outcome and
		// the missing audit row is an operator concern.
		e.log.Error().
			Str("tenant_id", tenantID.String()).
			Str("email_id", email.ID).
			Err(err).
			Msg("escalation record insert failed, actions already executed")
		return &domain.EscalationResult{
			Escalated:      true,
			TriggeredRules: triggered,
			Results:        results,
		}, nil
	}

	e.log.Info().
		Str("tenant_id", tenantID.String()).
		Str("email_id", email.ID).
		Int("triggered", len(triggered)).
		Int64("record_id", recordID).
		Msg("escalation processed")

	return &domain.EscalationResult{
		Escalated:      true,
		TriggeredRules: triggered,
		Results:        results,
		RecordID:       recordID,
	}, nil
}

// ProcessManual escalates an email on explicit request. The run goes
// through the same executor and audit log as rule-driven escalations,
// under the pseudo-rule id "manual".
func (e *Engine) ProcessManual(ctx context.Context, tenantID uuid.UUID, email *domain.Email, reason string, priority int) (*domain.EscalationResult, error) {
	if email == nil || !email.HasRequiredFields() {
		return nil, apperr.ValidationFailed("email requires from and subject")
	}
	if reason == "" {
		reason = "manually escalated"
	}
	manual := domain.TriggeredRule{
		RuleID:      "manual",
		Condition:   domain.ConditionAllEmails,
		Action:      string(domain.ActionEscalate),
		Priority:    priority,
		Description: reason,
	}
	// the caller's priority lands on the audit record via the routing slot
	var routing *domain.RoutingDecision
	if priority > 0 {
		routing = &domain.RoutingDecision{Priority: priority, Escalate: true}
	}
	return e.ProcessWithRules(ctx, tenantID, email, domain.DefaultClassification(), routing, []domain.TriggeredRule{manual})
}

// execute runs every action sequentially. Panics and errors in one
// handler become a failed ActionResult for that rule only.
func (e *Engine) execute(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification, triggered []domain.TriggeredRule) []domain.ActionResult {
	results := make([]domain.ActionResult, 0, len(triggered))
	for _, rule := range triggered {
		start := e.now()
		kind := domain.ParseActionKind(rule.Action)

		var details string
		var err error
		if handler, ok := e.handlers[kind]; ok {
			details, err = handler(ctx, tenantID, email, classification, rule)
		} else {
			err = apperr.UnknownAction(rule.Action)
		}

		result := domain.ActionResult{
			Action:   rule.Action,
			RuleID:   rule.RuleID,
			Success:  err == nil,
			Details:  details,
			Duration: e.now().Sub(start).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			e.log.Warn().
				Str("tenant_id", tenantID.String()).
				Str("rule_id", rule.RuleID).
				Str("action", rule.Action).
				Err(err).
				Msg("escalation action failed")
		}
		results = append(results, result)
	}
	return results
}

// =============================================================================
// Action handlers
// =============================================================================

func (e *Engine) handleEscalate(_ context.Context, _ uuid.UUID, email *domain.Email, _ *domain.Classification, rule domain.TriggeredRule) (string, error) {
	return fmt.Sprintf("email %s flagged for human handling", email.ID), nil
}

// notifyHandler builds a handler sending one notification type through
// the configured channel.
func (e *Engine) notifyHandler(notifyType string) actionHandler {
	return func(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification, rule domain.TriggeredRule) (string, error) {
		if e.notifier == nil {
			return "", apperr.ExternalError("notifier", fmt.Errorf("no notification channel configured"))
		}
		payload := map[string]any{
			"email_id": email.ID,
			"from":     email.From,
			"subject":  email.Subject,
			"rule_id":  rule.RuleID,
			"category": string(classification.Category),
			"urgency":  string(classification.Urgency),
		}
		res := e.notifier.Send(ctx, tenantID, notifyType, payload)
		if !res.Success {
			return "", apperr.ExternalError("notifier", fmt.Errorf("%s delivery failed: %s", notifyType, res.Error))
		}
		return fmt.Sprintf("%s notification sent", notifyType), nil
	}
}

func (e *Engine) handleHighPriority(ctx context.Context, tenantID uuid.UUID, email *domain.Email, _ *domain.Classification, _ domain.TriggeredRule) (string, error) {
	if e.booster == nil {
		return "", apperr.Internal("queue priority boost unavailable")
	}
	if err := e.booster.BoostPriority(ctx, tenantID, email.ID, boostedPriority); err != nil {
		return "", err
	}
	return fmt.Sprintf("queue priority raised to %d", boostedPriority), nil
}

func (e *Engine) handleImmediateResponse(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification, _ domain.TriggeredRule) (string, error) {
	if e.responder == nil {
		return "", apperr.Internal("response generation unavailable")
	}
	resp, err := e.responder.Generate(ctx, tenantID, email, classification)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("response drafted (%d chars)", len(resp.Text)), nil
}

// escalationReason summarizes why the run happened.
func escalationReason(triggered []domain.TriggeredRule) string {
	if len(triggered) == 1 && triggered[0].Description != "" {
		return triggered[0].Description
	}
	return fmt.Sprintf("%d business rule(s) triggered", len(triggered))
}
