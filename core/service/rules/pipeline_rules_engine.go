// Package rules implements the tenant business-rules engine.
package rules

import (
	"context"
	"sort"
	"strconv"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine evaluates tenant-configured business rules against an email's
// classification. Evaluation is read-only: neither the email nor the
// classification is mutated.
type Engine struct {
	ruleRepo out.RuleRepository
	log      zerolog.Logger
}

// NewEngine creates a rules engine.
func NewEngine(ruleRepo out.RuleRepository, log zerolog.Logger) *Engine {
	return &Engine{
		ruleRepo: ruleRepo,
		log:      log.With().Str("component", "rules_engine").Logger(),
	}
}

// Evaluate returns every matching rule as a TriggeredRule, ordered by
// ascending configured priority, then rule insertion order as the
// tie-break. No rule short-circuits another: all matches are collected.
func (e *Engine) Evaluate(ctx context.Context, email *domain.Email, tenantID uuid.UUID, classification *domain.Classification) ([]domain.TriggeredRule, error) {
	rules, err := e.ruleRepo.ListEnabledByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	// Stable sort keeps insertion order for equal priorities regardless
	// of how the repository returned them.
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})

	var triggered []domain.TriggeredRule
	for _, rule := range rules {
		if !rule.Matches(classification) {
			continue
		}
		triggered = append(triggered, domain.TriggeredRule{
			RuleID:      strconv.FormatInt(rule.ID, 10),
			Condition:   rule.Condition,
			Action:      rule.Action,
			Priority:    rule.Priority,
			Description: rule.Description,
		})
	}

	if len(triggered) > 0 {
		e.log.Debug().
			Str("tenant_id", tenantID.String()).
			Str("email_id", email.ID).
			Int("triggered", len(triggered)).
			Msg("business rules triggered")
	}

	return triggered, nil
}
