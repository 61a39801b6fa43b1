package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionResult captures the outcome of executing one escalation action.
// Failures are recorded, never propagated; a broken notification channel
// must not block its siblings.
type ActionResult struct {
	Action   string `json:"action"`
	RuleID   string `json:"rule_id"`
	Success  bool   `json:"success"`
	Details  string `json:"details,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration_ms"`
}

// EscalationRecord is the append-only audit entry summarizing one
// escalation run: every triggered rule and every per-action result.
// Records are never mutated after creation.
type EscalationRecord struct {
	ID             int64           `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	EmailRef       string          `json:"email_ref"`
	Reason         string          `json:"reason"`
	RuleID         string          `json:"rule_id"`
	Priority       int             `json:"priority"`
	TriggeredRules []TriggeredRule `json:"triggered_rules"`
	Results        []ActionResult  `json:"results"`
	CreatedAt      time.Time       `json:"created_at"`
}

// EscalationResult is returned to callers of the escalation engine.
type EscalationResult struct {
	Escalated      bool            `json:"escalated"`
	TriggeredRules []TriggeredRule `json:"triggered_rules,omitempty"`
	Results        []ActionResult  `json:"results,omitempty"`
	RecordID       int64           `json:"record_id,omitempty"`
}
