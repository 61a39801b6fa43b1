package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConditionType selects which classification field a rule matches on.
type ConditionType string

const (
	ConditionCategory  ConditionType = "category"
	ConditionUrgency   ConditionType = "urgency"
	ConditionSentiment ConditionType = "sentiment"
	ConditionAllEmails ConditionType = "all_emails"
)

// ActionKind is the closed set of escalation actions a rule can map to.
// Unknown names parse to ActionUnknown; the escalation engine records
// those as failed-but-non-fatal instead of aborting sibling actions.
type ActionKind string

const (
	ActionEscalate          ActionKind = "escalate"
	ActionNotifyManager     ActionKind = "notify_manager"
	ActionHighPriority      ActionKind = "high_priority"
	ActionImmediateResponse ActionKind = "immediate_response"
	ActionCreateTicket      ActionKind = "create_ticket"
	ActionSendSMS           ActionKind = "send_sms"
	ActionCallCustomer      ActionKind = "call_customer"
	ActionAutoReply         ActionKind = "auto_reply"
	ActionUnknown           ActionKind = "unknown"
)

// ParseActionKind maps a configured action name to an ActionKind.
func ParseActionKind(s string) ActionKind {
	switch ActionKind(s) {
	case ActionEscalate, ActionNotifyManager, ActionHighPriority,
		ActionImmediateResponse, ActionCreateTicket, ActionSendSMS,
		ActionCallCustomer, ActionAutoReply:
		return ActionKind(s)
	}
	return ActionUnknown
}

// BusinessRule is a tenant-configured predicate over an email's
// classification. Rules are evaluated read-only; every match becomes a
// TriggeredRule and no rule short-circuits another.
type BusinessRule struct {
	ID          int64         `json:"id"`
	TenantID    uuid.UUID     `json:"tenant_id"`
	Name        string        `json:"name"`
	Condition   ConditionType `json:"condition"`
	Value       string        `json:"value,omitempty"` // exact-match target; unused for all_emails
	Action      string        `json:"action"`          // raw configured name, parsed at execution
	Priority    int           `json:"priority"`
	Description string        `json:"description,omitempty"`
	Enabled     bool          `json:"enabled"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Matches reports whether the rule condition holds for the given
// classification.
func (r *BusinessRule) Matches(c *Classification) bool {
	switch r.Condition {
	case ConditionAllEmails:
		return true
	case ConditionCategory:
		return string(c.Category) == r.Value
	case ConditionUrgency:
		return string(c.Urgency) == r.Value
	case ConditionSentiment:
		return string(c.Sentiment) == r.Value
	}
	return false
}

// TriggeredRule is the ephemeral result of one rule matching one email.
// RuleID is a string so the manual-escalation pseudo-rule ("manual")
// shares the same shape and audit trail as configured rules.
type TriggeredRule struct {
	RuleID      string        `json:"rule_id"`
	Condition   ConditionType `json:"condition"`
	Action      string        `json:"action"`
	Priority    int           `json:"priority"`
	Description string        `json:"description,omitempty"`
}
