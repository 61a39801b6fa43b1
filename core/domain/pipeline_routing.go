package domain

// RouteAction is the single primary action chosen for an email.
type RouteAction string

const (
	RouteAutoReply         RouteAction = "auto_reply"
	RouteEscalate          RouteAction = "escalate"
	RouteQueueForReview    RouteAction = "queue_for_review"
	RouteNotifyImmediately RouteAction = "notify_immediately"
)

// RoutingDecision combines the chosen action with its urgency window.
// Priority is an integer where higher means more urgent.
type RoutingDecision struct {
	Action                 RouteAction `json:"action"`
	Priority               int         `json:"priority"`
	AutoReply              bool        `json:"auto_reply"`
	Escalate               bool        `json:"escalate"`
	NotifyImmediately      bool        `json:"notify_immediately"`
	MaxResponseTimeMinutes int         `json:"max_response_time_minutes"`
	RoutingReason          string      `json:"routing_reason"`
}
