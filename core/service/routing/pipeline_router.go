// Package routing turns a classification into a routing decision.
package routing

import (
	"context"

	"pipeline_server/core/domain"

	"github.com/rs/zerolog"
)

// Router maps classifications onto routing decisions using a fixed,
// ordered rule list. It never fails: any classification yields exactly
// one decision, and the last rule always matches.
type Router struct {
	log zerolog.Logger
}

// NewRouter creates a router.
func NewRouter(log zerolog.Logger) *Router {
	return &Router{log: log.With().Str("component", "router").Logger()}
}

// routeRule is one entry in the decision table. First match wins.
type routeRule struct {
	name    string
	matches func(c *domain.Classification) bool
	decide  func() *domain.RoutingDecision
}

var routeRules = []routeRule{
	{
		name: "critical urgency",
		matches: func(c *domain.Classification) bool {
			return c.Urgency == domain.UrgencyCritical
		},
		decide: func() *domain.RoutingDecision {
			return &domain.RoutingDecision{
				Action:                 domain.RouteNotifyImmediately,
				Priority:               95,
				Escalate:               true,
				NotifyImmediately:      true,
				MaxResponseTimeMinutes: 15,
				RoutingReason:          "critical urgency requires immediate attention",
			}
		},
	},
	{
		name: "complaint",
		matches: func(c *domain.Classification) bool {
			return c.Category == domain.CategoryComplaint
		},
		decide: func() *domain.RoutingDecision {
			return &domain.RoutingDecision{
				Action:                 domain.RouteEscalate,
				Priority:               80,
				Escalate:               true,
				MaxResponseTimeMinutes: 60,
				RoutingReason:          "complaints always go to a human",
			}
		},
	},
	{
		name: "high urgency",
		matches: func(c *domain.Classification) bool {
			return c.Urgency == domain.UrgencyHigh
		},
		decide: func() *domain.RoutingDecision {
			return &domain.RoutingDecision{
				Action:                 domain.RouteEscalate,
				Priority:               75,
				Escalate:               true,
				MaxResponseTimeMinutes: 120,
				RoutingReason:          "high urgency needs a fast human response",
			}
		},
	},
	{
		name: "routine inquiry or appointment",
		matches: func(c *domain.Classification) bool {
			return (c.Category == domain.CategoryInquiry || c.Category == domain.CategoryAppointment) &&
				c.Urgency == domain.UrgencyNormal
		},
		decide: func() *domain.RoutingDecision {
			return &domain.RoutingDecision{
				Action:                 domain.RouteAutoReply,
				Priority:               60,
				AutoReply:              true,
				MaxResponseTimeMinutes: 240,
				RoutingReason:          "routine request eligible for an automatic reply",
			}
		},
	},
	{
		name: "default",
		matches: func(c *domain.Classification) bool {
			return true
		},
		decide: func() *domain.RoutingDecision {
			return &domain.RoutingDecision{
				Action:                 domain.RouteQueueForReview,
				Priority:               50,
				MaxResponseTimeMinutes: 1440,
				RoutingReason:          "no specific route matched, queued for review",
			}
		},
	},
}

// Route returns the decision for a classification. A nil
// classification routes like the default classification.
func (r *Router) Route(ctx context.Context, c *domain.Classification) *domain.RoutingDecision {
	if c == nil {
		c = domain.DefaultClassification()
	}

	for _, rule := range routeRules {
		if !rule.matches(c) {
			continue
		}
		d := rule.decide()
		r.log.Debug().
			Str("rule", rule.name).
			Str("category", string(c.Category)).
			Str("urgency", string(c.Urgency)).
			Str("action", string(d.Action)).
			Int("priority", d.Priority).
			Msg("email routed")
		return d
	}

	// Unreachable: the default rule matches everything.
	return routeRules[len(routeRules)-1].decide()
}
