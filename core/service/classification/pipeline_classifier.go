// Package classification implements the email intent classifier.
//
// Strategies are tried in order until one succeeds:
//
//	Stage 0: AI service     → structured prompt, strict JSON response
//	Stage 1: Keyword rules  → deterministic pattern scoring
//	Stage 2: Default        → general/normal, confidence 25
//
// The chain never fails: classify always returns a usable result.
package classification

import (
	"context"

	"pipeline_server/core/domain"

	"github.com/rs/zerolog"
)

// Strategy is one classification approach. A strategy returns an error
// to hand the email to the next strategy in the chain.
type Strategy interface {
	// Name returns the strategy name (for logging and the method field).
	Name() string

	// Classify attempts to classify the email.
	Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error)
}

// Classifier runs the ordered strategy chain.
type Classifier struct {
	strategies []Strategy
	log        zerolog.Logger
}

// NewClassifier creates a classifier from an ordered strategy list.
// A nil or empty list still yields a working classifier that always
// returns the default classification.
func NewClassifier(log zerolog.Logger, strategies ...Strategy) *Classifier {
	active := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Classifier{
		strategies: active,
		log:        log.With().Str("component", "classifier").Logger(),
	}
}

// Classify runs the email through the strategy chain. It never returns
// an error; total failure yields the default classification.
func (c *Classifier) Classify(ctx context.Context, email *domain.Email) *domain.Classification {
	for _, s := range c.strategies {
		result, err := s.Classify(ctx, email)
		if err != nil {
			c.log.Warn().
				Err(err).
				Str("strategy", s.Name()).
				Str("email_id", email.ID).
				Msg("classification strategy failed, trying next")
			continue
		}
		if result == nil {
			continue
		}
		normalize(result)
		return result
	}

	return domain.DefaultClassification()
}

// normalize enforces the classification invariants: category always a
// known enum value, confidence always defined and within 0-100.
func normalize(c *domain.Classification) {
	c.Category = domain.ParseCategory(string(c.Category))
	c.Urgency = domain.ParseUrgency(string(c.Urgency))
	c.Sentiment = domain.ParseSentiment(string(c.Sentiment))
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 100 {
		c.Confidence = 100
	}
	c.RequiresResponse = requiresResponse(c)
}

// requiresResponse applies the fixed response policy.
func requiresResponse(c *domain.Classification) bool {
	if c.Urgency == domain.UrgencyHigh || c.Urgency == domain.UrgencyCritical {
		return true
	}
	switch c.Category {
	case domain.CategoryComplaint, domain.CategoryInquiry, domain.CategoryAppointment:
		return true
	}
	return false
}
