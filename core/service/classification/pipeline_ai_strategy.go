package classification

import (
	"context"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"
	"pipeline_server/pkg/apperr"
)

// =============================================================================
// AI Strategy (Stage 0)
// =============================================================================

// AIStrategy delegates to the external classification service. Any
// provider failure (network, timeout, unparsable JSON) is returned as
// an error so the chain falls through to the keyword scorer.
type AIStrategy struct {
	svc out.ClassificationService
}

// NewAIStrategy creates the AI strategy. A nil service yields a nil
// strategy, which the classifier chain skips.
func NewAIStrategy(svc out.ClassificationService) *AIStrategy {
	if svc == nil {
		return nil
	}
	return &AIStrategy{svc: svc}
}

// Name returns the strategy name.
func (s *AIStrategy) Name() string {
	return string(domain.MethodAI)
}

// Classify calls the external service and sanity-checks its output.
func (s *AIStrategy) Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error) {
	result, err := s.svc.Classify(ctx, email)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, apperr.ExternalError("classification", nil)
	}
	result.Method = domain.MethodAI
	return result, nil
}
