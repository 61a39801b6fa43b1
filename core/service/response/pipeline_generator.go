// Package response composes reply text: style-aware generation with a
// deterministic template fallback, then outbound template application.
package response

import (
	"context"
	"strings"
	"time"

	"pipeline_server/core/domain"
	"pipeline_server/core/port/out"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// generatedConfidence applies when a reply was generated without a
	// usable profile confidence.
	generatedConfidence = 70
	// fallbackConfidence marks template-based replies.
	fallbackConfidence = 30

	styleProfileTTL = 10 * time.Minute
)

// Generator produces candidate replies. When the tenant has a style
// profile and the generation service is reachable, replies are
// personalized; otherwise a fixed category template is used. The
// caller always receives usable text.
type Generator struct {
	profiles   out.StyleProfileRepository
	cache      out.StatsCache
	generation out.GenerationService
	log        zerolog.Logger
}

// NewGenerator creates a generator. generation and cache may be nil;
// the fallback path then carries everything.
func NewGenerator(profiles out.StyleProfileRepository, cache out.StatsCache, generation out.GenerationService, log zerolog.Logger) *Generator {
	return &Generator{
		profiles:   profiles,
		cache:      cache,
		generation: generation,
		log:        log.With().Str("component", "response_generator").Logger(),
	}
}

// GenerateResponse produces one reply for the email. Generation
// failures of any kind fall through to the template fallback.
func (g *Generator) GenerateResponse(ctx context.Context, tenantID uuid.UUID, email *domain.Email, category domain.EmailCategory, businessContext map[string]string) (*domain.GeneratedResponse, error) {
	profile := g.loadProfile(ctx, tenantID)
	if profile == nil || g.generation == nil {
		return g.fallback(email), nil
	}

	text, err := g.generation.GenerateReply(ctx, email, category, profile, businessContext)
	if err != nil || strings.TrimSpace(text) == "" {
		g.log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("email_id", email.ID).
			Err(err).
			Msg("reply generation failed, using template fallback")
		return g.fallback(email), nil
	}

	confidence := profile.Confidence
	if confidence <= 0 {
		confidence = generatedConfidence
	}
	return &domain.GeneratedResponse{
		Text:         text,
		StyleApplied: true,
		Confidence:   confidence,
	}, nil
}

// Generate adapts GenerateResponse for callers holding a full
// classification, such as escalation actions requesting an immediate
// reply.
func (g *Generator) Generate(ctx context.Context, tenantID uuid.UUID, email *domain.Email, classification *domain.Classification) (*domain.GeneratedResponse, error) {
	category := domain.CategoryGeneral
	if classification != nil {
		category = classification.Category
	}
	return g.GenerateResponse(ctx, tenantID, email, category, nil)
}

// GenerateMultipleOptions runs the full generation n times, tagging
// each result with its variation number. Options are independent;
// duplicates are possible.
func (g *Generator) GenerateMultipleOptions(ctx context.Context, tenantID uuid.UUID, email *domain.Email, category domain.EmailCategory, businessContext map[string]string, n int) ([]*domain.GeneratedResponse, error) {
	if n < 1 {
		n = 1
	}
	options := make([]*domain.GeneratedResponse, 0, n)
	for i := 1; i <= n; i++ {
		resp, err := g.GenerateResponse(ctx, tenantID, email, category, businessContext)
		if err != nil {
			return nil, err
		}
		resp.Variation = i
		options = append(options, resp)
	}
	return options, nil
}

// loadProfile reads the tenant's style profile through the cache. Any
// failure is treated as "no profile".
func (g *Generator) loadProfile(ctx context.Context, tenantID uuid.UUID) *domain.StyleProfile {
	if g.cache != nil {
		if profile, ok := g.cache.GetStyleProfile(ctx, tenantID); ok {
			return profile
		}
	}
	if g.profiles == nil {
		return nil
	}
	profile, err := g.profiles.GetByTenant(ctx, tenantID)
	if err != nil {
		g.log.Warn().
			Str("tenant_id", tenantID.String()).
			Err(err).
			Msg("style profile load failed")
		return nil
	}
	if profile != nil && g.cache != nil {
		g.cache.SetStyleProfile(ctx, tenantID, profile, styleProfileTTL)
	}
	return profile
}

// =============================================================================
// Template fallback
// =============================================================================

// fallbackTemplates are the fixed generic replies used when
// personalization is unavailable. Selection is by keyword sniffing the
// email content, not by the classifier's category.
var fallbackTemplates = map[domain.EmailCategory]string{
	domain.CategoryInquiry: "Thank you for reaching out! We received your inquiry and will get back to you " +
		"with details shortly. If your request is time-sensitive, please let us know.",
	domain.CategoryComplaint: "Thank you for bringing this to our attention. We take your concerns seriously " +
		"and a member of our team will follow up with you as soon as possible to make this right.",
	domain.CategoryAppointment: "Thank you for contacting us about scheduling. We received your request and " +
		"will confirm a time with you shortly.",
	domain.CategoryGeneral: "Thank you for your message. We have received it and will respond as soon as we can.",
}

var fallbackSniff = []struct {
	category domain.EmailCategory
	keywords []string
}{
	{domain.CategoryComplaint, []string{"complaint", "unhappy", "disappointed", "refund", "unacceptable", "wrong", "damaged"}},
	{domain.CategoryAppointment, []string{"appointment", "schedule", "booking", "reschedule", "availability", "time slot"}},
	{domain.CategoryInquiry, []string{"question", "price", "pricing", "quote", "estimate", "how much", "cost", "rate"}},
}

func (g *Generator) fallback(email *domain.Email) *domain.GeneratedResponse {
	content := email.Content()
	category := domain.CategoryGeneral
	for _, s := range fallbackSniff {
		for _, kw := range s.keywords {
			if strings.Contains(content, kw) {
				category = s.category
				break
			}
		}
		if category != domain.CategoryGeneral {
			break
		}
	}
	return &domain.GeneratedResponse{
		Text:         fallbackTemplates[category],
		StyleApplied: false,
		Confidence:   fallbackConfidence,
		FallbackUsed: true,
	}
}
