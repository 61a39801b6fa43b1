package classification

import (
	"context"
	"strings"

	"pipeline_server/core/domain"
)

// =============================================================================
// Keyword Strategy (deterministic fallback scorer)
// =============================================================================

// patternSet is one category's keyword patterns. Declaration order is
// the tie-break order: the earliest-declared category wins ties.
type patternSet struct {
	category domain.EmailCategory
	patterns []string
}

// categoryPatterns are the five fixed pattern sets. Matching is a
// case-insensitive substring test against subject+body.
var categoryPatterns = []patternSet{
	{domain.CategoryUrgent, []string{
		"urgent", "emergency", "asap", "immediately", "right away",
		"as soon as possible", "critical", "need help", "help now",
		"pipe burst", "burst pipe", "flooding", "no power", "not working",
	}},
	{domain.CategoryAppointment, []string{
		"appointment", "schedule", "booking", "book a", "reschedule",
		"available", "availability", "calendar", "meet", "visit",
		"time slot", "come out", "come by",
	}},
	{domain.CategoryComplaint, []string{
		"complaint", "unhappy", "disappointed", "unacceptable", "refund",
		"terrible", "awful", "worst", "poor service", "never again",
		"wrong", "mistake", "damaged", "still not fixed",
	}},
	{domain.CategoryInquiry, []string{
		"question", "pricing", "price", "quote", "estimate", "how much",
		"hourly rate", "rate", "cost", "interested in", "inquiry",
		"information", "do you offer", "do you provide",
	}},
	{domain.CategoryFollowup, []string{
		"follow up", "following up", "followup", "checking in",
		"any update", "status update", "heard back", "touching base",
		"re:", "as discussed", "per our",
	}},
}

var positiveWords = []string{
	"thank", "thanks", "great", "appreciate", "happy", "excellent",
	"love", "wonderful", "perfect", "pleased",
}

var negativeWords = []string{
	"unhappy", "angry", "frustrated", "disappointed", "terrible",
	"awful", "unacceptable", "worst", "hate", "annoyed", "upset",
}

// KeywordStrategy is the deterministic rule-based scorer used when the
// AI classification service is unavailable or returns garbage.
type KeywordStrategy struct{}

// NewKeywordStrategy creates the keyword strategy.
func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

// Name returns the strategy name.
func (s *KeywordStrategy) Name() string {
	return string(domain.MethodRules)
}

// Classify scores the email against the fixed pattern sets. When no
// pattern matches at all it defers to the default strategy by returning
// the default classification directly (still a usable result).
func (s *KeywordStrategy) Classify(ctx context.Context, email *domain.Email) (*domain.Classification, error) {
	content := email.Content()

	type scored struct {
		set     patternSet
		hits    []string
		order   int
		matches int
	}

	all := make([]scored, 0, len(categoryPatterns))
	for i, set := range categoryPatterns {
		hits := matchPatterns(content, set.patterns)
		all = append(all, scored{set: set, hits: hits, order: i, matches: len(hits)})
	}

	// Highest match count wins; ties favor the earliest-declared set.
	best := all[0]
	for _, candidate := range all[1:] {
		if candidate.matches > best.matches {
			best = candidate
		}
	}

	if best.matches == 0 {
		return domain.DefaultClassification(), nil
	}

	urgentHits := all[0].hits
	category := best.set.category

	c := &domain.Classification{
		Category:   category,
		Urgency:    deriveUrgency(category, len(urgentHits)),
		Confidence: confidenceScore(best.matches),
		Sentiment:  deriveSentiment(content),
		Keywords:   collectKeywords(all[0].hits, best.hits),
		Method:     domain.MethodRules,
		Reasoning:  "keyword pattern scoring: " + string(category),
	}
	return c, nil
}

// matchPatterns returns the distinct patterns found in content,
// preserving pattern declaration order.
func matchPatterns(content string, patterns []string) []string {
	var hits []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		if strings.Contains(content, p) {
			hits = append(hits, p)
			seen[p] = true
		}
	}
	return hits
}

// deriveUrgency applies the fixed urgency policy. Two or more distinct
// urgent hits (or an urgent category) mean critical; a single hit or a
// complaint means high.
func deriveUrgency(category domain.EmailCategory, urgentHits int) domain.Urgency {
	switch {
	case urgentHits >= 2 || category == domain.CategoryUrgent:
		return domain.UrgencyCritical
	case urgentHits == 1:
		return domain.UrgencyHigh
	case category == domain.CategoryComplaint:
		return domain.UrgencyHigh
	default:
		return domain.UrgencyNormal
	}
}

// deriveSentiment tallies positive vs negative words; ties are neutral.
func deriveSentiment(content string) domain.Sentiment {
	pos := len(matchPatterns(content, positiveWords))
	neg := len(matchPatterns(content, negativeWords))
	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// confidenceScore is the coarse heuristic min(matchCount*20, 100). It
// is an opaque score for threshold comparisons, not a probability.
func confidenceScore(matches int) int {
	score := matches * 20
	if score > 100 {
		score = 100
	}
	return score
}

// collectKeywords merges urgent hits and winning-category hits into a
// deduplicated, relevance-ranked list (urgent signals first).
func collectKeywords(urgentHits, categoryHits []string) []string {
	seen := make(map[string]bool)
	var keywords []string
	for _, group := range [][]string{urgentHits, categoryHits} {
		for _, k := range group {
			if !seen[k] {
				seen[k] = true
				keywords = append(keywords, k)
			}
		}
	}
	if len(keywords) > 10 {
		keywords = keywords[:10]
	}
	return keywords
}
