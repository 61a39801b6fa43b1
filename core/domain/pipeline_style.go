package domain

import (
	"time"

	"github.com/google/uuid"
)

// StyleProfile is a tenant's learned communication fingerprint. It is
// maintained by an external analysis job and consumed read-only by the
// response generator.
type StyleProfile struct {
	TenantID           uuid.UUID `json:"tenant_id"`
	Tone               string    `json:"tone"`      // e.g. "friendly", "professional"
	Formality          string    `json:"formality"` // e.g. "casual", "formal"
	SignaturePhrases   []string  `json:"signature_phrases,omitempty"`
	VocabularyPatterns []string  `json:"vocabulary_patterns,omitempty"`
	AvgEmailLength     int       `json:"avg_email_length"`
	Confidence         int       `json:"confidence"` // 0-100
	UpdatedAt          time.Time `json:"updated_at"`
}

// TopSignaturePhrases returns at most n signature phrases, preserving
// their learned relevance order.
func (p *StyleProfile) TopSignaturePhrases(n int) []string {
	if len(p.SignaturePhrases) <= n {
		return p.SignaturePhrases
	}
	return p.SignaturePhrases[:n]
}
