package domain

import (
	"strings"
	"time"
)

// Email is the immutable inbound message handed to the pipeline.
// The pipeline never mutates an Email, it only annotates copies of
// derived data (classification, routing, results).
type Email struct {
	ID                string         `json:"id"`
	From              string         `json:"from"`
	To                string         `json:"to"`
	Subject           string         `json:"subject"`
	Body              string         `json:"body"`
	ReceivedAt        time.Time      `json:"received_at"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// Content returns the lower-cased subject+body concatenation used by
// the keyword classifier and the fallback template selector.
func (e *Email) Content() string {
	return strings.ToLower(e.Subject + " " + e.Body)
}

// HasRequiredFields reports whether the email carries the fields the
// queue requires before accepting it.
func (e *Email) HasRequiredFields() bool {
	return strings.TrimSpace(e.From) != "" && strings.TrimSpace(e.Subject) != ""
}
