package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResponseTemplate is a tenant-configured outbound template. The body
// may contain literal placeholder tokens such as {response} and
// {{business_name}} substituted by the template engine.
type ResponseTemplate struct {
	ID        int64     `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Body      string    `json:"body"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GeneratedResponse is the candidate reply produced for one email.
type GeneratedResponse struct {
	Text         string `json:"text"`
	StyleApplied bool   `json:"style_applied"`
	Confidence   int    `json:"confidence"`
	TemplateID   *int64 `json:"template_id,omitempty"`
	FallbackUsed bool   `json:"fallback_used"`
	Variation    int    `json:"variation,omitempty"`
}
