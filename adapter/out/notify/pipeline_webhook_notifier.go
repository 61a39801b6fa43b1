// Package notify delivers escalation notifications to a tenant's
// configured webhook endpoint. Providers (SMS gateways, ticketing
// systems, phone bridges) sit behind that endpoint; this adapter only
// carries the payload.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"pipeline_server/core/port/out"
	"pipeline_server/pkg/httputil"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// WebhookNotifier implements out.Notifier by POSTing JSON envelopes.
type WebhookNotifier struct {
	endpoint string
	secret   string
	client   *http.Client
	log      zerolog.Logger
}

// NewWebhookNotifier creates a notifier for the given endpoint. An
// empty endpoint yields a notifier whose sends always fail, which the
// escalation engine records per-action.
func NewWebhookNotifier(endpoint, secret string, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		endpoint: endpoint,
		secret:   secret,
		client:   httputil.WebhookClient(),
		log:      log.With().Str("component", "webhook_notifier").Logger(),
	}
}

// envelope is the wire format delivered to the endpoint.
type envelope struct {
	TenantID  uuid.UUID      `json:"tenant_id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	SentAt    time.Time      `json:"sent_at"`
	Attempt   int            `json:"attempt"`
	DeliverID string         `json:"delivery_id"`
}

// Send delivers one notification. Failures are returned in the
// result, never as a panic or error; callers decide what a failed
// delivery means.
func (n *WebhookNotifier) Send(ctx context.Context, tenantID uuid.UUID, notifyType string, payload map[string]any) out.NotifyResult {
	if n.endpoint == "" {
		return out.NotifyResult{Success: false, Error: "no webhook endpoint configured"}
	}

	body, err := json.Marshal(envelope{
		TenantID:  tenantID,
		Type:      notifyType,
		Payload:   payload,
		SentAt:    time.Now(),
		Attempt:   1,
		DeliverID: uuid.NewString(),
	})
	if err != nil {
		return out.NotifyResult{Success: false, Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return out.NotifyResult{Success: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set("X-Webhook-Secret", n.secret)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("type", notifyType).
			Err(err).
			Msg("webhook delivery failed")
		return out.NotifyResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg := fmt.Sprintf("webhook returned %d", resp.StatusCode)
		n.log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("type", notifyType).
			Int("status", resp.StatusCode).
			Msg("webhook delivery rejected")
		return out.NotifyResult{Success: false, Error: msg}
	}

	return out.NotifyResult{Success: true}
}

// Compile-time interface check
var _ out.Notifier = (*WebhookNotifier)(nil)
