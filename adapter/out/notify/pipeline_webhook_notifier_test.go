package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestSend_DeliversEnvelope(t *testing.T) {
	var gotBody string
	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotSecret = r.Header.Get("X-Webhook-Secret")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "s3cret", zerolog.Nop())
	tenant := uuid.New()
	res := n.Send(context.Background(), tenant, "manager_alert", map[string]any{"email_id": "em-1"})

	if !res.Success {
		t.Fatalf("send failed: %s", res.Error)
	}
	if gotSecret != "s3cret" {
		t.Errorf("secret header = %q", gotSecret)
	}
	for _, want := range []string{tenant.String(), "manager_alert", "em-1"} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("body missing %q: %s", want, gotBody)
		}
	}
}

func TestSend_Non2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, "", zerolog.Nop())
	res := n.Send(context.Background(), uuid.New(), "sms", nil)
	if res.Success {
		t.Fatal("502 must be a failure")
	}
	if res.Error == "" {
		t.Error("failure must carry an error message")
	}
}

func TestSend_NoEndpointConfigured(t *testing.T) {
	n := NewWebhookNotifier("", "", zerolog.Nop())
	res := n.Send(context.Background(), uuid.New(), "ticket", nil)
	if res.Success {
		t.Fatal("missing endpoint must fail")
	}
}
