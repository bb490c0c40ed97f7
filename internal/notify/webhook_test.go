package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/order-sentinel/order-sentinel/internal/config"
)

func TestWebhookDeliver_PostsJSONBody(t *testing.T) {
	var gotBody chatMessage
	var gotContentType, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("body is not valid JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewWebhookChannel(config.WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer token"},
	})

	err := c.Deliver(context.Background(), []string{"admin-1", "admin-2"}, samplePayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("Authorization = %q, configured header was not sent", gotAuth)
	}
	if gotBody.Subject != "High-value purchase detected" {
		t.Errorf("subject = %q", gotBody.Subject)
	}
	if gotBody.Severity != "high" {
		t.Errorf("severity = %q, want high", gotBody.Severity)
	}
	if len(gotBody.Recipients) != 2 {
		t.Errorf("recipients = %v, want both ids", gotBody.Recipients)
	}
}

func TestWebhookDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWebhookChannel(config.WebhookConfig{URL: srv.URL})
	if err := c.Deliver(context.Background(), []string{"admin-1"}, samplePayload()); err == nil {
		t.Error("expected error for 502 response")
	}
}

func TestWebhookDeliver_UnconfiguredURL(t *testing.T) {
	c := NewWebhookChannel(config.WebhookConfig{})
	if err := c.Deliver(context.Background(), []string{"admin-1"}, samplePayload()); err == nil {
		t.Error("expected error for unconfigured webhook url")
	}
}

func TestWebhookDeliver_UnreachableEndpoint(t *testing.T) {
	c := NewWebhookChannel(config.WebhookConfig{URL: "http://127.0.0.1:1", TimeoutSecs: 1})
	if err := c.Deliver(context.Background(), []string{"admin-1"}, samplePayload()); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}
