// webhook.go implements the "chat" channel: a single JSON POST per alert to a
// configured incoming-webhook endpoint (Slack/Teams/Mattermost style). The
// recipients are carried in the body for the receiving side to mention;
// delivery itself is not per-recipient.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/order-sentinel/order-sentinel/internal/config"
)

// chatMessage is the JSON body posted to the chat webhook.
type chatMessage struct {
	Subject    string            `json:"subject"`
	Text       string            `json:"text"`
	Severity   string            `json:"severity"`
	Recipients []string          `json:"recipients,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// WebhookChannel delivers alerts to a chat system via an incoming webhook.
type WebhookChannel struct {
	cfg    config.WebhookConfig
	client *http.Client
}

// NewWebhookChannel creates the chat channel.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Name() string { return "chat" }

// Deliver posts one message for the whole recipient set.
func (c *WebhookChannel) Deliver(ctx context.Context, recipientIDs []string, p Payload) error {
	if c.cfg.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}

	data, err := json.Marshal(chatMessage{
		Subject:    p.Subject,
		Text:       p.Message,
		Severity:   p.Severity,
		Recipients: recipientIDs,
		Metadata:   p.Metadata,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
