package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/albapepper/darkauction/internal/failure"
)

// WebhookSender posts messages to a Discord webhook.
// Nil-safe: when not configured, Send is a no-op.
type WebhookSender struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookSender creates a sender for url. Returns nil if url is empty
// (webhook delivery disabled). A zero timeout keeps the client default.
func NewWebhookSender(url string, timeout time.Duration, logger *slog.Logger) *WebhookSender {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (s *WebhookSender) Name() string { return "discord" }

// Send posts msg as JSON. Any transport error or non-2xx status wraps
// failure.ErrDelivery.
func (s *WebhookSender) Send(ctx context.Context, msg Message) error {
	if s == nil {
		return nil // no-op when not configured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return failure.Delivery("marshal webhook payload: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return failure.Delivery("create webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return failure.Delivery("post webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return failure.Delivery("webhook returned %d: %s", resp.StatusCode, string(snippet))
	}
	s.logger.Debug("Webhook delivered", "kind", msg.Kind, "status", resp.StatusCode)
	return nil
}

// Validate returns an error if the sender cannot be used; it does not
// contact the webhook.
func (s *WebhookSender) Validate() error {
	if s == nil {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is not set")
	}
	return nil
}
