// Package notify delivers operational notifications to a configured
// webhook. The payload is the plain {"text": ...} shape that Slack-style
// incoming webhooks accept.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hmiyata/battrack/internal/config"
)

// Notifier sends a plain-text notification.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// WebhookClient posts notifications over HTTP.
type WebhookClient struct {
	httpClient *resty.Client
	webhookURL string
}

// NewWebhookClient builds a webhook notifier from configuration.
func NewWebhookClient(cfg config.NotifyConfig) *WebhookClient {
	httpClient := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &WebhookClient{
		httpClient: httpClient,
		webhookURL: cfg.WebhookURL,
	}
}

// Send posts the text to the webhook.
func (c *WebhookClient) Send(ctx context.Context, text string) error {
	payload := map[string]string{"text": text}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to post notification: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("notification webhook error: status=%d, body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}

// NopNotifier drops notifications. Used when no webhook is configured.
type NopNotifier struct{}

// Send discards the text.
func (NopNotifier) Send(ctx context.Context, text string) error {
	return nil
}
