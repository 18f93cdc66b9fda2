// Package notify delivers notifications to holders and to the oversight
// channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
)

// WebhookNotifier posts notifications as JSON to an external messaging
// webhook. Holder notifications address the holder's channel; oversight
// notifications address the configured oversight channel.
type WebhookNotifier struct {
	url              string
	oversightChannel string
	client           *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier. The timeout bounds each
// delivery attempt.
func NewWebhookNotifier(url, oversightChannel string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:              url,
		oversightChannel: oversightChannel,
		client:           &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	Channel     string                   `json:"channel"`
	Text        string                   `json:"text"`
	Affordances []application.Affordance `json:"affordances,omitempty"`
}

// Notify implements application.Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, notification application.Notification) error {
	channel := notification.Recipient.HolderID
	if notification.Recipient.Kind == application.RecipientOversight {
		channel = n.oversightChannel
	}

	body, err := json.Marshal(webhookPayload{
		Channel:     channel,
		Text:        notification.Text,
		Affordances: notification.Affordances,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}
	return nil
}
