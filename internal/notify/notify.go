// Package notify posts release announcements to a chat webhook. Sends
// are best-effort: failures are reported to the caller only so they can
// be logged, and must never fail the release that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sendTimeout bounds a webhook post so a slow chat service cannot hang
// the tail end of a release.
const sendTimeout = 5 * time.Second

// Message is one release announcement.
type Message struct {
	Channel  string
	Username string
	Icon     string
	Text     string
}

// Notifier delivers release announcements.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Webhook posts messages to an incoming-webhook URL as JSON.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier for the given URL.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: sendTimeout},
	}
}

type webhookPayload struct {
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Text      string `json:"text"`
}

// Send posts the message. The caller decides what to do with a failure;
// the release flow logs and moves on.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(webhookPayload{
		Channel:   msg.Channel,
		Username:  msg.Username,
		IconEmoji: msg.Icon,
		Text:      msg.Text,
	})
	if err != nil {
		return fmt.Errorf("notify: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned %s", resp.Status)
	}
	return nil
}
