package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Webhook posts events as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier. A nil client means http.DefaultClient.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}

	return &Webhook{
		url:    url,
		client: client,
	}
}

type webhookPayload struct {
	Event   string          `json:"event"`
	Who     string          `json:"who,omitempty"`
	Quiet   bool            `json:"quiet"`
	Changes []webhookChange `json:"changes,omitempty"`
	At      time.Time       `json:"at"`
}

type webhookChange struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, e Event) error {
	payload := webhookPayload{
		Event: string(e.Kind),
		Who:   e.Who,
		Quiet: e.Quiet,
		At:    e.At.UTC(),
	}

	for _, c := range e.Changes {
		payload.Changes = append(payload.Changes, webhookChange{
			Subject: c.Subject,
			From:    c.From.String(),
			To:      c.To.String(),
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("post webhook: unexpected status %s", resp.Status)
	}

	return nil
}
