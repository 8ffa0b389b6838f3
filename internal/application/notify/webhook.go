package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/resell/backoffice/internal/infrastructure/config"
)

// WebhookSink POSTs notifications as JSON to a configured endpoint
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSink creates a WebhookSink
func NewWebhookSink(cfg config.NotifyConfig) *WebhookSink {
	return &WebhookSink{
		url:        cfg.WebhookURL,
		httpClient: &http.Client{Timeout: cfg.WebhookTimeout},
	}
}

// Send implements Sink
func (s *WebhookSink) Send(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

var _ Sink = (*WebhookSink)(nil)
