// Package notify pushes workflow events to an external webhook so the ops
// channel sees approvals and dispatches without polling the dashboard.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Event is the payload posted to the webhook.
type Event struct {
	Kind      string    `json:"kind"`
	Reference string    `json:"reference"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier posts events to a configured webhook URL. A Notifier with an
// empty URL is valid and drops every event, so call sites never need to
// branch on whether notifications are configured.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *zap.Logger
}

func New(webhookURL string, logger *zap.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Send posts the event. Failures are logged and swallowed; notifications
// must never fail the business operation that triggered them.
func (n *Notifier) Send(ctx context.Context, kind, reference, message string) {
	if n == nil || n.webhookURL == "" {
		return
	}

	event := Event{
		Kind:      kind,
		Reference: reference,
		Message:   message,
		Timestamp: time.Now(),
	}
	bodyBytes, _ := json.Marshal(event)

	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewReader(bodyBytes))
	if err != nil {
		n.logger.Warn("Build notify request failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Warn("Notify webhook failed",
			zap.String("kind", kind),
			zap.String("reference", reference),
			zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("Notify webhook rejected",
			zap.String("kind", kind),
			zap.String("reference", reference),
			zap.Error(fmt.Errorf("status %d", resp.StatusCode)))
	}
}
