// Package execution runs the engine's background work on River: delivery of
// committed events and the periodic offer-expiry sweep.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/riverqueue/river"

	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
)

type DeliverEventArgs struct {
	Envelope events.Envelope `json:"envelope"`
}

func (DeliverEventArgs) Kind() string { return "deliver_event" }

// DeliverEventWorker POSTs each event envelope to the notification webhook.
// With no webhook configured the event is logged and the job completes.
type DeliverEventWorker struct {
	river.WorkerDefaults[DeliverEventArgs]
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewDeliverEventWorker(webhookURL string, logger *slog.Logger) *DeliverEventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeliverEventWorker{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

func (w *DeliverEventWorker) Work(ctx context.Context, job *river.Job[DeliverEventArgs]) error {
	env := job.Args.Envelope
	if w.webhookURL == "" {
		w.logger.Info("event", "event_id", env.ID, "type", env.Type, "recipients", env.Recipients, "payload", string(env.Payload))
		return nil
	}

	body, err := json.Marshal(env)
	if err != nil {
		return river.JobCancel(fmt.Errorf("marshal envelope: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return river.JobCancel(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", env.Type)
	req.Header.Set("X-Event-ID", env.ID.String())

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// River retries with backoff.
		return fmt.Errorf("webhook returned status %d for event %s", resp.StatusCode, env.ID)
	}
	return nil
}
