package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/p5portal/backend-portal/internal/events"
	"github.com/p5portal/backend-portal/internal/obs"
)

// TaskEmailNotification is the asynq task type for order emails.
const TaskEmailNotification = "notify:email"

// Enqueuer hands events to the worker so email delivery never blocks
// the request path. It implements events.Notifier.
type Enqueuer struct {
	Client *asynq.Client
}

// Notify implements the events.Notifier interface.
func (e Enqueuer) Notify(_ context.Context, event events.Event) error {
	if e.Client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify enqueue: encode event: %w", err)
	}
	task := asynq.NewTask(TaskEmailNotification, payload, asynq.MaxRetry(5))
	if _, err := e.Client.Enqueue(task); err != nil {
		return fmt.Errorf("notify enqueue: %w", err)
	}
	return nil
}

// Worker processes queued notification tasks.
type Worker struct {
	Emails EmailNotifier
}

// HandleEmailTask is the asynq handler for TaskEmailNotification.
func (w Worker) HandleEmailTask(ctx context.Context, t *asynq.Task) error {
	var event events.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("notify worker: decode event: %w", err)
	}
	err := w.Emails.Notify(ctx, event)
	if obs.NotifyEmailTotal != nil {
		outcome := "sent"
		if err != nil {
			outcome = "failed"
		}
		obs.NotifyEmailTotal.WithLabelValues(event.Topic, outcome).Inc()
	}
	return err
}
