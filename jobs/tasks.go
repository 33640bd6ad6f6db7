package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the queue every brimstock task runs on.
	QueueDefault = "default"
	// TaskTypeNotifyDeliver delivers one stored notification by email.
	TaskTypeNotifyDeliver = "notify:deliver"
)

// DeliverPayload identifies a stored notification and carries the rendered
// content so the worker never reads the database.
type DeliverPayload struct {
	NotificationID int64  `json:"notificationId"`
	Recipient      string `json:"recipient"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

// NewDeliverTask constructs a delivery task.
func NewDeliverTask(payload DeliverPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyDeliver, data), nil
}

// Mailer sends one rendered message. Delivery is best-effort end to end;
// the notification row already exists whatever happens here.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// NewDeliverHandler builds the asynq handler for delivery tasks. A nil
// mailer logs the delivery instead of sending it.
func NewDeliverHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DeliverPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if mailer == nil {
			logger.Info("jobs: delivery logged, no mailer configured",
				slog.Int64("notification_id", payload.NotificationID),
				slog.String("recipient", payload.Recipient))
			return nil
		}
		return mailer.Send(ctx, payload.Recipient, payload.Title, payload.Body)
	}
}
