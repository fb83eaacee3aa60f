package alert

import (
	"context"
	"fmt"
	"log/slog"
)

// EventAlertTriggered is the webhook event type alert subscribers
// register for.
const EventAlertTriggered = "alert.triggered"

// Dispatcher delivers an event to every webhook subscribed to it.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, data interface{}) error
}

type Notifier struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewNotifier(dispatcher Dispatcher, logger *slog.Logger) *Notifier {
	return &Notifier{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (n *Notifier) Send(ctx context.Context, alert *Alert, history *AlertHistory) error {
	payload := map[string]interface{}{
		"alert": map[string]interface{}{
			"id":       alert.ID,
			"name":     alert.Name,
			"severity": alert.Severity,
		},
		"history": map[string]interface{}{
			"id":           history.ID,
			"triggered_at": history.TriggeredAt,
			"metadata":     history.Metadata,
		},
	}

	if err := n.dispatcher.Dispatch(ctx, EventAlertTriggered, payload); err != nil {
		return fmt.Errorf("dispatch alert notification: %w", err)
	}

	n.logger.Info("alert notification dispatched",
		"alert_id", alert.ID,
		"alert_name", alert.Name,
		"severity", alert.Severity,
	)

	return nil
}
