package notification

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jlh-tonga/meds/internal/storage"
)

// DeliveryRecorder receives dispatch events and writes them to the
// notification log.
type DeliveryRecorder struct {
	store  storage.NotificationStore
	logger *slog.Logger
	clock  clockwork.Clock
}

// NewDeliveryRecorder creates a new DeliveryRecorder.
func NewDeliveryRecorder(store storage.NotificationStore, logger *slog.Logger, clock clockwork.Clock) *DeliveryRecorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DeliveryRecorder{store: store, logger: logger, clock: clock}
}

// statusFor maps an event type to the status stored in the log.
func statusFor(eventType string) string {
	switch eventType {
	case EventReportSent:
		return "sent"
	case EventReportFailed:
		return "failed"
	case EventReportRejected:
		return "rejected"
	}
	return eventType
}

// Handle records one dispatch event. Events that did not come from the
// dispatcher are ignored.
func (h *DeliveryRecorder) Handle(eventType string, payload map[string]string) {
	switch eventType {
	case EventReportSent, EventReportFailed, EventReportRejected:
	default:
		return
	}

	count, _ := strconv.Atoi(payload["observations"])
	entry := storage.NotificationLogEntry{
		EventType:    eventType,
		Transport:    payload["transport"],
		Subject:      payload["subject"],
		Header:       payload["header"],
		Recipients:   payload["recipients"],
		Observations: count,
		Status:       statusFor(eventType),
		Reason:       payload["reason"],
		ErrorMsg:     payload["error"],
		CreatedAt:    h.clock.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.store.LogNotification(ctx, entry); err != nil {
		h.logger.Error("failed to record notification delivery",
			"event_type", eventType, "error", err)
	}
}
