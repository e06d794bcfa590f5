package storage

import (
	"context"
	"time"
)

// NotificationLogEntry records a single METAR dispatch attempt.
type NotificationLogEntry struct {
	ID           int64     `json:"id"`
	EventType    string    `json:"event_type"`
	Transport    string    `json:"transport"`
	Subject      string    `json:"subject"`
	Header       string    `json:"header"`
	Recipients   string    `json:"recipients"`
	Observations int       `json:"observations"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	ErrorMsg     string    `json:"error_msg"`
	CreatedAt    time.Time `json:"created_at"`
}

// NotificationStore defines the interface for persisting notification delivery logs.
type NotificationStore interface {
	// LogNotification records a notification delivery attempt.
	LogNotification(ctx context.Context, entry NotificationLogEntry) error
	// ListNotifications returns the most recent notification log entries, up to limit.
	ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error)
}
