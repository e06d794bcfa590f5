package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultNotificationLogLimit is used when ListNotifications gets a limit <= 0.
const DefaultNotificationLogLimit = 50

// SQLiteNotificationStore implements NotificationStore backed by SQLite.
type SQLiteNotificationStore struct {
	db *sql.DB
}

// NewSQLiteNotificationStore returns a new SQLiteNotificationStore.
func NewSQLiteNotificationStore(db *sql.DB) *SQLiteNotificationStore {
	return &SQLiteNotificationStore{db: db}
}

// LogNotification inserts a notification delivery record into the database.
func (s *SQLiteNotificationStore) LogNotification(ctx context.Context, entry NotificationLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_log
			(event_type, transport, subject, header, recipients, observations, status, reason, error_msg, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EventType, entry.Transport, entry.Subject, entry.Header, entry.Recipients,
		entry.Observations, entry.Status, entry.Reason, entry.ErrorMsg, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting notification log: %w", err)
	}
	return nil
}

// ListNotifications returns the most recent log entries, newest first.
func (s *SQLiteNotificationStore) ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error) {
	if limit <= 0 {
		limit = DefaultNotificationLogLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, transport, subject, header, recipients, observations,
		       status, reason, error_msg, created_at
		FROM notification_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notification log: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	entries := make([]NotificationLogEntry, 0)
	for rows.Next() {
		var e NotificationLogEntry
		if err := rows.Scan(&e.ID, &e.EventType, &e.Transport, &e.Subject, &e.Header,
			&e.Recipients, &e.Observations, &e.Status, &e.Reason, &e.ErrorMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification log row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification log rows: %w", err)
	}
	return entries, nil
}
