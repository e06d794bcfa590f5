package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver.
)

// migration is one schema step. Versions are contiguous from 1, so the
// slice index of a migration is its version minus one.
type migration struct {
	version int
	sql     string
}

// migrations is the observation schema history, applied in order and
// tracked in schema_migrations.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE metar_observations (
    id             TEXT PRIMARY KEY,
    obs_type       TEXT NOT NULL,
    station_id     TEXT NOT NULL,
    obs_time       TEXT NOT NULL,
    wind_direction TEXT NOT NULL,
    wind_speed     TEXT NOT NULL,
    visibility     TEXT NOT NULL,
    temperature    TEXT NOT NULL,
    dew_point      TEXT NOT NULL,
    qnh            TEXT NOT NULL,
    remarks        TEXT NOT NULL DEFAULT '',
    notified       INTEGER NOT NULL DEFAULT 0,
    notified_at    DATETIME,
    submitted_at   DATETIME NOT NULL
);
CREATE INDEX idx_metar_observations_pending ON metar_observations(notified, submitted_at);
CREATE INDEX idx_metar_observations_station ON metar_observations(station_id, submitted_at);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE notification_log (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type   TEXT NOT NULL,
    transport    TEXT NOT NULL DEFAULT '',
    subject      TEXT NOT NULL DEFAULT '',
    header       TEXT NOT NULL DEFAULT '',
    recipients   TEXT NOT NULL DEFAULT '',
    observations INTEGER NOT NULL DEFAULT 0,
    status       TEXT NOT NULL,
    reason       TEXT NOT NULL DEFAULT '',
    error_msg    TEXT NOT NULL DEFAULT '',
    created_at   DATETIME NOT NULL
);
CREATE INDEX idx_notification_log_created ON notification_log(created_at);
`,
	},
}

// pragmas run once on the single pooled connection before migrating.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA foreign_keys=ON",
	"PRAGMA synchronous=NORMAL",
}

// NewSQLiteDB opens the observation database at dbPath, creating the file
// and its directory when needed, and brings the schema up to date. The bool
// reports whether the observation table was created by this call.
func NewSQLiteDB(dbPath string) (*sql.DB, bool, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, false, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, false, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer; the API, CLI and scheduler share this handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	fresh, err := prepare(ctx, db)
	if err != nil {
		return nil, false, errors.Join(err, db.Close())
	}
	return db, fresh, nil
}

func prepare(ctx context.Context, db *sql.DB) (bool, error) {
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return false, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}
	fresh, err := runMigrations(ctx, db)
	if err != nil {
		return false, fmt.Errorf("running migrations: %w", err)
	}
	return fresh, nil
}

// runMigrations applies every migration newer than the recorded schema
// version. It returns true when version 1 ran, i.e. the database was empty.
func runMigrations(ctx context.Context, db *sql.DB) (bool, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return false, fmt.Errorf("creating schema_migrations table: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return false, err
	}

	fresh := current == 0
	for _, m := range migrations[min(current, len(migrations)):] {
		if err := applyMigration(ctx, db, m); err != nil {
			return false, err
		}
	}
	return fresh, nil
}

// applyMigration runs m and records its version in one transaction.
func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("migration %d: %w", m.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("recording migration %d: %w", m.version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.version, err)
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("querying schema version: %w", err)
	}
	return v, nil
}
