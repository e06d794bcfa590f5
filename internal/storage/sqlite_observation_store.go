package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteObservationStore implements ObservationStore backed by SQLite.
type SQLiteObservationStore struct {
	db *sql.DB
}

// NewSQLiteObservationStore returns a new SQLiteObservationStore.
func NewSQLiteObservationStore(db *sql.DB) *SQLiteObservationStore {
	return &SQLiteObservationStore{db: db}
}

const observationColumns = `id, obs_type, station_id, obs_time, wind_direction, wind_speed,
		       visibility, temperature, dew_point, qnh, remarks, notified, notified_at, submitted_at`

// CreateObservation inserts a new observation row.
func (s *SQLiteObservationStore) CreateObservation(ctx context.Context, obs *Observation) error {
	if obs.ID == "" {
		obs.ID = uuid.New().String()
	}
	if obs.SubmittedAt.IsZero() {
		obs.SubmittedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metar_observations (`+observationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.ObsType, obs.StationID, obs.ObsTime, obs.WindDirection, obs.WindSpeed,
		obs.Visibility, obs.Temperature, obs.DewPoint, obs.QNH, obs.Remarks,
		obs.Notified, obs.NotifiedAt, obs.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting observation %q: %w", obs.ID, err)
	}
	return nil
}

// GetObservation returns an observation by ID, or nil if not found.
func (s *SQLiteObservationStore) GetObservation(ctx context.Context, id string) (*Observation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+observationColumns+`
		FROM metar_observations WHERE id = ?`, id)

	obs, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting observation %q: %w", id, err)
	}
	return obs, nil
}

// ListObservations returns observations ordered by submission time ascending.
func (s *SQLiteObservationStore) ListObservations(ctx context.Context, filter ObservationFilter) ([]*Observation, error) {
	var (
		where []string
		args  []any
	)
	if filter.PendingOnly {
		where = append(where, "notified = 0")
	}
	if filter.StationID != "" {
		where = append(where, "station_id = ?")
		args = append(args, filter.StationID)
	}

	query := `SELECT ` + observationColumns + ` FROM metar_observations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY submitted_at ASC, id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	observations := make([]*Observation, 0)
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning observation row: %w", err)
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// MarkNotified sets notified=1 for every id inside a single transaction.
func (s *SQLiteObservationStore) MarkNotified(ctx context.Context, at time.Time, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin mark notified: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE metar_observations SET notified = 1, notified_at = ? WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing mark notified: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	changed := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, at, id)
		if err != nil {
			return 0, fmt.Errorf("marking observation %q notified: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected for %q: %w", id, err)
		}
		changed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mark notified: %w", err)
	}
	return changed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(row rowScanner) (*Observation, error) {
	obs := &Observation{}
	var notifiedAt sql.NullTime
	if err := row.Scan(
		&obs.ID, &obs.ObsType, &obs.StationID, &obs.ObsTime, &obs.WindDirection, &obs.WindSpeed,
		&obs.Visibility, &obs.Temperature, &obs.DewPoint, &obs.QNH, &obs.Remarks,
		&obs.Notified, &notifiedAt, &obs.SubmittedAt,
	); err != nil {
		return nil, err
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		obs.NotifiedAt = &t
	}
	return obs, nil
}
