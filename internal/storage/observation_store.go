package storage

import (
	"context"
	"time"

	"github.com/jlh-tonga/meds/internal/metar"
)

// Observation is a persisted METAR observation.
type Observation struct {
	ID            string     `json:"id"`
	ObsType       string     `json:"obs_type"`
	StationID     string     `json:"station_id"`
	ObsTime       string     `json:"obs_time"`
	WindDirection string     `json:"wind_direction"`
	WindSpeed     string     `json:"wind_speed"`
	Visibility    string     `json:"visibility"`
	Temperature   string     `json:"temperature"`
	DewPoint      string     `json:"dew_point"`
	QNH           string     `json:"qnh"`
	Remarks       string     `json:"remarks"`
	Notified      bool       `json:"notified"`
	NotifiedAt    *time.Time `json:"notified_at,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
}

// ObservationFromRecord copies the known fields of r into a new Observation.
// Fields the table has no column for are dropped.
func ObservationFromRecord(r metar.Record) *Observation {
	return &Observation{
		ObsType:       r.Get(metar.FieldObsType),
		StationID:     r.Get(metar.FieldStationID),
		ObsTime:       r.Get(metar.FieldObsTime),
		WindDirection: r.Get(metar.FieldWindDirection),
		WindSpeed:     r.Get(metar.FieldWindSpeed),
		Visibility:    r.Get(metar.FieldVisibility),
		Temperature:   r.Get(metar.FieldTemperature),
		DewPoint:      r.Get(metar.FieldDewPoint),
		QNH:           r.Get(metar.FieldQNH),
		Remarks:       r.Get(metar.FieldRemarks),
	}
}

// Record returns the observation as a read-only metar.Record.
func (o *Observation) Record() metar.Record {
	return metar.NewRecord(map[string]string{
		metar.FieldObsType:       o.ObsType,
		metar.FieldStationID:     o.StationID,
		metar.FieldObsTime:       o.ObsTime,
		metar.FieldWindDirection: o.WindDirection,
		metar.FieldWindSpeed:     o.WindSpeed,
		metar.FieldVisibility:    o.Visibility,
		metar.FieldTemperature:   o.Temperature,
		metar.FieldDewPoint:      o.DewPoint,
		metar.FieldQNH:           o.QNH,
		metar.FieldRemarks:       o.Remarks,
	})
}

// ObservationFilter narrows ListObservations.
type ObservationFilter struct {
	// PendingOnly restricts the result to observations not yet notified.
	PendingOnly bool
	StationID   string
	// Limit caps the number of rows; zero or less means no cap.
	Limit int
}

// ObservationStore defines the interface for observation persistence.
type ObservationStore interface {
	// CreateObservation inserts obs. An empty ID is replaced with a new UUID.
	CreateObservation(ctx context.Context, obs *Observation) error
	// GetObservation returns the observation with id, or nil if not found.
	GetObservation(ctx context.Context, id string) (*Observation, error)
	// ListObservations returns observations in submission order.
	ListObservations(ctx context.Context, filter ObservationFilter) ([]*Observation, error)
	// MarkNotified flags the given observations as notified at the given time
	// and returns how many rows changed.
	MarkNotified(ctx context.Context, at time.Time, ids ...string) (int, error)
}
