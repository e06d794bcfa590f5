package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/observability"
	"github.com/jlh-tonga/meds/internal/storage"
)

// EventObservationSaved is published after an observation is stored.
const EventObservationSaved = "metar.observation.saved"

// ObservationService handles submission and lookup of METAR observations.
type ObservationService interface {
	// Save validates fields and persists them as a new observation. It returns
	// a *metar.ValidationError when required fields are missing and a
	// *metar.CheckError when strict checks are enabled and fail.
	Save(ctx context.Context, fields map[string]any) (*storage.Observation, error)
	Get(ctx context.Context, id string) (*storage.Observation, error)
	List(ctx context.Context, filter storage.ObservationFilter) ([]*storage.Observation, error)
	// RenderLine returns the METAR line for a stored observation.
	RenderLine(ctx context.Context, id string) (string, error)
}

// ObservationServiceConfig holds the ObservationService dependencies.
type ObservationServiceConfig struct {
	Store   storage.ObservationStore
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
	// StrictChecks runs metar.Check after required-field validation.
	StrictChecks bool
	// EventPublisher is optional.
	EventPublisher EventPublisher
}

type observationService struct {
	store   storage.ObservationStore
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	strict  bool
	events  EventPublisher
}

// NewObservationService creates a new ObservationService.
func NewObservationService(cfg ObservationServiceConfig) ObservationService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &observationService{
		store:   cfg.Store,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		strict:  cfg.StrictChecks,
		events:  cfg.EventPublisher,
	}
}

func (s *observationService) Save(ctx context.Context, fields map[string]any) (*storage.Observation, error) {
	r := metar.RecordFromAny(fields)

	if err := metar.Validate(r).Err(); err != nil {
		s.metrics.ObservationRejected()
		s.logger.Warn("observation rejected", "station_id", r.StationID(), "error", err)
		return nil, err
	}
	if s.strict {
		if err := metar.Check(r, s.clock.Now()); err != nil {
			s.metrics.ObservationRejected()
			s.logger.Warn("observation failed plausibility checks", "station_id", r.StationID(), "error", err)
			return nil, err
		}
	}

	obs := storage.ObservationFromRecord(r)
	obs.SubmittedAt = s.clock.Now().UTC()
	if err := s.store.CreateObservation(ctx, obs); err != nil {
		return nil, fmt.Errorf("saving observation: %w", err)
	}

	s.metrics.ObservationSaved()
	s.logger.Info("observation saved", "id", obs.ID, "station_id", obs.StationID, "obs_time", obs.ObsTime)
	publishSaved(s.events, obs)
	return obs, nil
}

func (s *observationService) Get(ctx context.Context, id string) (*storage.Observation, error) {
	obs, err := s.store.GetObservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading observation: %w", err)
	}
	if obs == nil {
		return nil, &NotFoundError{Resource: "observation", ID: id}
	}
	return obs, nil
}

func (s *observationService) List(ctx context.Context, filter storage.ObservationFilter) ([]*storage.Observation, error) {
	list, err := s.store.ListObservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing observations: %w", err)
	}
	return list, nil
}

func (s *observationService) RenderLine(ctx context.Context, id string) (string, error) {
	obs, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return metar.Render(obs.Record())
}
