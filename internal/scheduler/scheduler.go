// Package scheduler periodically sends the observations that have not been
// notified yet.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jlh-tonga/meds/internal/notification"
)

// JobName is the gocron name of the auto-dispatch job.
const JobName = "metar-auto-dispatch"

// PendingSender sends every pending observation. service.NotificationService
// satisfies it.
type PendingSender interface {
	SendPending(ctx context.Context, header string) (*notification.Result, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Sender PendingSender
	// Interval between runs. Zero or less disables auto-dispatch.
	Interval time.Duration
	// Header is the report header used for every automatic report.
	Header string
	// RunTimeout bounds a single run. Zero means no limit.
	RunTimeout time.Duration
	Logger     *slog.Logger
	Clock      clockwork.Clock
}

// Scheduler runs auto-dispatch using gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	jobID uuid.UUID
	ctx   context.Context
}

// New creates a new Scheduler. It does not start any job.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	cron, err := gocron.NewScheduler(gocron.WithClock(cfg.Clock))
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:   cron,
		cfg:    cfg,
		logger: cfg.Logger,
		ctx:    context.Background(),
	}, nil
}

// Enabled reports whether a positive interval was configured.
func (s *Scheduler) Enabled() bool { return s.cfg.Interval > 0 }

// Start schedules the auto-dispatch job and starts gocron. When the
// interval is not positive it only logs that auto-dispatch is off.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.Enabled() {
		s.logger.Info("metar auto-dispatch disabled")
		return nil
	}
	if s.cfg.Sender == nil {
		return fmt.Errorf("auto-dispatch requires a sender")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx

	job, err := s.cron.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(s.run),
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling auto-dispatch: %w", err)
	}
	s.jobID = job.ID()

	s.cron.Start()
	s.logger.Info("metar auto-dispatch started", "interval", s.cfg.Interval, "job_id", s.jobID)
	return nil
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// RunOnce sends the pending observations immediately. It returns nil when
// nothing was pending.
func (s *Scheduler) RunOnce(ctx context.Context) (*notification.Result, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	start := s.cfg.Clock.Now()
	res, err := s.cfg.Sender.SendPending(ctx, s.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("sending pending observations: %w", err)
	}
	if res == nil {
		s.logger.Debug("metar auto-dispatch: nothing pending")
		return nil, nil
	}

	attrs := []any{
		"success", res.Success,
		"state", res.State,
		"notified", len(res.Notified),
		"duration", s.cfg.Clock.Since(start),
	}
	if res.Success {
		s.logger.Info("metar auto-dispatch run finished", attrs...)
	} else {
		s.logger.Warn("metar auto-dispatch run failed", append(attrs, "message", res.Message)...)
	}
	return res, nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("metar auto-dispatch run errored", "error", err)
	}
}
