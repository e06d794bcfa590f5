package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/observability"
	"github.com/jlh-tonga/meds/internal/storage"
)

// markNotifiedTimeout bounds the store update that follows a delivered report.
const markNotifiedTimeout = 5 * time.Second

// TestMessageLine is the body line of the message sent by TestNotification.
const TestMessageLine = "MEDS test message: mail delivery is configured."

// ReportDispatcher sends one composed report. *notification.Dispatcher
// satisfies it.
type ReportDispatcher interface {
	Dispatch(ctx context.Context, req notification.Request) notification.Result
}

// SendRequest describes one report to send. Stored observations, inline
// records and pre-rendered lines are sent in that order.
type SendRequest struct {
	Header         string
	ObservationIDs []string
	Records        []metar.Record
	// MetarList is a newline-joined list of rendered lines.
	MetarList  string
	Recipients []string
	Format     notification.Format
}

// NotificationService sends METAR reports and exposes the delivery log.
type NotificationService interface {
	// SendReport dispatches the report described by req. Stored observations
	// are marked notified when the send succeeds. The error is non-nil only
	// when the request cannot be assembled; delivery failures are reported in
	// the Result.
	SendReport(ctx context.Context, req SendRequest) (notification.Result, error)
	// SendPending sends every observation not yet notified. It returns
	// nil when there is nothing to send.
	SendPending(ctx context.Context, header string) (*notification.Result, error)
	// TestNotification sends a one-line test message.
	TestNotification(ctx context.Context, recipients []string) notification.Result
	// ListLog returns the most recent notification log entries.
	ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error)
}

// NotificationServiceConfig holds the NotificationService dependencies.
type NotificationServiceConfig struct {
	Dispatcher   ReportDispatcher
	Observations storage.ObservationStore
	Log          storage.NotificationStore
	Logger       *slog.Logger
	Metrics      *observability.Metrics
	Clock        clockwork.Clock
}

type notificationService struct {
	dispatcher   ReportDispatcher
	observations storage.ObservationStore
	log          storage.NotificationStore
	logger       *slog.Logger
	metrics      *observability.Metrics
	clock        clockwork.Clock
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(cfg NotificationServiceConfig) NotificationService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &notificationService{
		dispatcher:   cfg.Dispatcher,
		observations: cfg.Observations,
		log:          cfg.Log,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		clock:        cfg.Clock,
	}
}

func (s *notificationService) SendReport(ctx context.Context, req SendRequest) (notification.Result, error) {
	items := make([]notification.Item, 0, len(req.ObservationIDs)+len(req.Records))

	for _, id := range req.ObservationIDs {
		obs, err := s.observations.GetObservation(ctx, id)
		if err != nil {
			return notification.Result{}, fmt.Errorf("loading observation %q: %w", id, err)
		}
		if obs == nil {
			return notification.Result{}, &NotFoundError{Resource: "observation", ID: id}
		}
		items = append(items, notification.RecordItem(obs.ID, obs.Record()))
	}
	for _, r := range req.Records {
		items = append(items, notification.RecordItem("", r))
	}
	for _, line := range splitMetarList(req.MetarList) {
		items = append(items, notification.MetarLineItem(line))
	}

	res := s.dispatcher.Dispatch(ctx, notification.Request{
		Header:     req.Header,
		Items:      items,
		Recipients: req.Recipients,
		Format:     req.Format,
	})
	if res.Success {
		s.markNotified(ctx, res.Notified)
	}
	return res, nil
}

func (s *notificationService) SendPending(ctx context.Context, header string) (*notification.Result, error) {
	pending, err := s.observations.ListObservations(ctx, storage.ObservationFilter{PendingOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing pending observations: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	items := make([]notification.Item, 0, len(pending))
	for _, obs := range pending {
		items = append(items, notification.RecordItem(obs.ID, obs.Record()))
	}

	res := s.dispatcher.Dispatch(ctx, notification.Request{Header: header, Items: items})
	if res.Success {
		s.markNotified(ctx, res.Notified)
	}
	return &res, nil
}

func (s *notificationService) TestNotification(ctx context.Context, recipients []string) notification.Result {
	return s.dispatcher.Dispatch(ctx, notification.Request{
		Items:      []notification.Item{notification.LineItem(TestMessageLine)},
		Recipients: recipients,
		Format:     notification.FormatPlain,
	})
}

func (s *notificationService) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	entries, err := s.log.ListNotifications(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notification log: %w", err)
	}
	return entries, nil
}

// markNotified flags sent observations. The report is already delivered, so
// the update outlives a canceled request and a failure is logged, not returned.
func (s *notificationService) markNotified(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markNotifiedTimeout)
	defer cancel()

	n, err := s.observations.MarkNotified(ctx, s.clock.Now().UTC(), ids...)
	if err != nil {
		s.logger.Error("failed to mark observations notified", "ids", ids, "error", err)
		return
	}
	s.metrics.ObservationsMarked(n)
}

func splitMetarList(list string) []string {
	var lines []string
	for _, line := range strings.Split(list, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
