package cmd

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/jlh-tonga/meds/internal/config"
	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/observability"
	"github.com/jlh-tonga/meds/internal/service"
	"github.com/jlh-tonga/meds/internal/storage"
)

// newTransport picks SMTP when a host is configured and the log transport
// otherwise.
func newTransport(cfg *config.AppConfig, logger *slog.Logger) notification.Transport {
	if cfg.SMTPConfigured() {
		return notification.NewSMTPTransport(cfg.SMTP(), logger)
	}
	logger.Warn("SMTP_HOST not set; reports will be written to the log instead of mailed")
	return notification.NewLogTransport(logger)
}

// newDispatcher builds the report dispatcher from cfg. publisher may be nil.
func newDispatcher(
	cfg *config.AppConfig,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	publisher notification.EventPublisher,
) (*notification.Dispatcher, error) {
	format, err := notification.ParseFormat(cfg.Format, notification.FormatHTML)
	if err != nil {
		return nil, err
	}
	variant, err := notification.ParseHTMLVariant(cfg.HTMLVariant)
	if err != nil {
		return nil, err
	}

	d, err := notification.NewDispatcher(notification.DispatcherConfig{
		Transport:         newTransport(cfg, logger),
		Subject:           cfg.Subject,
		DefaultRecipients: cfg.DefaultRecipients,
		Format:            format,
		HTMLVariant:       variant,
		Timeout:           cfg.DispatchTimeout(),
		Logger:            logger,
		Metrics:           metrics,
		Clock:             clock,
		EventPublisher:    publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	return d, nil
}

// services bundles what both the server and the CLI need.
type services struct {
	db            *sql.DB
	deliveryLog   storage.NotificationStore
	observations  service.ObservationService
	notifications service.NotificationService
}

func (s *services) Close() error { return s.db.Close() }

// openServices opens the database and builds the services on top of it.
func openServices(
	cfg *config.AppConfig,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	publisher service.EventPublisher,
) (*services, error) {
	db, fresh, err := storage.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if fresh {
		logger.Info("created new database", "path", cfg.DBPath())
	}

	obsStore := storage.NewSQLiteObservationStore(db)
	logStore := storage.NewSQLiteNotificationStore(db)

	dispatcher, err := newDispatcher(cfg, logger, metrics, clock, publisher)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	observations := service.NewObservationService(service.ObservationServiceConfig{
		Store:          obsStore,
		Logger:         logger,
		Metrics:        metrics,
		Clock:          clock,
		StrictChecks:   cfg.StrictChecks,
		EventPublisher: publisher,
	})
	notifications := service.NewNotificationService(service.NotificationServiceConfig{
		Dispatcher:   dispatcher,
		Observations: obsStore,
		Log:          logStore,
		Logger:       logger,
		Metrics:      metrics,
		Clock:        clock,
	})

	return &services{
		db:            db,
		deliveryLog:   logStore,
		observations:  observations,
		notifications: notifications,
	}, nil
}
