package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jlh-tonga/meds/internal/api"
	"github.com/jlh-tonga/meds/internal/build"
	"github.com/jlh-tonga/meds/internal/config"
	"github.com/jlh-tonga/meds/internal/eventbus"
	"github.com/jlh-tonga/meds/internal/logger"
	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/observability"
	"github.com/jlh-tonga/meds/internal/scheduler"
	"github.com/jlh-tonga/meds/internal/server"
)

// NewWebCmd returns the "web" subcommand that starts the HTTP server.
func NewWebCmd(cfg *config.AppConfig) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Start the METAR notifier API server",
		Long: `Start the HTTP server that accepts observations, sends METAR reports and
exposes the delivery log, /health and /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			serverURL := fmt.Sprintf("http://localhost:%d", cfg.Port)
			logFile := filepath.Join(cfg.LogDir(), logger.SystemLogFile)
			printBanner(build.Version, serverURL, logFile)

			if err := runWeb(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred: %v\nPlease check the logs at: %s\n", err, logFile)
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	return cmd
}

func runWeb(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel(), cfg.LogMaxSizeMB)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close() //nolint:errcheck

	sysLogger.Info("meds starting",
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
		slog.Bool("smtp_configured", cfg.SMTPConfigured()),
		slog.Bool("strict_checks", cfg.StrictChecks),
	)

	clock := clockwork.NewRealClock()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	bus := eventbus.New(eventbus.Config{Logger: sysLogger, Clock: clock})

	svcs, err := openServices(cfg, sysLogger, metrics, clock, bus)
	if err != nil {
		bus.Close()
		return err
	}

	recorder := notification.NewDeliveryRecorder(svcs.deliveryLog, sysLogger, clock)
	bus.Subscribe(func(e eventbus.Event) {
		recorder.Handle(e.Type, e.Payload)
	})

	// Stop order: scheduler, then bus (drains pending log writes), then DB.
	defer func() {
		if cerr := svcs.Close(); cerr != nil {
			sysLogger.Error("closing database", "error", cerr)
		}
	}()
	defer bus.Close()

	sched, err := scheduler.New(scheduler.Config{
		Sender:     svcs.notifications,
		Interval:   cfg.AutoDispatchInterval(),
		Header:     cfg.AutoDispatchHeader,
		RunTimeout: cfg.DispatchTimeout(),
		Logger:     sysLogger,
		Clock:      clock,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer func() {
		if serr := sched.Stop(); serr != nil {
			sysLogger.Warn("stopping scheduler", "error", serr)
		}
	}()

	apiSrv := api.New(svcs.observations, svcs.notifications, sysLogger)
	srv := server.New(server.Config{
		API:            apiSrv,
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:         sysLogger,
	})

	sysLogger.Info("server ready", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	return srv.Run(ctx)
}

var (
	bannerTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	bannerLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// printBanner writes the startup banner to stdout. It is the only output
// visible in the terminal during normal operation; all structured logs go
// to the log file instead.
func printBanner(version, serverURL, logFile string) {
	fmt.Println()
	fmt.Println(bannerTitle.Render("MEDS METAR notifier " + version))
	fmt.Printf("%s %s\n", bannerLabel.Render("API: "), serverURL+"/api")
	fmt.Printf("%s %s\n\n", bannerLabel.Render("Logs:"), logFile)
}
