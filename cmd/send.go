package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jlh-tonga/meds/internal/config"
	"github.com/jlh-tonga/meds/internal/logger"
	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/observability"
	"github.com/jlh-tonga/meds/internal/service"
)

// batchFile is the YAML layout read by "meds send --file". Observation
// values are kept as written, so 090 stays "090".
type batchFile struct {
	Header       string              `yaml:"header"`
	Recipients   []string            `yaml:"recipients"`
	Observations []map[string]string `yaml:"observations"`
	MetarList    string              `yaml:"metar_list"`
}

func loadBatchFile(path string) (*batchFile, error) {
	//nolint:gosec // path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var b batchFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &b, nil
}

func (b *batchFile) request(header string, to []string, format notification.Format) service.SendRequest {
	req := service.SendRequest{
		Header:     b.Header,
		MetarList:  b.MetarList,
		Recipients: b.Recipients,
		Format:     format,
	}
	if header != "" {
		req.Header = header
	}
	if len(to) > 0 {
		req.Recipients = to
	}
	for _, fields := range b.Observations {
		req.Records = append(req.Records, metar.NewRecord(fields))
	}
	return req
}

type sendOptions struct {
	file    string
	header  string
	to      []string
	format  string
	pending bool
	dryRun  bool
}

// NewSendCmd returns the "send" subcommand that mails a report from a YAML
// batch file or from the pending observations in the database.
func NewSendCmd(cfg *config.AppConfig) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a METAR report from a file or the pending observations",
		Example: `  meds send --file obs.yaml --to ops@example.com
  meds send --file obs.yaml --dry-run
  meds send --pending --header "SANT31 NFTF 250100"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runSend(ctx, cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "YAML file with header, recipients, observations and metar_list")
	f.StringVar(&opts.header, "header", "", "Report header (overrides the file)")
	f.StringSliceVar(&opts.to, "to", nil, "Recipient addresses (overrides the file and METAR_DEFAULT_RECIPIENTS)")
	f.StringVar(&opts.format, "format", "", "Report format: plain or html (default METAR_FORMAT)")
	f.BoolVar(&opts.pending, "pending", false, "Send every stored observation not yet notified")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Render and print the report without sending it")
	cmd.MarkFlagsMutuallyExclusive("file", "pending")
	cmd.MarkFlagsOneRequired("file", "pending")
	return cmd
}

func runSend(ctx context.Context, cfg *config.AppConfig, opts sendOptions, out, errOut io.Writer) error {
	format, err := notification.ParseFormat(opts.format, "")
	if err != nil {
		return err
	}
	log := logger.NewConsoleLogger(errOut, cfg.SlogLevel())
	// One-shot runs have no /metrics endpoint to export to.
	var metrics *observability.Metrics
	clock := clockwork.NewRealClock()

	if opts.pending {
		if opts.dryRun {
			return fmt.Errorf("--dry-run is only supported with --file")
		}
		svcs, err := openServices(cfg, log, metrics, clock, nil)
		if err != nil {
			return err
		}
		defer svcs.Close() //nolint:errcheck

		res, err := svcs.notifications.SendPending(ctx, opts.header)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Fprintln(out, "No pending observations.")
			return nil
		}
		return printResult(out, *res)
	}

	batch, err := loadBatchFile(opts.file)
	if err != nil {
		return err
	}
	req := batch.request(opts.header, opts.to, format)

	if opts.dryRun {
		return runPreview(ctx, cfg, log, out, req)
	}

	// File reports carry no stored observations, so no store is needed.
	d, err := newDispatcher(cfg, log, metrics, clock, nil)
	if err != nil {
		return err
	}
	svc := service.NewNotificationService(service.NotificationServiceConfig{
		Dispatcher: d,
		Logger:     log,
		Metrics:    metrics,
		Clock:      clock,
	})
	res, err := svc.SendReport(ctx, req)
	if err != nil {
		return err
	}
	return printResult(out, res)
}

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	previewStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// printResult prints the dispatch outcome and turns a failure into an error
// so the process exits non-zero.
func printResult(out io.Writer, res notification.Result) error {
	if res.Success {
		fmt.Fprintln(out, okStyle.Render("sent")+" "+res.Message)
		return nil
	}
	fmt.Fprintln(out, failStyle.Render(string(res.State))+" "+res.Message)
	return fmt.Errorf("report not sent: %s", res.Reason)
}

// previewTransport prints the plain part of a report instead of mailing it.
type previewTransport struct {
	out io.Writer
}

func (p previewTransport) Name() string { return "preview" }

func (p previewTransport) Send(_ context.Context, msg notification.Message) error {
	fmt.Fprintf(p.out, "To: %s\nSubject: %s\n", strings.Join(msg.To, ", "), msg.Subject)
	fmt.Fprintln(p.out, previewStyle.Render(msg.PlainText))
	return nil
}

// runPreview runs req through the dispatcher with previewTransport, so the
// preview applies the same record and line checks as a real send.
func runPreview(ctx context.Context, cfg *config.AppConfig, log *slog.Logger, out io.Writer, req service.SendRequest) error {
	d, err := notification.NewDispatcher(notification.DispatcherConfig{
		Transport:         previewTransport{out: out},
		Subject:           cfg.Subject,
		DefaultRecipients: cfg.DefaultRecipients,
		Format:            notification.FormatPlain,
		Logger:            log,
	})
	if err != nil {
		return err
	}
	req.Format = notification.FormatPlain
	res, err := service.NewNotificationService(service.NotificationServiceConfig{
		Dispatcher: d,
		Logger:     log,
	}).SendReport(ctx, req)
	if err != nil {
		return err
	}
	if res.Success {
		return nil
	}
	return printResult(out, res)
}
