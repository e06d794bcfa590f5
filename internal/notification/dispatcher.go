package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/observability"
)

// DefaultSubject is the subject used when DispatcherConfig.Subject is empty.
const DefaultSubject = "METAR Submission"

// Event types published for every dispatch outcome.
const (
	EventReportSent     = "metar.report.sent"
	EventReportFailed   = "metar.report.failed"
	EventReportRejected = "metar.report.rejected"
)

// EventPublisher allows the dispatcher to emit events without depending on a
// concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// State is the position of a request in the dispatch pipeline. Only
// StateRenderFailed, StateSent and StateDispatchFailed appear in a Result.
type State string

// Dispatch pipeline states.
const (
	StatePending        State = "pending"
	StateRendering      State = "rendering"
	StateRenderFailed   State = "render_failed"
	StateComposed       State = "composed"
	StateDispatching    State = "dispatching"
	StateSent           State = "sent"
	StateDispatchFailed State = "dispatch_failed"
)

// Reason explains a failed Result.
type Reason string

// Failure reasons.
const (
	ReasonValidation   Reason = "validation"
	ReasonEmptyReport  Reason = "empty_report"
	ReasonNoRecipients Reason = "no_recipients"
	ReasonTransport    Reason = "transport"
	ReasonTimeout      Reason = "timeout"
)

// Item is one entry of a report: either a record to render or a line that
// was rendered elsewhere.
type Item struct {
	// ID identifies a persisted record. Items with an ID are reported back in
	// Result.Notified after a successful send.
	ID     string
	Record metar.Record
	// Line, when non-empty, is sent as is and Record is ignored.
	Line string
	// CheckLine requires Line to have the layout metar.Render produces.
	CheckLine bool
}

// RecordItem returns an Item for a record; id may be empty for inline records.
func RecordItem(id string, r metar.Record) Item { return Item{ID: id, Record: r} }

// LineItem returns an Item for a free-form line, sent without checks.
func LineItem(line string) Item { return Item{Line: line} }

// MetarLineItem returns an Item for a METAR line rendered elsewhere. Its
// groups are checked like a record's fields before anything is sent.
func MetarLineItem(line string) Item { return Item{Line: line, CheckLine: true} }

// Request is one report to dispatch.
type Request struct {
	Header string
	Items  []Item
	// Recipients overrides the configured default recipients when non-empty.
	Recipients []string
	// Format overrides the configured default format when non-empty.
	Format Format
}

// Result is the structured outcome of Dispatch.
type Result struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
	State      State    `json:"state"`
	Reason     Reason   `json:"reason,omitempty"`
	// Notified lists the IDs of the records the caller should mark as notified.
	Notified []string `json:"notified,omitempty"`
	// MissingFields maps an item key (its ID, or "#n" by position) to the
	// required fields it lacks.
	MissingFields map[string][]string `json:"missing_fields,omitempty"`
}

// DispatcherConfig holds the dispatcher dependencies and options.
type DispatcherConfig struct {
	Transport         Transport
	Subject           string
	DefaultRecipients []string
	Format            Format
	HTMLVariant       HTMLVariant
	// Timeout bounds the transport call. Zero means no limit beyond ctx.
	Timeout time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Clock   clockwork.Clock
	// EventPublisher is optional. When set, every outcome is published.
	EventPublisher EventPublisher
}

// Dispatcher validates, renders, composes and sends METAR reports. It keeps
// no per-request state, so one Dispatcher may serve concurrent calls.
type Dispatcher struct {
	cfg DispatcherConfig
}

// NewDispatcher creates a Dispatcher, filling unset options with defaults.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Transport == nil {
		return nil, errors.New("dispatcher requires a transport")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Format == "" {
		cfg.Format = FormatHTML
	}
	if cfg.HTMLVariant == "" {
		cfg.HTMLVariant = VariantPre
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	cfg.DefaultRecipients = cleanRecipients(cfg.DefaultRecipients)
	return &Dispatcher{cfg: cfg}, nil
}

// DefaultRecipients returns the recipients used when a request names none.
func (d *Dispatcher) DefaultRecipients() []string {
	return append([]string(nil), d.cfg.DefaultRecipients...)
}

// Subject returns the fixed report subject.
func (d *Dispatcher) Subject() string { return d.cfg.Subject }

// Dispatch runs req through the pipeline and calls the transport at most
// once. Errors never escape: every failure is reported in the Result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	d.enter(StatePending, req)
	d.enter(StateRendering, req)
	lines, missing := d.render(req.Items)
	if len(missing) > 0 {
		return d.reject(req, Result{
			State:         StateRenderFailed,
			Reason:        ReasonValidation,
			Message:       missingMessage(missing),
			MissingFields: missing,
		})
	}

	format := req.Format
	if format == "" {
		format = d.cfg.Format
	}
	report, err := Compose(req.Header, lines, format, d.cfg.HTMLVariant)
	if err != nil {
		res := Result{State: StateRenderFailed, Message: err.Error()}
		var empty *EmptyReportError
		if errors.As(err, &empty) {
			res.Reason = ReasonEmptyReport
			res.Message = "no observations to send"
		}
		return d.reject(req, res)
	}
	d.enter(StateComposed, req)

	recipients := cleanRecipients(req.Recipients)
	if len(recipients) == 0 {
		recipients = d.DefaultRecipients()
	}
	if len(recipients) == 0 {
		return d.reject(req, Result{
			State:   StateDispatchFailed,
			Reason:  ReasonNoRecipients,
			Message: "no recipients configured",
		})
	}

	return d.send(ctx, req, report, recipients)
}

// render turns every item into a line. It validates all items before
// giving up so the caller learns about every missing field at once.
func (d *Dispatcher) render(items []Item) ([]string, map[string][]string) {
	lines := make([]string, 0, len(items))
	var missing map[string][]string
	fail := func(key string, fields []string) {
		if missing == nil {
			missing = make(map[string][]string)
		}
		missing[key] = fields
	}
	for i, it := range items {
		if it.Line != "" {
			if it.CheckLine {
				if fields := metar.LineMissing(it.Line); len(fields) > 0 {
					fail(itemKey(it, i), fields)
					continue
				}
			}
			lines = append(lines, it.Line)
			continue
		}
		line, err := metar.Render(it.Record)
		var ie *metar.InvalidInputError
		if errors.As(err, &ie) {
			fail(itemKey(it, i), ie.Missing)
			continue
		}
		lines = append(lines, line)
	}
	return lines, missing
}

func (d *Dispatcher) send(ctx context.Context, req Request, report Report, recipients []string) Result {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	msg := Message{
		To:        recipients,
		Subject:   d.cfg.Subject,
		Body:      report.Body,
		Format:    report.Format,
		PlainText: report.Plain,
	}

	d.enter(StateDispatching, req)
	start := d.cfg.Clock.Now()
	sendErr := d.cfg.Transport.Send(ctx, msg)
	elapsed := d.cfg.Clock.Since(start)

	if sendErr != nil {
		terr := &TransportError{
			Transport: d.cfg.Transport.Name(),
			Detail:    sendErr.Error(),
			Timeout:   errors.Is(sendErr, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded),
			Err:       sendErr,
		}
		d.cfg.Logger.Error("metar report delivery failed",
			"transport", terr.Transport,
			"recipients", recipients,
			"observations", len(req.Items),
			"timeout", terr.Timeout,
			"error", sendErr,
		)

		res := Result{
			Success:    false,
			Recipients: []string{},
			State:      StateDispatchFailed,
			Reason:     ReasonTransport,
			Message:    "failed to send METAR report: " + terr.Detail,
		}
		if terr.Timeout {
			res.Reason = ReasonTimeout
			if d.cfg.Timeout > 0 {
				res.Message = fmt.Sprintf("failed to send METAR report: timed out after %s", d.cfg.Timeout)
			}
		}
		d.cfg.Metrics.ReportDispatched(string(res.State), elapsed.Seconds())
		d.publish(EventReportFailed, req, res, recipients, terr.Error())
		return res
	}

	var notified []string
	for _, it := range req.Items {
		if it.ID != "" {
			notified = append(notified, it.ID)
		}
	}

	res := Result{
		Success:    true,
		Recipients: recipients,
		State:      StateSent,
		Message:    "METAR sent successfully to " + strings.Join(recipients, ", "),
		Notified:   notified,
	}
	d.cfg.Logger.Info("metar report sent",
		"transport", d.cfg.Transport.Name(),
		"recipients", recipients,
		"observations", len(req.Items),
		"duration", elapsed,
	)
	d.cfg.Metrics.ReportDispatched(string(res.State), elapsed.Seconds())
	d.publish(EventReportSent, req, res, recipients, "")
	return res
}

// reject finalizes a request that never reached the transport.
func (d *Dispatcher) reject(req Request, res Result) Result {
	res.Success = false
	res.Recipients = []string{}
	d.cfg.Logger.Warn("metar report rejected",
		"state", res.State,
		"reason", res.Reason,
		"message", res.Message,
	)
	d.cfg.Metrics.ReportDispatched(string(res.State), 0)
	d.publish(EventReportRejected, req, res, nil, res.Message)
	return res
}

func (d *Dispatcher) publish(eventType string, req Request, res Result, recipients []string, errMsg string) {
	if d.cfg.EventPublisher == nil {
		return
	}
	d.cfg.EventPublisher.Publish(eventType, map[string]string{
		"transport":    d.cfg.Transport.Name(),
		"subject":      d.cfg.Subject,
		"header":       req.Header,
		"recipients":   strings.Join(recipients, ","),
		"observations": strconv.Itoa(len(req.Items)),
		"state":        string(res.State),
		"reason":       string(res.Reason),
		"error":        errMsg,
	})
}

func (d *Dispatcher) enter(state State, req Request) {
	d.cfg.Logger.Debug("metar report state", "state", state, "header", req.Header, "observations", len(req.Items))
}

func itemKey(it Item, i int) string {
	if it.ID != "" {
		return it.ID
	}
	return "#" + strconv.Itoa(i+1)
}

func missingMessage(missing map[string][]string) string {
	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(missing[k], ", ")))
	}
	return "observations missing required fields: " + strings.Join(parts, "; ")
}

// cleanRecipients trims addresses, splits comma-separated entries and drops
// blanks. It returns nil when nothing is left.
func cleanRecipients(in []string) []string {
	var out []string
	for _, r := range in {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
