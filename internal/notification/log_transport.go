package notification

import (
	"context"
	"log/slog"
)

// LogTransport writes reports to the system log instead of sending them.
// It is used when no SMTP host is configured.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a LogTransport writing to logger.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Name returns the transport identifier.
func (t *LogTransport) Name() string { return "log" }

// Send logs msg and always succeeds unless ctx is already done.
func (t *LogTransport) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.logger.Info("report not sent: smtp is not configured",
		"to", msg.To,
		"subject", msg.Subject,
		"format", string(msg.Format),
		"body", msg.Body,
	)
	return nil
}
