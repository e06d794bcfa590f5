package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/wneessen/go-mail"
)

const smtpRetryDelay = 2 * time.Second

// SMTPTransport delivers reports via SMTP using the go-mail library.
type SMTPTransport struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPTransport creates a new SMTPTransport with the given configuration.
func NewSMTPTransport(config SMTPConfig, logger *slog.Logger) *SMTPTransport {
	return &SMTPTransport{config: config, logger: logger}
}

// Name returns the transport identifier.
func (p *SMTPTransport) Name() string { return "smtp" }

// Send delivers msg using the configured SMTP server. Failed attempts are
// retried up to RetryAttempts times unless ctx is done.
func (p *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m, err := p.buildMsg(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(p.config.Port),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(p.config.Encryption)),
	}
	if p.config.Encryption == "ssl_tls" {
		opts = append(opts, mail.WithSSL())
	}
	if p.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(p.config.Username),
			mail.WithPassword(p.config.Password),
		)
	}

	c, err := mail.NewClient(p.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	attempts := p.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	err = retry.Do(
		func() error { return c.DialAndSendWithContext(ctx, m) },
		retry.Attempts(uint(attempts)),
		retry.Delay(smtpRetryDelay),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("smtp delivery attempt failed", "attempt", n+1, "error", err)
		}),
	)
	return lastError(err)
}

func (p *SMTPTransport) buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(p.config.FromAddr); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if len(msg.To) == 0 {
		return nil, errors.New("no recipients")
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients %v: %w", msg.To, err)
	}

	m.Subject(msg.Subject)

	if msg.Format == FormatHTML {
		// Plain-text fallback for clients that don't render HTML.
		plain := msg.PlainText
		if plain == "" {
			plain = msg.Body
		}
		m.SetBodyString(mail.TypeTextPlain, plain)
		m.AddAlternativeString(mail.TypeTextHTML, msg.Body)
	} else {
		m.SetBodyString(mail.TypeTextPlain, msg.Body)
	}
	return m, nil
}

// lastError unpacks the error list returned by retry.Do so callers see the
// transport's own message.
func lastError(err error) error {
	var errs retry.Error
	if !errors.As(err, &errs) {
		return err
	}
	for i := len(errs) - 1; i >= 0; i-- {
		if errs[i] != nil {
			return errs[i]
		}
	}
	return err
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
