package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/jlh-tonga/meds/internal/notification"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8990.
	Port int `envconfig:"PORT" default:"8990"`

	// DataDir is the root data directory. Defaults to ~/.meds.
	DataDir string `envconfig:"MEDS_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogMaxSizeMB is the size at which system.log is rotated.
	LogMaxSizeMB int `envconfig:"LOG_MAX_SIZE_MB" default:"20"`

	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	// SMTPRetryAttempts is the total number of delivery attempts per report.
	SMTPRetryAttempts int `envconfig:"SMTP_RETRY_ATTEMPTS" default:"1"`

	Sender            string   `envconfig:"METAR_SENDER" default:"MEDSystem <system@jlh-tonga.com>"`
	Subject           string   `envconfig:"METAR_SUBJECT" default:"METAR Submission"`
	DefaultRecipients []string `envconfig:"METAR_DEFAULT_RECIPIENTS" default:"regi@jlh-tonga.com,reggy.hingano@gmail.com"`
	HTMLVariant       string   `envconfig:"METAR_HTML_VARIANT" default:"pre"`
	Format            string   `envconfig:"METAR_FORMAT" default:"html"`
	DispatchTimeoutMS int      `envconfig:"METAR_DISPATCH_TIMEOUT_MS" default:"30000"`

	// AutoDispatchMinutes enables periodic sending of pending observations.
	// Zero disables it.
	AutoDispatchMinutes int    `envconfig:"METAR_AUTO_DISPATCH_MINUTES" default:"0"`
	AutoDispatchHeader  string `envconfig:"METAR_AUTO_DISPATCH_HEADER"`

	// StrictChecks rejects observations that fail the plausibility checks.
	StrictChecks bool `envconfig:"METAR_STRICT_CHECKS" default:"false"`

	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.meds if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".meds")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values envconfig cannot check on its own.
func (c *AppConfig) Validate() error {
	if _, err := notification.ParseFormat(c.Format, notification.FormatHTML); err != nil {
		return fmt.Errorf("METAR_FORMAT: %w", err)
	}
	if _, err := notification.ParseHTMLVariant(c.HTMLVariant); err != nil {
		return fmt.Errorf("METAR_HTML_VARIANT: %w", err)
	}
	switch c.SMTPEncryption {
	case "", "none", "starttls", "ssl_tls":
	default:
		return fmt.Errorf("SMTP_ENCRYPTION: unsupported value %q", c.SMTPEncryption)
	}
	if c.DispatchTimeoutMS < 0 {
		return fmt.Errorf("METAR_DISPATCH_TIMEOUT_MS must not be negative")
	}
	if c.AutoDispatchMinutes < 0 {
		return fmt.Errorf("METAR_AUTO_DISPATCH_MINUTES must not be negative")
	}
	return nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.meds/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the SQLite database file.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "meds.db")
}

// DispatchTimeout returns the transport timeout. Zero means no limit.
func (c *AppConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutMS) * time.Millisecond
}

// AutoDispatchInterval returns the auto-dispatch period, or zero when disabled.
func (c *AppConfig) AutoDispatchInterval() time.Duration {
	return time.Duration(c.AutoDispatchMinutes) * time.Minute
}

// SMTPConfigured reports whether an SMTP host was provided.
func (c *AppConfig) SMTPConfigured() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

// SMTP returns the transport settings derived from the SMTP_* variables.
func (c *AppConfig) SMTP() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:          c.SMTPHost,
		Port:          c.SMTPPort,
		Username:      c.SMTPUsername,
		Password:      c.SMTPPassword,
		FromAddr:      c.Sender,
		Encryption:    c.SMTPEncryption,
		RetryAttempts: c.SMTPRetryAttempts,
	}
}
