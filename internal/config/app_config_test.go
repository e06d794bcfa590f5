package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &AppConfig{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, c.SlogLevel())
		})
	}
}

func TestAppConfig_Paths(t *testing.T) {
	c := &AppConfig{DataDir: "/data"}
	assert.Equal(t, "/data/logs", c.LogDir())
	assert.Equal(t, "/data/meds.db", c.DBPath())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MEDS_DATA_DIR", "/tmp/test-meds")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8990, cfg.Port)
	assert.Equal(t, "/tmp/test-meds", cfg.DataDir)
	assert.Equal(t, "MEDSystem <system@jlh-tonga.com>", cfg.Sender)
	assert.Equal(t, "METAR Submission", cfg.Subject)
	assert.Equal(t, []string{"regi@jlh-tonga.com", "reggy.hingano@gmail.com"}, cfg.DefaultRecipients)
	assert.Equal(t, "pre", cfg.HTMLVariant)
	assert.Equal(t, "html", cfg.Format)
	assert.Equal(t, 30*time.Second, cfg.DispatchTimeout())
	assert.Zero(t, cfg.AutoDispatchInterval())
	assert.Equal(t, 1, cfg.SMTPRetryAttempts)
	assert.False(t, cfg.SMTPConfigured())
	assert.False(t, cfg.StrictChecks)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MEDS_DATA_DIR", "/tmp/test-meds")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_ENCRYPTION", "ssl_tls")
	t.Setenv("SMTP_RETRY_ATTEMPTS", "3")
	t.Setenv("METAR_DEFAULT_RECIPIENTS", "ops@example.com")
	t.Setenv("METAR_HTML_VARIANT", "br")
	t.Setenv("METAR_DISPATCH_TIMEOUT_MS", "1500")
	t.Setenv("METAR_AUTO_DISPATCH_MINUTES", "10")
	t.Setenv("METAR_STRICT_CHECKS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.SMTPConfigured())
	assert.Equal(t, []string{"ops@example.com"}, cfg.DefaultRecipients)
	assert.Equal(t, 1500*time.Millisecond, cfg.DispatchTimeout())
	assert.Equal(t, 10*time.Minute, cfg.AutoDispatchInterval())
	assert.True(t, cfg.StrictChecks)

	smtp := cfg.SMTP()
	assert.Equal(t, "smtp.example.com", smtp.Host)
	assert.Equal(t, 465, smtp.Port)
	assert.Equal(t, "ssl_tls", smtp.Encryption)
	assert.Equal(t, 3, smtp.RetryAttempts)
	assert.Equal(t, cfg.Sender, smtp.FromAddr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"format", "METAR_FORMAT", "pdf"},
		{"variant", "METAR_HTML_VARIANT", "table"},
		{"encryption", "SMTP_ENCRYPTION", "tls13"},
		{"negative timeout", "METAR_DISPATCH_TIMEOUT_MS", "-1"},
		{"negative auto dispatch", "METAR_AUTO_DISPATCH_MINUTES", "-5"},
		{"non-numeric port", "PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MEDS_DATA_DIR", "/tmp/test-meds")
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
