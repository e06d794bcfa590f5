// Package logger builds the structured slog loggers used by the server and
// the CLI. The server writes JSON to <logDir>/system.log, rotated by size.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 5
	defaultMaxAgeDays = 30
)

// SystemLogFile is the name of the server log inside the log directory.
const SystemLogFile = "system.log"

// NewSystemLogger creates a JSON slog.Logger that writes to
// <logDir>/system.log and rotates it once it exceeds maxSizeMB.
// The returned closer releases the log file.
func NewSystemLogger(logDir string, level slog.Level, maxSizeMB int) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}
	if maxSizeMB <= 0 {
		maxSizeMB = defaultMaxSizeMB
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, SystemLogFile),
		MaxSize:    maxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", "meds"), w, nil
}

// NewConsoleLogger creates a text logger for interactive commands.
func NewConsoleLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
