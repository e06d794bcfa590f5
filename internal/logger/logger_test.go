package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSystemLogger_WritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, closer, err := NewSystemLogger(dir, slog.LevelInfo, 0)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("observation saved", "station_id", "NFTF")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, SystemLogFile))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "observation saved", entry["msg"])
	assert.Equal(t, "NFTF", entry["station_id"])
	assert.Equal(t, "meds", entry["service"])
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(&buf, slog.LevelWarn)
	log.Info("quiet")
	log.Warn("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
