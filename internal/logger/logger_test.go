package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/config"
)

func newFileManager(t *testing.T, cfg config.LoggingConfig) (*LoggerManager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ohlcvx.log")
	cfg.Output = "file"
	cfg.FilePath = path
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 10
	}

	mgr, err := NewLoggerManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr, path
}

func readLog(t *testing.T, mgr *LoggerManager, path string) string {
	t.Helper()
	require.NoError(t, mgr.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestLoggerManagerWritesJSON(t *testing.T) {
	mgr, path := newFileManager(t, config.LoggingConfig{
		Level:         "info",
		Format:        "json",
		ContextFields: map[string]string{"service": "ohlcv-analytics"},
	})

	mgr.GetLogger().Info("hello", "table", "daily_records")

	output := readLog(t, mgr, path)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.Split(output, "\n")[0]), &entry))

	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "ohlcv-analytics", entry["service"])
	assert.Equal(t, "daily_records", entry["table"])

	_, err := time.Parse(time.RFC3339Nano, entry["time"].(string))
	assert.NoError(t, err)
}

func TestLoggerManagerLevelFiltering(t *testing.T) {
	mgr, path := newFileManager(t, config.LoggingConfig{Level: "warn", Format: "json"})

	mgr.GetLogger().Info("quiet")
	mgr.GetLogger().Warn("loud")

	output := readLog(t, mgr, path)
	assert.NotContains(t, output, "quiet")
	assert.Contains(t, output, "loud")
}

func TestGetComponentLogger(t *testing.T) {
	mgr, path := newFileManager(t, config.LoggingConfig{Level: "info", Format: "json"})

	first := mgr.GetComponentLogger("storage")
	assert.Same(t, first, mgr.GetComponentLogger("storage"))

	first.Info("ready")
	mgr.GetComponentLogger("pipeline").Info("ready")

	output := readLog(t, mgr, path)
	assert.Contains(t, output, `"component":"storage"`)
	assert.Contains(t, output, `"component":"pipeline"`)
}

func TestFileOutputRequiresPath(t *testing.T) {
	_, err := NewLoggerManager(config.LoggingConfig{Output: "file"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file path is required")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLogLevel(tt.input), "level %q", tt.input)
	}
}

func TestRunIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRunID(ctx))

	ctx = WithRunID(ctx, "run-123")
	assert.Equal(t, "run-123", GetRunID(ctx))
}

func TestTimedOperation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		mgr, path := newFileManager(t, config.LoggingConfig{Level: "info", Format: "json"})

		err := TimedOperation(mgr.GetLogger(), "load_dataset", func() error { return nil })
		require.NoError(t, err)

		output := readLog(t, mgr, path)
		assert.Contains(t, output, "timed operation completed")
		assert.Contains(t, output, `"operation":"load_dataset"`)
	})

	t.Run("failure returns the error", func(t *testing.T) {
		mgr, path := newFileManager(t, config.LoggingConfig{Level: "info", Format: "json"})

		boom := fmt.Errorf("disk full")
		err := TimedOperation(mgr.GetLogger(), "replace_dataset", func() error { return boom })
		assert.Equal(t, boom, err)

		output := readLog(t, mgr, path)
		assert.Contains(t, output, "timed operation failed")
		assert.Contains(t, output, "disk full")
	})
}

func TestLogError(t *testing.T) {
	mgr, path := newFileManager(t, config.LoggingConfig{Level: "info", Format: "json"})

	LogError(mgr.GetLogger(), fmt.Errorf("no such table"), "command failed", "command", "stats")

	output := readLog(t, mgr, path)
	assert.Contains(t, output, "command failed")
	assert.Contains(t, output, "no such table")
	assert.Contains(t, output, `"command":"stats"`)
}
