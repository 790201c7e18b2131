package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "ohlcv-analytics", config.AppName)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, "duckdb", config.Storage.Type)
	assert.Equal(t, "./data/analytics.db", config.Storage.DatabaseURL)
	assert.Equal(t, "daily_records", config.Storage.Table)
	assert.Equal(t, float64(98), config.Analytics.Percentile)
	assert.Equal(t, 2, config.Analytics.WindowDays)
	assert.True(t, config.Analytics.RecalibrateOnMissing)
	assert.Equal(t, "./data/thresholds.json", config.Thresholds.FilePath)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, 3, config.Retry.MaxAttempts)
}

func TestConfigValidation(t *testing.T) {
	logger := slog.Default()
	cm := NewConfigManager("", logger)

	t.Run("valid config passes validation", func(t *testing.T) {
		config := DefaultConfig()
		err := cm.validateConfig(config)
		assert.NoError(t, err)
	})

	t.Run("missing storage type fails", func(t *testing.T) {
		config := DefaultConfig()
		config.Storage.Type = ""
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "storage.type is required")
	})

	t.Run("unknown storage type fails", func(t *testing.T) {
		config := DefaultConfig()
		config.Storage.Type = "postgres"
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})

	t.Run("duckdb requires database url", func(t *testing.T) {
		config := DefaultConfig()
		config.Storage.DatabaseURL = ""
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "storage.database_url is required")
	})

	t.Run("memory storage needs no database url", func(t *testing.T) {
		config := DefaultConfig()
		config.Storage.Type = "memory"
		config.Storage.DatabaseURL = ""
		err := cm.validateConfig(config)
		assert.NoError(t, err)
	})

	t.Run("missing table fails", func(t *testing.T) {
		config := DefaultConfig()
		config.Storage.Table = ""
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "storage.table is required")
	})

	t.Run("percentile bounds", func(t *testing.T) {
		config := DefaultConfig()
		config.Analytics.Percentile = 0
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "analytics.percentile")

		config.Analytics.Percentile = 101
		err = cm.validateConfig(config)
		assert.Error(t, err)

		config.Analytics.Percentile = 100
		err = cm.validateConfig(config)
		assert.NoError(t, err)
	})

	t.Run("window days must be positive", func(t *testing.T) {
		config := DefaultConfig()
		config.Analytics.WindowDays = 0
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "analytics.window_days")
	})

	t.Run("missing thresholds path fails", func(t *testing.T) {
		config := DefaultConfig()
		config.Thresholds.FilePath = ""
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "thresholds.file_path is required")
	})

	t.Run("invalid log level fails", func(t *testing.T) {
		config := DefaultConfig()
		config.Logging.Level = "invalid"
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logging.level must be one of")
	})

	t.Run("invalid log format fails", func(t *testing.T) {
		config := DefaultConfig()
		config.Logging.Format = "invalid"
		err := cm.validateConfig(config)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logging.format must be one of")
	})
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.json")

	testConfig := DefaultConfig()
	testConfig.AppName = "test-app"
	testConfig.Version = "2.0.0"
	testConfig.Storage.Type = "memory"
	testConfig.Storage.DatabaseURL = ":memory:"
	testConfig.Analytics.Percentile = 95
	testConfig.Logging.Level = "debug"
	testConfig.Logging.Format = "text"

	configData, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, configData, 0644))

	logger := slog.Default()
	cm := NewConfigManager(configPath, logger)

	t.Run("loads config from file", func(t *testing.T) {
		ctx := context.Background()
		loadedConfig, err := cm.LoadConfig(ctx)
		require.NoError(t, err)

		assert.Equal(t, "test-app", loadedConfig.AppName)
		assert.Equal(t, "2.0.0", loadedConfig.Version)
		assert.Equal(t, "memory", loadedConfig.Storage.Type)
		assert.Equal(t, float64(95), loadedConfig.Analytics.Percentile)
		assert.Equal(t, "debug", loadedConfig.Logging.Level)
		assert.Equal(t, "text", loadedConfig.Logging.Format)
	})

	t.Run("handles invalid json file", func(t *testing.T) {
		invalidPath := filepath.Join(tempDir, "invalid.json")
		require.NoError(t, os.WriteFile(invalidPath, []byte("invalid json"), 0644))

		cm := NewConfigManager(invalidPath, logger)
		ctx := context.Background()
		_, err := cm.LoadConfig(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("handles non-existent file gracefully", func(t *testing.T) {
		nonExistentPath := filepath.Join(tempDir, "does_not_exist.json")
		cm := NewConfigManager(nonExistentPath, logger)

		ctx := context.Background()
		config, err := cm.LoadConfig(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, config)
		assert.Equal(t, "ohlcv-analytics", config.AppName)
	})
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	logger := slog.Default()
	cm := NewConfigManager("", logger)

	envVars := map[string]string{
		"OHLCVX_APP_NAME":       "env-test-app",
		"OHLCVX_VERSION":        "3.0.0",
		"OHLCVX_STORAGE_TYPE":   "memory",
		"OHLCVX_DATABASE_URL":   ":memory:",
		"OHLCVX_STORAGE_TABLE":  "crypto_daily",
		"OHLCVX_SOURCE_DIR":     "/tmp/incoming",
		"OHLCVX_PERCENTILE":     "95.5",
		"OHLCVX_WINDOW_DAYS":    "7",
		"OHLCVX_THRESHOLDS_PATH": "/tmp/thresholds.json",
		"OHLCVX_LOG_LEVEL":      "error",
		"OHLCVX_LOG_FORMAT":     "text",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	t.Run("loads config from environment", func(t *testing.T) {
		config := DefaultConfig()
		err := cm.loadFromEnv(config)
		require.NoError(t, err)

		assert.Equal(t, "env-test-app", config.AppName)
		assert.Equal(t, "3.0.0", config.Version)
		assert.Equal(t, "memory", config.Storage.Type)
		assert.Equal(t, ":memory:", config.Storage.DatabaseURL)
		assert.Equal(t, "crypto_daily", config.Storage.Table)
		assert.Equal(t, "/tmp/incoming", config.Source.Dir)
		assert.Equal(t, 95.5, config.Analytics.Percentile)
		assert.Equal(t, 7, config.Analytics.WindowDays)
		assert.Equal(t, "/tmp/thresholds.json", config.Thresholds.FilePath)
		assert.Equal(t, "error", config.Logging.Level)
		assert.Equal(t, "text", config.Logging.Format)
	})

	t.Run("handles invalid numeric values", func(t *testing.T) {
		t.Setenv("OHLCVX_WINDOW_DAYS", "not-a-number")

		config := DefaultConfig()
		originalWindow := config.Analytics.WindowDays

		err := cm.loadFromEnv(config)
		assert.NoError(t, err)
		assert.Equal(t, originalWindow, config.Analytics.WindowDays)
	})
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "save_test.json")

	logger := slog.Default()
	cm := NewConfigManager(configPath, logger)
	cm.config = DefaultConfig()
	cm.config.AppName = "saved-config-test"
	cm.config.Version = "4.0.0"

	t.Run("saves config to file", func(t *testing.T) {
		ctx := context.Background()
		err := cm.SaveConfig(ctx)
		require.NoError(t, err)

		data, err := os.ReadFile(configPath)
		require.NoError(t, err)

		var savedConfig AppConfig
		err = json.Unmarshal(data, &savedConfig)
		require.NoError(t, err)

		assert.Equal(t, "saved-config-test", savedConfig.AppName)
		assert.Equal(t, "4.0.0", savedConfig.Version)
	})

	t.Run("creates directory if not exists", func(t *testing.T) {
		nestedPath := filepath.Join(tempDir, "nested", "dir", "config.json")
		cm := NewConfigManager(nestedPath, logger)
		cm.config = DefaultConfig()

		ctx := context.Background()
		err := cm.SaveConfig(ctx)
		assert.NoError(t, err)

		assert.FileExists(t, nestedPath)
	})

	t.Run("fails when no config path specified", func(t *testing.T) {
		cm := NewConfigManager("", logger)
		cm.config = DefaultConfig()

		ctx := context.Background()
		err := cm.SaveConfig(ctx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no config path specified")
	})
}

func TestConfigAccessors(t *testing.T) {
	config := DefaultConfig()

	t.Run("storage config accessor", func(t *testing.T) {
		assert.Equal(t, config.Storage, config.GetStorageConfig())
	})

	t.Run("source config accessor", func(t *testing.T) {
		assert.Equal(t, config.Source, config.GetSourceConfig())
	})

	t.Run("analytics config accessor", func(t *testing.T) {
		assert.Equal(t, config.Analytics, config.GetAnalyticsConfig())
	})

	t.Run("logging config accessor", func(t *testing.T) {
		assert.Equal(t, config.Logging, config.GetLoggingConfig())
	})
}

func TestCompleteConfigFlow(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "complete_test.json")

	initialConfig := DefaultConfig()
	initialConfig.AppName = "flow-test"
	initialConfig.Storage.Type = "memory"
	initialConfig.Analytics.Percentile = 90

	configData, err := json.MarshalIndent(initialConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, configData, 0644))

	// Environment variables override file values
	t.Setenv("OHLCVX_STORAGE_TYPE", "duckdb")
	t.Setenv("OHLCVX_DATABASE_URL", "./test.db")
	t.Setenv("OHLCVX_LOG_LEVEL", "debug")

	logger := slog.Default()
	cm := NewConfigManager(configPath, logger)

	t.Run("complete load flow with precedence", func(t *testing.T) {
		ctx := context.Background()
		config, err := cm.LoadConfig(ctx)
		require.NoError(t, err)

		// Values from file
		assert.Equal(t, "flow-test", config.AppName)
		assert.Equal(t, float64(90), config.Analytics.Percentile)

		// Values overridden by environment
		assert.Equal(t, "duckdb", config.Storage.Type)
		assert.Equal(t, "./test.db", config.Storage.DatabaseURL)
		assert.Equal(t, "debug", config.Logging.Level)

		// Default values for unspecified fields
		assert.Equal(t, "daily_records", config.Storage.Table)
	})
}

func TestConfigManagerState(t *testing.T) {
	logger := slog.Default()
	cm := NewConfigManager("test.json", logger)

	t.Run("initially no config", func(t *testing.T) {
		assert.Nil(t, cm.GetConfig())
	})

	t.Run("returns config after load", func(t *testing.T) {
		ctx := context.Background()
		loadedConfig, err := cm.LoadConfig(ctx)
		require.NoError(t, err)

		retrievedConfig := cm.GetConfig()
		assert.Equal(t, loadedConfig, retrievedConfig)
		assert.NotNil(t, retrievedConfig)
	})
}
