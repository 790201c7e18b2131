// Package config provides centralized configuration management for the
// analytics pipeline. Configuration is loaded from a JSON file, overridden
// by OHLCVX_* environment variables, and validated before use.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"log/slog"
)

// AppConfig represents the complete application configuration
type AppConfig struct {
	// Application metadata
	AppName    string `json:"app_name" env:"OHLCVX_APP_NAME"`
	Version    string `json:"version" env:"OHLCVX_VERSION"`
	ConfigPath string `json:"-" env:"OHLCVX_CONFIG_PATH"`

	// Storage configuration
	Storage StorageConfig `json:"storage"`

	// Source configuration
	Source SourceConfig `json:"source"`

	// Analytics configuration
	Analytics AnalyticsConfig `json:"analytics"`

	// Threshold artifact configuration
	Thresholds ThresholdsConfig `json:"thresholds"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// Retry behavior for storage and source I/O
	Retry RetryConfig `json:"retry"`
}

// StorageConfig configures the dataset storage backend
type StorageConfig struct {
	Type        string `json:"type" env:"OHLCVX_STORAGE_TYPE"`         // "duckdb", "memory"
	DatabaseURL string `json:"database_url" env:"OHLCVX_DATABASE_URL"` // Database path or connection string
	Table       string `json:"table" env:"OHLCVX_STORAGE_TABLE"`       // Table holding the computed dataset
}

// SourceConfig configures where new daily rows are read from
type SourceConfig struct {
	Dir         string   `json:"dir" env:"OHLCVX_SOURCE_DIR"` // Directory scanned for *.csv files
	DateLayouts []string `json:"date_layouts"`                // Accepted date formats, tried in order
}

// AnalyticsConfig configures metric computation and calibration
type AnalyticsConfig struct {
	Percentile           float64 `json:"percentile" env:"OHLCVX_PERCENTILE"`        // Calibration percentile in percent
	WindowDays           int     `json:"window_days" env:"OHLCVX_WINDOW_DAYS"`      // Detection window size in days
	RecalibrateOnMissing bool    `json:"recalibrate_on_missing"`                    // Calibrate during run when no artifact exists
	Workers              int     `json:"workers" env:"OHLCVX_ANALYTICS_WORKERS"`    // Per-asset computation goroutines
}

// ThresholdsConfig configures the calibration artifact location
type ThresholdsConfig struct {
	FilePath string `json:"file_path" env:"OHLCVX_THRESHOLDS_PATH"` // JSON artifact path
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level         string            `json:"level" env:"OHLCVX_LOG_LEVEL"`         // Log level: debug, info, warn, error
	Format        string            `json:"format" env:"OHLCVX_LOG_FORMAT"`       // Log format: json, text
	Output        string            `json:"output" env:"OHLCVX_LOG_OUTPUT"`       // Output: stdout, stderr, file
	FilePath      string            `json:"file_path" env:"OHLCVX_LOG_FILE_PATH"` // Log file path
	MaxSize       int               `json:"max_size"`                             // Maximum log file size in MB
	MaxBackups    int               `json:"max_backups"`                          // Maximum log file backups
	MaxAge        int               `json:"max_age"`                              // Maximum log file age in days
	Compress      bool              `json:"compress"`                             // Compress old log files
	ContextFields map[string]string `json:"context_fields"`                       // Additional context fields
}

// RetryConfig configures retry behavior for I/O boundaries
type RetryConfig struct {
	MaxAttempts  int    `json:"max_attempts"`  // Maximum attempts including the first
	InitialDelay string `json:"initial_delay"` // Initial delay between retries
	MaxDelay     string `json:"max_delay"`     // Maximum delay between retries
}

// ConfigManager handles configuration loading and validation
type ConfigManager struct {
	config     *AppConfig
	configPath string
	logger     *slog.Logger
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(configPath string, logger *slog.Logger) *ConfigManager {
	if logger == nil {
		logger = slog.Default()
	}

	return &ConfigManager{
		configPath: configPath,
		logger:     logger,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Environment variables (highest priority)
// 2. Configuration file
// 3. Default values (lowest priority)
func (cm *ConfigManager) LoadConfig(ctx context.Context) (*AppConfig, error) {
	config := DefaultConfig()

	// Load from configuration file if it exists
	if cm.configPath != "" {
		if err := cm.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	if err := cm.loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	// Validate the final configuration
	if err := cm.validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = config
	cm.logger.Info("configuration loaded successfully",
		"config_path", cm.configPath,
		"storage_type", config.Storage.Type,
		"source_dir", config.Source.Dir,
		"percentile", config.Analytics.Percentile,
		"log_level", config.Logging.Level)

	return config, nil
}

// loadFromFile loads configuration from a JSON file
func (cm *ConfigManager) loadFromFile(config *AppConfig) error {
	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		cm.logger.Debug("config file does not exist, using defaults", "path", cm.configPath)
		return nil
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cm.configPath, err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", cm.configPath, err)
	}

	cm.logger.Debug("loaded configuration from file", "path", cm.configPath)
	return nil
}

// loadFromEnv loads configuration from environment variables
func (cm *ConfigManager) loadFromEnv(config *AppConfig) error {
	if val := os.Getenv("OHLCVX_APP_NAME"); val != "" {
		config.AppName = val
	}
	if val := os.Getenv("OHLCVX_VERSION"); val != "" {
		config.Version = val
	}

	// Storage
	if val := os.Getenv("OHLCVX_STORAGE_TYPE"); val != "" {
		config.Storage.Type = val
	}
	if val := os.Getenv("OHLCVX_DATABASE_URL"); val != "" {
		config.Storage.DatabaseURL = val
	}
	if val := os.Getenv("OHLCVX_STORAGE_TABLE"); val != "" {
		config.Storage.Table = val
	}

	// Source
	if val := os.Getenv("OHLCVX_SOURCE_DIR"); val != "" {
		config.Source.Dir = val
	}
	if val := os.Getenv("OHLCVX_DATE_LAYOUTS"); val != "" {
		config.Source.DateLayouts = strings.Split(val, ",")
	}

	// Analytics
	if val := os.Getenv("OHLCVX_PERCENTILE"); val != "" {
		if percentile, err := strconv.ParseFloat(val, 64); err == nil {
			config.Analytics.Percentile = percentile
		}
	}
	if val := os.Getenv("OHLCVX_WINDOW_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			config.Analytics.WindowDays = days
		}
	}
	if val := os.Getenv("OHLCVX_ANALYTICS_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil {
			config.Analytics.Workers = workers
		}
	}
	if val := os.Getenv("OHLCVX_RECALIBRATE_ON_MISSING"); val != "" {
		config.Analytics.RecalibrateOnMissing = val == "true"
	}

	// Thresholds
	if val := os.Getenv("OHLCVX_THRESHOLDS_PATH"); val != "" {
		config.Thresholds.FilePath = val
	}

	// Logging
	if val := os.Getenv("OHLCVX_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("OHLCVX_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("OHLCVX_LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
	if val := os.Getenv("OHLCVX_LOG_FILE_PATH"); val != "" {
		config.Logging.FilePath = val
	}

	cm.logger.Debug("loaded configuration from environment variables")
	return nil
}

// validateConfig validates the configuration for consistency and required fields
func (cm *ConfigManager) validateConfig(config *AppConfig) error {
	var errors []string

	// Validate storage configuration
	switch config.Storage.Type {
	case "duckdb":
		if config.Storage.DatabaseURL == "" {
			errors = append(errors, "storage.database_url is required for DuckDB storage")
		}
	case "memory":
	case "":
		errors = append(errors, "storage.type is required")
	default:
		errors = append(errors, fmt.Sprintf("storage.type %q is not supported (expected duckdb or memory)", config.Storage.Type))
	}
	if config.Storage.Table == "" {
		errors = append(errors, "storage.table is required")
	}

	// Validate analytics configuration
	if config.Analytics.Percentile <= 0 || config.Analytics.Percentile > 100 {
		errors = append(errors, "analytics.percentile must be in (0, 100]")
	}
	if config.Analytics.WindowDays <= 0 {
		errors = append(errors, "analytics.window_days must be greater than 0")
	}
	if config.Analytics.Workers < 0 {
		errors = append(errors, "analytics.workers must not be negative")
	}

	// Validate threshold artifact configuration
	if config.Thresholds.FilePath == "" {
		errors = append(errors, "thresholds.file_path is required")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.Logging.Level] {
		errors = append(errors, "logging.level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[config.Logging.Format] {
		errors = append(errors, "logging.format must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *AppConfig {
	return cm.config
}

// SaveConfig saves the current configuration to the config file
func (cm *ConfigManager) SaveConfig(ctx context.Context) error {
	if cm.configPath == "" {
		return fmt.Errorf("no config path specified")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cm.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(cm.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	cm.logger.Info("configuration saved", "path", cm.configPath)
	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		AppName: "ohlcv-analytics",
		Version: "1.0.0",
		Storage: StorageConfig{
			Type:        "duckdb",
			DatabaseURL: "./data/analytics.db",
			Table:       "daily_records",
		},
		Source: SourceConfig{
			Dir: "./data/incoming",
			DateLayouts: []string{
				"2006-01-02",
				"2006-01-02 15:04:05",
				"2006-01-02T15:04:05Z07:00",
			},
		},
		Analytics: AnalyticsConfig{
			Percentile:           98,
			WindowDays:           2,
			RecalibrateOnMissing: true,
			Workers:              4,
		},
		Thresholds: ThresholdsConfig{
			FilePath: "./data/thresholds.json",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePath:   "",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
			ContextFields: map[string]string{
				"service": "ohlcv-analytics",
				"version": "1.0.0",
			},
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: "100ms",
			MaxDelay:     "5s",
		},
	}
}

// GetStorageConfig returns storage-specific configuration
func (c *AppConfig) GetStorageConfig() StorageConfig {
	return c.Storage
}

// GetSourceConfig returns source-specific configuration
func (c *AppConfig) GetSourceConfig() SourceConfig {
	return c.Source
}

// GetAnalyticsConfig returns analytics-specific configuration
func (c *AppConfig) GetAnalyticsConfig() AnalyticsConfig {
	return c.Analytics
}

// GetLoggingConfig returns logging-specific configuration
func (c *AppConfig) GetLoggingConfig() LoggingConfig {
	return c.Logging
}

// String returns a string representation of the configuration
func (c *AppConfig) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
