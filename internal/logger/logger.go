// Package logger provides structured logging for the analytics pipeline. It
// builds on the standard library's slog package and supports per-component
// loggers, run tracing through the context, and configurable output formats
// including rotating log files.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/config"
)

// ContextKey represents keys for context values
type ContextKey string

// RunIDKey is the context key for the pipeline run ID.
const RunIDKey ContextKey = "run_id"

// LoggerManager manages structured logging for the application
type LoggerManager struct {
	baseLogger     *slog.Logger
	config         config.LoggingConfig
	writer         io.WriteCloser
	componentCache map[string]*slog.Logger
}

// NewLoggerManager creates a new logger manager with the specified configuration
func NewLoggerManager(cfg config.LoggingConfig) (*LoggerManager, error) {
	writer, err := createWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.Level),
		AddSource: cfg.Level == "debug",
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				// Use ISO 8601 format for timestamps
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
				}
			case slog.LevelKey:
				// Use uppercase level names
				if level, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(strings.ToUpper(level.String()))
				}
			}
			return a
		},
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default:
		handler = slog.NewJSONHandler(writer, opts)
	}

	baseAttrs := make([]slog.Attr, 0, len(cfg.ContextFields))
	for key, value := range cfg.ContextFields {
		baseAttrs = append(baseAttrs, slog.String(key, value))
	}

	var baseLogger *slog.Logger
	if len(baseAttrs) > 0 {
		baseLogger = slog.New(handler.WithAttrs(baseAttrs))
	} else {
		baseLogger = slog.New(handler)
	}

	return &LoggerManager{
		baseLogger:     baseLogger,
		config:         cfg,
		writer:         writer,
		componentCache: make(map[string]*slog.Logger),
	}, nil
}

// createWriter creates the appropriate writer based on configuration
func createWriter(cfg config.LoggingConfig) (io.WriteCloser, error) {
	switch cfg.Output {
	case "stdout":
		return nopWriteCloser{os.Stdout}, nil
	case "stderr":
		return nopWriteCloser{os.Stderr}, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, fmt.Errorf("file path is required when output is 'file'")
		}

		dir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge, // days
			Compress:   cfg.Compress,
		}
		return lj, nil
	default:
		return nopWriteCloser{os.Stdout}, nil
	}
}

// nopWriteCloser wraps an io.Writer to provide a Close method
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetLogger returns the base logger instance
func (lm *LoggerManager) GetLogger() *slog.Logger {
	return lm.baseLogger
}

// GetComponentLogger returns a logger carrying the component name as a
// permanent attribute. Component loggers are cached per name.
func (lm *LoggerManager) GetComponentLogger(component string) *slog.Logger {
	if cached, exists := lm.componentCache[component]; exists {
		return cached
	}

	componentLogger := lm.baseLogger.With(slog.String("component", component))
	lm.componentCache[component] = componentLogger
	return componentLogger
}

// Close closes the logger and any associated resources
func (lm *LoggerManager) Close() error {
	if lm.writer != nil {
		return lm.writer.Close()
	}
	return nil
}

// WithRunID adds a pipeline run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID extracts the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// TimedOperation runs fn and logs its outcome with the elapsed duration.
func TimedOperation(logger *slog.Logger, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		logger.Error("timed operation failed",
			slog.String("operation", operation),
			slog.Duration("duration", duration),
			slog.Any("error", err))
		return err
	}

	logger.Info("timed operation completed",
		slog.String("operation", operation),
		slog.Duration("duration", duration))

	return nil
}

// LogError logs an error with structured context
func LogError(logger *slog.Logger, err error, msg string, attrs ...interface{}) {
	allAttrs := append([]interface{}{slog.Any("error", err)}, attrs...)
	logger.Error(msg, allAttrs...)
}
