// Package errs defines the error taxonomy shared across the analytics
// pipeline and a small retry helper for storage and source I/O. The three
// error classes keep failure handling decisions uniform: schema problems are
// fatal, empty-input conditions are reportable outcomes, and invariant
// violations point at a bug in the computation itself.
package errs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// SchemaError reports structurally unusable input: a required column is
// missing from the incoming rows entirely. Individual bad values never raise
// it; those are nulled during normalization.
type SchemaError struct {
	Column string
	Source string
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("schema error: required column %q missing from %s", e.Column, e.Source)
	}
	return fmt.Sprintf("schema error: required column %q missing", e.Column)
}

// Is supports errors.Is matching against any *SchemaError.
func (e *SchemaError) Is(target error) bool {
	_, ok := target.(*SchemaError)
	return ok
}

// NewSchemaError creates a SchemaError for a missing required column.
func NewSchemaError(column, source string) *SchemaError {
	return &SchemaError{Column: column, Source: source}
}

// NoDataError signals that a pipeline stage received no rows to work on.
// It is a reportable condition, not a crash: callers surface it as an
// outcome and continue or exit cleanly.
type NoDataError struct {
	Stage string
}

// Error implements the error interface
func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data available at stage %q", e.Stage)
}

// Is supports errors.Is matching against any *NoDataError.
func (e *NoDataError) Is(target error) bool {
	_, ok := target.(*NoDataError)
	return ok
}

// NewNoDataError creates a NoDataError for the named stage.
func NewNoDataError(stage string) *NoDataError {
	return &NoDataError{Stage: stage}
}

// IsNoData reports whether err is (or wraps) a NoDataError.
func IsNoData(err error) bool {
	var nde *NoDataError
	return errors.As(err, &nde)
}

// InvariantError reports an internal impossibility discovered during metric
// computation, such as a cumulative volume going negative. It always
// indicates a bug upstream of the stage that raised it.
type InvariantError struct {
	AssetID string
	Date    time.Time
	Field   string
	Err     error
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated for %s on %s (%s): %v",
		e.AssetID, e.Date.Format("2006-01-02"), e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *InvariantError) Unwrap() error {
	return e.Err
}

// NewInvariantError creates an InvariantError for the given record field.
func NewInvariantError(assetID string, date time.Time, field string, err error) *InvariantError {
	return &InvariantError{AssetID: assetID, Date: date, Field: field, Err: err}
}

// WrapError wraps an error with component and operation context.
func WrapError(err error, component, operation, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s in %s.%s: %w", message, component, operation, err)
}

// RetryPolicy controls the Retry helper. Zero values fall back to the
// defaults from DefaultRetryPolicy.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy returns the policy used for storage and source I/O.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Retry executes fn with exponential backoff until it succeeds, the policy
// is exhausted, or the context is canceled. Schema, no-data and invariant
// errors are never retried: repeating the call cannot change the input.
func Retry(ctx context.Context, logger *slog.Logger, policy RetryPolicy, component, operation string, fn func() error) error {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultRetryPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaults.MaxAttempts
	}
	if policy.InitialDelay <= 0 {
		policy.InitialDelay = defaults.InitialDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = defaults.MaxDelay
	}

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = policy.InitialDelay
	exponential.MaxInterval = policy.MaxDelay
	exponential.MaxElapsedTime = 0
	strategy := backoff.WithMaxRetries(exponential, uint64(policy.MaxAttempts-1))

	var lastErr error
	attempts := 0
	for {
		attempts++

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		logger.Warn("operation failed",
			"component", component,
			"operation", operation,
			"attempt", attempts,
			"max_attempts", policy.MaxAttempts,
			"error", err.Error())

		if ctx.Err() != nil {
			return fmt.Errorf("context canceled during retry: %w", ctx.Err())
		}

		next := strategy.NextBackOff()
		if next == backoff.Stop {
			break
		}

		select {
		case <-time.After(next):
		case <-ctx.Done():
			return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, lastErr)
}

// isRetryable filters out error classes where a retry cannot help.
func isRetryable(err error) bool {
	var schemaErr *SchemaError
	var noDataErr *NoDataError
	var invariantErr *InvariantError
	if errors.As(err, &schemaErr) || errors.As(err, &noDataErr) || errors.As(err, &invariantErr) {
		return false
	}
	return true
}
