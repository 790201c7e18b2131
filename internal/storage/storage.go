// Package storage defines the persistence boundary of the analytics
// pipeline: the dataset store holding the computed historical table and the
// threshold store holding the calibration artifact. Implementations exist
// for DuckDB, plain JSON files, and in-memory backends for tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// ErrThresholdsNotFound is returned by ThresholdStore.Load when no
// calibration artifact has been saved yet. Callers distinguish it from I/O
// failures with errors.Is.
var ErrThresholdsNotFound = errors.New("threshold table not found")

// DatasetLoader retrieves the full previously-stored dataset.
type DatasetLoader interface {
	// Load returns everything stored under the given table name. An empty
	// dataset with a nil error means the table exists but holds no rows,
	// or has never been written.
	Load(ctx context.Context, table string) (models.Dataset, error)
}

// DatasetReplacer persists a recomputed dataset.
type DatasetReplacer interface {
	// Replace atomically swaps the stored content of the table for the given
	// dataset. Replacement rather than append keeps cumulative metrics
	// (VWAP, running changes) internally consistent after every run.
	Replace(ctx context.Context, table string, ds models.Dataset) error
}

// DatasetStore combines dataset persistence operations.
type DatasetStore interface {
	DatasetLoader
	DatasetReplacer
}

// ThresholdStore persists the calibration artifact as a whole.
type ThresholdStore interface {
	// Save overwrites the stored threshold table.
	Save(ctx context.Context, table *models.ThresholdTable) error

	// Load returns the stored threshold table, or ErrThresholdsNotFound
	// when nothing has been saved.
	Load(ctx context.Context) (*models.ThresholdTable, error)
}

// StorageManager handles storage lifecycle and operational concerns.
type StorageManager interface {
	// Initialize prepares the backend for operation: tables, indexes,
	// schema setup. Idempotent and safe to call multiple times.
	Initialize(ctx context.Context) error

	// Close gracefully shuts down the backend. After Close the store
	// must not be used.
	Close() error

	// GetStats returns operational statistics about the stored dataset.
	GetStats(ctx context.Context) (*StorageStats, error)

	HealthChecker
}

// HealthChecker provides health monitoring for storage backends.
type HealthChecker interface {
	// HealthCheck performs a lightweight operation verifying connectivity.
	HealthCheck(ctx context.Context) error
}

// FullStorage combines dataset persistence with lifecycle management. This
// is the interface the process entry point consumes.
type FullStorage interface {
	DatasetStore
	StorageManager
}

// StorageStats provides operational metrics about the stored dataset.
type StorageStats struct {
	// TotalRecords is the number of daily records stored
	TotalRecords int64

	// TotalAssets is the number of distinct assets with data
	TotalAssets int

	// EarliestData is the date of the oldest record
	EarliestData time.Time

	// LatestData is the date of the newest record
	LatestData time.Time

	// QueryPerformance contains average query times by operation type
	QueryPerformance map[string]time.Duration
}

// StorageError represents errors that occur during storage operations.
type StorageError struct {
	// Operation is the storage operation that failed (e.g., "insert", "query")
	Operation string

	// Table is the table or artifact involved in the operation
	Table string

	// Query is the SQL query or operation details (may be empty)
	Query string

	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for StorageError.
func (e *StorageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("storage operation %s on table %s failed: %v", e.Operation, e.Table, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new StorageError with the provided details.
func NewStorageError(operation, table, query string, err error) *StorageError {
	return &StorageError{
		Operation: operation,
		Table:     table,
		Query:     query,
		Err:       err,
	}
}

// NewQueryError creates a StorageError specifically for query operations.
func NewQueryError(table, query string, err error) *StorageError {
	return &StorageError{
		Operation: "query",
		Table:     table,
		Query:     query,
		Err:       err,
	}
}

// NewInsertError creates a StorageError specifically for insert operations.
func NewInsertError(table string, err error) *StorageError {
	return &StorageError{
		Operation: "insert",
		Table:     table,
		Err:       err,
	}
}

// NewReplaceError creates a StorageError specifically for replace operations.
func NewReplaceError(table string, err error) *StorageError {
	return &StorageError{
		Operation: "replace",
		Table:     table,
		Err:       err,
	}
}
