// In-memory storage backends. Used by tests and by runs that do not need
// durability; semantics mirror the DuckDB store.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

var errClosed = errors.New("store is closed")

// MemoryStorage implements FullStorage with a map of table name to dataset.
type MemoryStorage struct {
	logger *slog.Logger
	mu     sync.RWMutex
	tables map[string]models.Dataset
	closed bool
}

// NewMemoryStorage creates an empty in-memory dataset store.
func NewMemoryStorage(logger *slog.Logger) *MemoryStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStorage{
		logger: logger,
		tables: make(map[string]models.Dataset),
	}
}

// Initialize implements StorageManager.Initialize.
func (m *MemoryStorage) Initialize(ctx context.Context) error {
	return nil
}

// Load implements DatasetLoader.Load.
func (m *MemoryStorage) Load(ctx context.Context, table string) (models.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return models.Dataset{}, NewQueryError(table, "", errClosed)
	}
	return m.tables[table].Clone(), nil
}

// Replace implements DatasetReplacer.Replace.
func (m *MemoryStorage) Replace(ctx context.Context, table string, ds models.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewReplaceError(table, errClosed)
	}
	m.tables[table] = ds.Clone()
	m.logger.Debug("replaced dataset", "table", table, "count", ds.Len())
	return nil
}

// Close implements StorageManager.Close.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetStats implements StorageManager.GetStats over all tables.
func (m *MemoryStorage) GetStats(ctx context.Context) (*StorageStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &StorageStats{QueryPerformance: map[string]time.Duration{}}
	assets := make(map[string]bool)
	for _, ds := range m.tables {
		stats.TotalRecords += int64(ds.Len())
		for i := range ds.Records {
			assets[ds.Records[i].AssetID] = true
			date := ds.Records[i].Date
			if stats.EarliestData.IsZero() || date.Before(stats.EarliestData) {
				stats.EarliestData = date
			}
			if date.After(stats.LatestData) {
				stats.LatestData = date
			}
		}
	}
	stats.TotalAssets = len(assets)
	return stats, nil
}

// HealthCheck implements HealthChecker.HealthCheck.
func (m *MemoryStorage) HealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return NewStorageError("health_check", "", "", errClosed)
	}
	return nil
}

// MemoryThresholdStore implements ThresholdStore in memory.
type MemoryThresholdStore struct {
	mu    sync.RWMutex
	table *models.ThresholdTable
}

// NewMemoryThresholdStore creates an empty in-memory threshold store.
func NewMemoryThresholdStore() *MemoryThresholdStore {
	return &MemoryThresholdStore{}
}

// Save implements ThresholdStore.Save.
func (s *MemoryThresholdStore) Save(ctx context.Context, table *models.ThresholdTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	return nil
}

// Load implements ThresholdStore.Load.
func (s *MemoryThresholdStore) Load(ctx context.Context) (*models.ThresholdTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, ErrThresholdsNotFound
	}
	return s.table, nil
}

// Compile-time interface compliance check
var (
	_ FullStorage    = (*MemoryStorage)(nil)
	_ ThresholdStore = (*MemoryThresholdStore)(nil)
)
