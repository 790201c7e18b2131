// File-backed threshold store. The calibration artifact is one JSON file
// written atomically via a temp-file rename, matching the whole-table
// save/load contract of ThresholdStore.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// FileThresholdStore persists the threshold table as a JSON file.
type FileThresholdStore struct {
	path   string
	logger *slog.Logger
}

// NewFileThresholdStore creates a store writing to the given path. Parent
// directories are created on first save.
func NewFileThresholdStore(path string, logger *slog.Logger) *FileThresholdStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileThresholdStore{path: path, logger: logger}
}

// Save implements ThresholdStore.Save.
func (s *FileThresholdStore) Save(ctx context.Context, table *models.ThresholdTable) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return NewStorageError("save", s.path, "", fmt.Errorf("failed to create artifact directory: %w", err))
	}

	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return NewStorageError("save", s.path, "", fmt.Errorf("failed to marshal threshold table: %w", err))
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return NewStorageError("save", s.path, "", fmt.Errorf("failed to write artifact: %w", err))
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return NewStorageError("save", s.path, "", fmt.Errorf("failed to finalize artifact: %w", err))
	}

	s.logger.Info("threshold table saved",
		"path", s.path,
		"run_id", table.RunID)
	return nil
}

// Load implements ThresholdStore.Load. A missing file maps to
// ErrThresholdsNotFound.
func (s *FileThresholdStore) Load(ctx context.Context) (*models.ThresholdTable, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, ErrThresholdsNotFound
	}
	if err != nil {
		return nil, NewQueryError(s.path, "", fmt.Errorf("failed to read artifact: %w", err))
	}

	var table models.ThresholdTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, NewQueryError(s.path, "", fmt.Errorf("failed to decode artifact: %w", err))
	}
	return &table, nil
}

// Compile-time interface compliance check
var _ ThresholdStore = (*FileThresholdStore)(nil)
