package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

func TestFileThresholdStoreLoadMissing(t *testing.T) {
	s := NewFileThresholdStore(filepath.Join(t.TempDir(), "thresholds.json"), nil)

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrThresholdsNotFound)
}

func TestFileThresholdStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "thresholds.json")
	s := NewFileThresholdStore(path, nil)
	ctx := context.Background()

	table := models.NewThresholdTable("run-9", decimal.NewFromInt(98))
	table.Set(models.MetricClose, "btc", models.NullDecimalFrom(decimal.RequireFromString("6.52")))
	table.Set(models.MetricVolume, "eth", decimal.NullDecimal{})

	// Parent directory is created on first save.
	require.NoError(t, s.Save(ctx, table))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, table.Equal(loaded))

	// The undefined entry is distinguishable from an absent one.
	assert.True(t, loaded.Has(models.MetricVolume, "eth"))
	_, ok := loaded.Lookup(models.MetricVolume, "eth")
	assert.False(t, ok)
}

func TestFileThresholdStoreOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	s := NewFileThresholdStore(path, nil)
	ctx := context.Background()

	first := models.NewThresholdTable("run-1", decimal.NewFromInt(98))
	first.Set(models.MetricClose, "btc", models.NullDecimalFrom(decimal.NewFromInt(5)))
	require.NoError(t, s.Save(ctx, first))

	second := models.NewThresholdTable("run-2", decimal.NewFromInt(99))
	second.Set(models.MetricClose, "btc", models.NullDecimalFrom(decimal.NewFromInt(9)))
	require.NoError(t, s.Save(ctx, second))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-2", loaded.RunID)

	// No temp file is left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileThresholdStoreRejectsCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewFileThresholdStore(path, nil)
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrThresholdsNotFound)
}
