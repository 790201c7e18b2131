package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestFetchEmptyDirectory(t *testing.T) {
	s := NewCSVDirSource(t.TempDir(), nil)

	rows, err := s.Fetch(context.Background())

	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestFetchSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bitcoin_daily.csv",
		"Start,End,Open,High,Low,Close,Volume,Market Cap\n"+
			"2021-07-05,2021-07-06,33500,34000,33000,33800,1200000,630000000000\n")

	s := NewCSVDirSource(dir, nil)
	rows, err := s.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "bitcoin", row.AssetID)

	date, ok := row.Get(models.ColumnDate)
	require.True(t, ok)
	assert.Equal(t, "2021-07-05", date)

	marketCap, ok := row.Get(models.ColumnMarketCap)
	require.True(t, ok)
	assert.Equal(t, "630000000000", marketCap)

	// The "End" companion column is dropped, not carried along.
	_, ok = row.Get("end")
	assert.False(t, ok)
}

func TestFetchReadsFilesInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ethereum_daily.csv",
		"Start,Open,High,Low,Close,Volume\n2021-07-05,2200,2350,2150,2300,900000\n")
	writeCSV(t, dir, "bitcoin_daily.csv",
		"Start,Open,High,Low,Close,Volume\n2021-07-05,33500,34000,33000,33800,1200000\n")

	s := NewCSVDirSource(dir, nil)
	rows, err := s.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "bitcoin", rows[0].AssetID)
	assert.Equal(t, "ethereum", rows[1].AssetID)
}

func TestFetchMissingDateColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bitcoin_daily.csv",
		"Open,High,Low,Close,Volume\n33500,34000,33000,33800,1200000\n")

	s := NewCSVDirSource(dir, nil)
	_, err := s.Fetch(context.Background())

	var schemaErr *errs.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, models.ColumnDate, schemaErr.Column)
	assert.Equal(t, "bitcoin_daily.csv", schemaErr.Source)
}

func TestFetchEmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bitcoin_daily.csv", "")

	s := NewCSVDirSource(dir, nil)
	rows, err := s.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "bitcoin_daily.csv",
		"Start,Open,High,Low,Close,Volume\n2021-07-05,1,2,0.5,1.5,100\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewCSVDirSource(dir, nil)
	_, err := s.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCanonicalColumnsAliases(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"Start", models.ColumnDate},
		{"Market Cap", models.ColumnMarketCap},
		{"MarketCap", models.ColumnMarketCap},
		{"Name", models.ColumnAssetID},
		{"CLOSE", models.ColumnClose},
		{" volume ", models.ColumnVolume},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			columns := canonicalColumns([]string{tt.header})
			assert.Equal(t, tt.expected, columns[0])
		})
	}

	t.Run("unknown column dropped", func(t *testing.T) {
		columns := canonicalColumns([]string{"End", "Whatever"})
		assert.Equal(t, "", columns[0])
		assert.Equal(t, "", columns[1])
	})
}

func TestAssetFromFilename(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"bitcoin_daily.csv", "bitcoin"},
		{"/data/Ethereum_2021.csv", "ethereum"},
		{"dogecoin.csv", "dogecoin"},
		{"xrp_usd_daily.csv", "xrp"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, AssetFromFilename(tt.path))
		})
	}
}

func TestStaticSource(t *testing.T) {
	want := []models.RawRow{{AssetID: "btc", Values: map[string]string{models.ColumnDate: "2021-07-05"}}}
	s := StaticSource{Rows: want}

	rows, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, rows)
}
