// Package source reads batches of raw daily rows for the pipeline. The CSV
// directory source scans a drop directory for per-asset CSV exports named
// like "bitcoin_daily.csv", deriving the asset identifier from the filename
// token before the first underscore.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// RowSource produces raw rows not yet merged into the historical dataset.
type RowSource interface {
	// Fetch returns zero or more raw rows. An empty result is not an error;
	// the pipeline reports it as a no-data outcome.
	Fetch(ctx context.Context) ([]models.RawRow, error)
}

// headerAliases maps incoming header tokens to canonical column names.
// Exports commonly label the day column "Start" (with a companion "End"
// that is ignored) and market cap appears with and without an underscore.
var headerAliases = map[string]string{
	"start":     models.ColumnDate,
	"marketcap": models.ColumnMarketCap,
	"name":      models.ColumnAssetID,
}

// CSVDirSource reads every *.csv file in a directory.
type CSVDirSource struct {
	dir    string
	logger *slog.Logger
}

// NewCSVDirSource creates a source scanning the given directory.
func NewCSVDirSource(dir string, logger *slog.Logger) *CSVDirSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVDirSource{dir: dir, logger: logger}
}

// Fetch implements RowSource.Fetch. Files are read in lexical order so
// repeated runs see rows in a stable order. A file without any date-like
// column fails the batch with a *errs.SchemaError.
func (s *CSVDirSource) Fetch(ctx context.Context) ([]models.RawRow, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory %s: %w", s.dir, err)
	}
	if len(paths) == 0 {
		s.logger.Debug("no csv files found", "dir", s.dir)
		return nil, nil
	}

	var rows []models.RawRow
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileRows, err := s.readFile(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}

	s.logger.Info("fetched raw rows",
		"dir", s.dir,
		"files", len(paths),
		"rows", len(rows))
	return rows, nil
}

// readFile parses one CSV file into raw rows tagged with the asset derived
// from the filename.
func (s *CSVDirSource) readFile(path string) ([]models.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	columns := canonicalColumns(header)
	if !contains(columns, models.ColumnDate) {
		return nil, errs.NewSchemaError(models.ColumnDate, filepath.Base(path))
	}

	asset := AssetFromFilename(path)
	var rows []models.RawRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			s.logger.Warn("skipping malformed csv line",
				"file", filepath.Base(path),
				"line", line,
				"error", err)
			continue
		}

		values := make(map[string]string, len(columns))
		for i, column := range columns {
			if column == "" || i >= len(record) {
				continue
			}
			values[column] = record[i]
		}
		rows = append(rows, models.RawRow{AssetID: asset, Values: values})
	}
	return rows, nil
}

// canonicalColumns lower-cases headers and resolves aliases. Columns the
// pipeline does not know are dropped (e.g. the "End" companion to "Start").
func canonicalColumns(header []string) []string {
	known := map[string]bool{
		models.ColumnDate:      true,
		models.ColumnAssetID:   true,
		models.ColumnOpen:      true,
		models.ColumnHigh:      true,
		models.ColumnLow:       true,
		models.ColumnClose:     true,
		models.ColumnVolume:    true,
		models.ColumnMarketCap: true,
	}

	columns := make([]string, len(header))
	for i, h := range header {
		token := strings.ToLower(strings.TrimSpace(h))
		token = strings.ReplaceAll(token, " ", "_")
		if alias, ok := headerAliases[token]; ok {
			token = alias
		}
		if known[token] {
			columns[i] = token
		}
	}
	return columns
}

// AssetFromFilename derives the asset identifier from a file name: the
// lower-cased token before the first underscore, or the whole base name
// without extension when there is no underscore.
func AssetFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(base, "_"); i > 0 {
		base = base[:i]
	}
	return strings.ToLower(base)
}

func contains(columns []string, want string) bool {
	for _, c := range columns {
		if c == want {
			return true
		}
	}
	return false
}

// StaticSource returns a fixed batch of rows; used by tests and by callers
// that already hold materialized rows.
type StaticSource struct {
	Rows []models.RawRow
}

// Fetch implements RowSource.Fetch.
func (s StaticSource) Fetch(ctx context.Context) ([]models.RawRow, error) {
	return s.Rows, nil
}

// Compile-time interface compliance check
var (
	_ RowSource = (*CSVDirSource)(nil)
	_ RowSource = StaticSource{}
)
