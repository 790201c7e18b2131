// DuckDB-backed dataset store. Bulk writes go through the DuckDB Appender
// API, which is far faster than prepared INSERT statements, and the whole
// table is replaced on every run so cumulative metrics stay consistent.
// Decimal values are stored as VARCHAR to survive a round trip without
// floating-point loss.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// identifierPattern limits table names to plain SQL identifiers since table
// names cannot be bound as query parameters.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DuckDBStorage implements FullStorage using DuckDB as the backend.
type DuckDBStorage struct {
	db     *sql.DB
	dbPath string
	table  string
	logger *slog.Logger
	mu     sync.RWMutex

	// Performance tracking
	queryTimes map[string][]time.Duration
	queryMu    sync.RWMutex
}

// NewDuckDBStorage creates a new DuckDB storage instance writing to the
// given table. The dbPath can be ":memory:" for an in-memory database or a
// file path for persistent storage.
func NewDuckDBStorage(dbPath, table string, logger *slog.Logger) (*DuckDBStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !identifierPattern.MatchString(table) {
		return nil, NewStorageError("open", table, "", fmt.Errorf("invalid table name %q", table))
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, NewStorageError("open", table, "", fmt.Errorf("failed to open DuckDB database: %w", err))
	}

	// Single writer pattern as recommended for DuckDB
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &DuckDBStorage{
		db:         db,
		dbPath:     dbPath,
		table:      table,
		logger:     logger,
		queryTimes: make(map[string][]time.Duration),
	}, nil
}

// recordColumns returns the table's column names in physical order: the raw
// fields, then the derived metrics, then the per-metric change columns.
func recordColumns() []string {
	columns := []string{
		"date", "asset_id",
		"open", "high", "low", "close", "volume", "market_cap",
		"typical_price", "vwap",
	}
	for _, m := range models.AllMetrics() {
		columns = append(columns, m.ChangeKey(), m.PctChangeKey())
	}
	return columns
}

// Initialize implements StorageManager.Initialize.
func (d *DuckDBStorage) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("initializing DuckDB storage", "db_path", d.dbPath, "table", d.table)

	if err := d.createRecordsTable(ctx); err != nil {
		return NewStorageError("initialize", d.table, "", fmt.Errorf("failed to create records table: %w", err))
	}
	if err := d.createIndexes(ctx); err != nil {
		return NewStorageError("initialize", d.table, "", fmt.Errorf("failed to create indexes: %w", err))
	}

	d.logger.Info("DuckDB storage initialized successfully")
	return nil
}

// createRecordsTable creates the dataset table. Decimal columns are VARCHAR
// holding exact decimal strings, NULL for missing values.
func (d *DuckDBStorage) createRecordsTable(ctx context.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", d.table)
	b.WriteString("\tdate TIMESTAMPTZ NOT NULL,\n")
	b.WriteString("\tasset_id VARCHAR NOT NULL,\n")
	for _, column := range recordColumns()[2:] {
		fmt.Fprintf(&b, "\t%s VARCHAR,\n", column)
	}
	b.WriteString("\tcreated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,\n")
	fmt.Fprintf(&b, "\tCONSTRAINT %s_pk PRIMARY KEY (asset_id, date)\n)", d.table)

	_, err := d.db.ExecContext(ctx, b.String())
	return err
}

// createIndexes creates indexes used by the per-asset load ordering.
func (d *DuckDBStorage) createIndexes(ctx context.Context) error {
	indexes := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_asset ON %s (asset_id)", d.table, d.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_date ON %s (date)", d.table, d.table),
	}
	for _, indexQuery := range indexes {
		if _, err := d.db.ExecContext(ctx, indexQuery); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Replace implements DatasetReplacer.Replace. The delete and the appends run
// inside one explicit transaction on the pinned connection, so a failure
// anywhere mid-write rolls back to the previous table content; the pool is
// limited to a single connection so no concurrent writer is assumed.
func (d *DuckDBStorage) Replace(ctx context.Context, table string, ds models.Dataset) error {
	start := time.Now()
	defer func() {
		d.recordQueryTime("replace", time.Since(start))
	}()

	if table != d.table {
		return NewReplaceError(table, fmt.Errorf("store is bound to table %q", d.table))
	}

	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()
	if db == nil {
		return NewReplaceError(table, fmt.Errorf("database connection is closed"))
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return NewReplaceError(table, fmt.Errorf("failed to get connection: %w", err))
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return NewReplaceError(table, fmt.Errorf("failed to begin transaction: %w", err))
	}
	committed := false
	defer func() {
		if !committed {
			// Background context: the rollback must run even when ctx is done.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", d.table)); err != nil {
		return NewReplaceError(table, fmt.Errorf("failed to clear table: %w", err))
	}

	if !ds.IsEmpty() {
		if err := d.appendDataset(conn, ds); err != nil {
			return err
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return NewReplaceError(table, fmt.Errorf("failed to commit replace: %w", err))
	}
	committed = true

	d.logger.Debug("replaced dataset",
		"table", d.table,
		"count", ds.Len(),
		"duration", time.Since(start))
	return nil
}

// appendDataset bulk-inserts the dataset through the Appender on the given
// connection. The appender joins the connection's open transaction, so
// appended rows only become visible once the caller commits.
func (d *DuckDBStorage) appendDataset(conn *sql.Conn, ds models.Dataset) error {
	var driverConn *duckdb.Conn
	err := conn.Raw(func(dc interface{}) error {
		var ok bool
		driverConn, ok = dc.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("underlying connection is not a DuckDB connection")
		}
		return nil
	})
	if err != nil {
		return NewReplaceError(d.table, fmt.Errorf("failed to get DuckDB connection: %w", err))
	}

	appender, err := duckdb.NewAppenderFromConn(driverConn, "", d.table)
	if err != nil {
		return NewReplaceError(d.table, fmt.Errorf("failed to create appender: %w", err))
	}

	createdAt := time.Now().UTC()
	appendErr := func() error {
		for i := range ds.Records {
			if err := appendRecord(appender, &ds.Records[i], createdAt); err != nil {
				return fmt.Errorf("failed to append record %s: %w", ds.Records[i].Key(), err)
			}
		}
		return appender.Flush()
	}()

	// Close flushes any buffered rows, so its error matters when the appends
	// themselves succeeded.
	if closeErr := appender.Close(); appendErr == nil && closeErr != nil {
		appendErr = fmt.Errorf("failed to close appender: %w", closeErr)
	}
	if appendErr != nil {
		return NewInsertError(d.table, appendErr)
	}
	return nil
}

// appendRecord appends a single record's columns in recordColumns order.
func appendRecord(appender *duckdb.Appender, rec *models.DailyRecord, createdAt time.Time) error {
	values := []decimal.NullDecimal{
		rec.Open, rec.High, rec.Low, rec.Close, rec.Volume, rec.MarketCap,
		rec.Derived.TypicalPrice, rec.Derived.VWAP,
	}
	row := make([]driver.Value, 0, 2+len(values)+int(models.MetricCount)*2+1)
	row = append(row, rec.Date, rec.AssetID)
	for _, v := range values {
		row = append(row, nullableString(v))
	}
	for _, m := range models.AllMetrics() {
		delta := rec.Derived.Delta(m)
		row = append(row, nullableString(delta.Change), nullableString(delta.PctChange))
	}
	row = append(row, createdAt)
	return appender.AppendRow(row...)
}

// nullableString converts a NullDecimal to the driver value stored in a
// nullable VARCHAR column.
func nullableString(v decimal.NullDecimal) driver.Value {
	if !v.Valid {
		return nil
	}
	return v.Decimal.String()
}

// Load implements DatasetLoader.Load, returning all rows ordered by asset
// and date.
func (d *DuckDBStorage) Load(ctx context.Context, table string) (models.Dataset, error) {
	start := time.Now()
	defer func() {
		d.recordQueryTime("load", time.Since(start))
	}()

	if table != d.table {
		return models.Dataset{}, NewQueryError(table, "", fmt.Errorf("store is bound to table %q", d.table))
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY asset_id, date",
		strings.Join(recordColumns(), ", "), d.table)

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return models.Dataset{}, NewQueryError(d.table, query, fmt.Errorf("failed to execute query: %w", err))
	}
	defer rows.Close()

	var records []models.DailyRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return models.Dataset{}, NewQueryError(d.table, query, fmt.Errorf("failed to scan row: %w", err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return models.Dataset{}, NewQueryError(d.table, query, fmt.Errorf("row iteration error: %w", err))
	}

	d.logger.Debug("loaded dataset",
		"table", d.table,
		"count", len(records),
		"duration", time.Since(start))
	return models.Dataset{Records: records}, nil
}

// scanRecord scans one row in recordColumns order.
func scanRecord(rows *sql.Rows) (models.DailyRecord, error) {
	var (
		rec       models.DailyRecord
		date      time.Time
		rawFields [8]sql.NullString
		deltas    [models.MetricCount * 2]sql.NullString
	)

	dest := make([]interface{}, 0, 2+len(rawFields)+len(deltas))
	dest = append(dest, &date, &rec.AssetID)
	for i := range rawFields {
		dest = append(dest, &rawFields[i])
	}
	for i := range deltas {
		dest = append(dest, &deltas[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return models.DailyRecord{}, err
	}

	rec.Date = models.Day(date)

	parsed := make([]decimal.NullDecimal, len(rawFields))
	for i, raw := range rawFields {
		v, err := parseNullDecimal(raw)
		if err != nil {
			return models.DailyRecord{}, err
		}
		parsed[i] = v
	}
	rec.Open, rec.High, rec.Low, rec.Close = parsed[0], parsed[1], parsed[2], parsed[3]
	rec.Volume, rec.MarketCap = parsed[4], parsed[5]
	rec.Derived.TypicalPrice, rec.Derived.VWAP = parsed[6], parsed[7]

	for i, m := range models.AllMetrics() {
		change, err := parseNullDecimal(deltas[i*2])
		if err != nil {
			return models.DailyRecord{}, err
		}
		pct, err := parseNullDecimal(deltas[i*2+1])
		if err != nil {
			return models.DailyRecord{}, err
		}
		rec.Derived.SetDelta(m, models.FieldDelta{Change: change, PctChange: pct})
	}
	return rec, nil
}

// parseNullDecimal converts a nullable VARCHAR column back to a decimal.
func parseNullDecimal(raw sql.NullString) (decimal.NullDecimal, error) {
	if !raw.Valid || raw.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw.String)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid stored decimal %q: %w", raw.String, err)
	}
	return models.NullDecimalFrom(d), nil
}

// Close implements StorageManager.Close.
func (d *DuckDBStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		d.logger.Info("closing DuckDB storage")
		if err := d.db.Close(); err != nil {
			return NewStorageError("close", d.table, "", fmt.Errorf("failed to close database: %w", err))
		}
		d.db = nil
	}
	return nil
}

// GetStats implements StorageManager.GetStats.
func (d *DuckDBStorage) GetStats(ctx context.Context) (*StorageStats, error) {
	start := time.Now()
	defer func() {
		d.recordQueryTime("get_stats", time.Since(start))
	}()

	stats := &StorageStats{QueryPerformance: make(map[string]time.Duration)}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", d.table)
	if err := d.db.QueryRowContext(ctx, countQuery).Scan(&stats.TotalRecords); err != nil {
		return nil, NewQueryError(d.table, countQuery, fmt.Errorf("failed to get total records: %w", err))
	}

	assetQuery := fmt.Sprintf("SELECT COUNT(DISTINCT asset_id) FROM %s", d.table)
	if err := d.db.QueryRowContext(ctx, assetQuery).Scan(&stats.TotalAssets); err != nil {
		return nil, NewQueryError(d.table, assetQuery, fmt.Errorf("failed to get asset count: %w", err))
	}

	if stats.TotalRecords > 0 {
		rangeQuery := fmt.Sprintf("SELECT MIN(date), MAX(date) FROM %s", d.table)
		if err := d.db.QueryRowContext(ctx, rangeQuery).Scan(&stats.EarliestData, &stats.LatestData); err != nil {
			return nil, NewQueryError(d.table, rangeQuery, fmt.Errorf("failed to get date range: %w", err))
		}
	}

	d.queryMu.RLock()
	for operation, times := range d.queryTimes {
		if len(times) > 0 {
			var total time.Duration
			for _, t := range times {
				total += t
			}
			stats.QueryPerformance[operation] = total / time.Duration(len(times))
		}
	}
	d.queryMu.RUnlock()

	return stats, nil
}

// HealthCheck implements HealthChecker.HealthCheck.
func (d *DuckDBStorage) HealthCheck(ctx context.Context) error {
	d.mu.RLock()
	db := d.db
	d.mu.RUnlock()

	if db == nil {
		return NewStorageError("health_check", "", "", fmt.Errorf("database connection is closed"))
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return NewStorageError("health_check", "", "SELECT 1", fmt.Errorf("database health check failed: %w", err))
	}
	if result != 1 {
		return NewStorageError("health_check", "", "SELECT 1", fmt.Errorf("unexpected health check result: %d", result))
	}
	return nil
}

// recordQueryTime tracks query performance for monitoring.
func (d *DuckDBStorage) recordQueryTime(operation string, duration time.Duration) {
	d.queryMu.Lock()
	defer d.queryMu.Unlock()

	times := d.queryTimes[operation]
	// Keep only last 100 measurements to prevent memory growth
	if len(times) >= 100 {
		times = times[1:]
	}
	d.queryTimes[operation] = append(times, duration)
}

// Compile-time interface compliance check
var (
	_ FullStorage    = (*DuckDBStorage)(nil)
	_ DatasetStore   = (*DuckDBStorage)(nil)
	_ StorageManager = (*DuckDBStorage)(nil)
	_ HealthChecker  = (*DuckDBStorage)(nil)
)
