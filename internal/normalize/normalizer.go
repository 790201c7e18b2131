// Package normalize coerces raw input rows into canonical daily records.
// Bad values are substituted rather than fatal: non-coercible fields become
// null, non-positive market caps and volumes become null, null volumes are
// forward-filled within each asset, and exact duplicate rows are dropped.
// Only a structurally missing required column fails the whole batch.
package normalize

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// DefaultDateLayouts are the date formats tried, in order, when a source
// does not configure its own.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// requiredColumns must each be present in at least one row of a batch.
// market_cap is optional end to end; asset identity may come from the source
// instead of a column.
var requiredColumns = []string{
	models.ColumnDate,
	models.ColumnOpen,
	models.ColumnHigh,
	models.ColumnLow,
	models.ColumnClose,
	models.ColumnVolume,
}

// Report counts the substitutions performed on one batch.
type Report struct {
	RowsIn               int `json:"rows_in"`
	RowsOut              int `json:"rows_out"`
	RowsDropped          int `json:"rows_dropped"`
	ValuesNulled         int `json:"values_nulled"`
	VolumesForwardFilled int `json:"volumes_forward_filled"`
	DuplicatesRemoved    int `json:"duplicates_removed"`
	OHLCViolations       int `json:"ohlc_violations"`
}

// Normalizer turns raw rows into a canonical Dataset.
type Normalizer struct {
	logger      *slog.Logger
	dateLayouts []string
}

// New creates a Normalizer. A nil logger falls back to slog.Default and
// empty dateLayouts fall back to DefaultDateLayouts.
func New(logger *slog.Logger, dateLayouts []string) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(dateLayouts) == 0 {
		dateLayouts = DefaultDateLayouts
	}
	return &Normalizer{logger: logger, dateLayouts: dateLayouts}
}

// Normalize converts a batch of raw rows into a Dataset sorted by asset and
// date. Rows with an unusable date or no asset identity are dropped and
// counted; individual bad values are nulled and counted. The returned error
// is a *errs.SchemaError when a required column is missing from the batch
// entirely.
func (n *Normalizer) Normalize(rows []models.RawRow) (models.Dataset, Report, error) {
	report := Report{RowsIn: len(rows)}
	if len(rows) == 0 {
		return models.Dataset{}, report, nil
	}

	if err := checkColumns(rows); err != nil {
		return models.Dataset{}, report, err
	}

	records := make([]models.DailyRecord, 0, len(rows))
	for _, row := range rows {
		record, ok := n.coerceRow(row, &report)
		if !ok {
			report.RowsDropped++
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].AssetID != records[j].AssetID {
			return records[i].AssetID < records[j].AssetID
		}
		return records[i].Date.Before(records[j].Date)
	})

	records = n.dropDuplicates(records, &report)
	n.forwardFillVolume(records, &report)
	n.logConsistency(records, &report)

	report.RowsOut = len(records)
	return models.Dataset{Records: records}, report, nil
}

// checkColumns verifies that every required column appears in at least one
// row. Asset identity counts as present when any row carries it either as a
// column or as source-assigned metadata.
func checkColumns(rows []models.RawRow) error {
	seen := make(map[string]bool, len(requiredColumns))
	assetSeen := false
	for _, row := range rows {
		if row.AssetID != "" {
			assetSeen = true
		}
		for column := range row.Values {
			seen[column] = true
		}
	}
	if seen[models.ColumnAssetID] {
		assetSeen = true
	}
	for _, column := range requiredColumns {
		if !seen[column] {
			return errs.NewSchemaError(column, "input batch")
		}
	}
	if !assetSeen {
		return errs.NewSchemaError(models.ColumnAssetID, "input batch")
	}
	return nil
}

// coerceRow converts one raw row. It returns false when the row has no
// usable date or asset identity.
func (n *Normalizer) coerceRow(row models.RawRow, report *Report) (models.DailyRecord, bool) {
	assetID := strings.TrimSpace(row.AssetID)
	if assetID == "" {
		if v, ok := row.Get(models.ColumnAssetID); ok {
			assetID = strings.TrimSpace(v)
		}
	}
	if assetID == "" {
		n.logger.Warn("dropping row without asset identity")
		return models.DailyRecord{}, false
	}

	rawDate, _ := row.Get(models.ColumnDate)
	date, ok := n.parseDate(rawDate)
	if !ok {
		n.logger.Warn("dropping row with unusable date",
			"asset", assetID,
			"raw_date", rawDate)
		return models.DailyRecord{}, false
	}

	record := models.DailyRecord{
		Date:    date,
		AssetID: assetID,
	}
	record.Open = n.coerceValue(row, models.ColumnOpen, assetID, date, report)
	record.High = n.coerceValue(row, models.ColumnHigh, assetID, date, report)
	record.Low = n.coerceValue(row, models.ColumnLow, assetID, date, report)
	record.Close = n.coerceValue(row, models.ColumnClose, assetID, date, report)

	volume := n.coerceValue(row, models.ColumnVolume, assetID, date, report)
	if volume.Valid && volume.Decimal.Sign() <= 0 {
		volume = decimal.NullDecimal{}
		report.ValuesNulled++
	}
	record.Volume = volume

	marketCap := n.coerceValue(row, models.ColumnMarketCap, assetID, date, report)
	if marketCap.Valid && marketCap.Decimal.Sign() <= 0 {
		marketCap = decimal.NullDecimal{}
		report.ValuesNulled++
	}
	record.MarketCap = marketCap

	return record, true
}

// coerceValue parses one numeric field. A present but non-coercible value is
// nulled and counted; an absent or empty value is null without counting.
func (n *Normalizer) coerceValue(row models.RawRow, column, assetID string, date time.Time, report *Report) decimal.NullDecimal {
	raw, ok := row.Get(column)
	if !ok || strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}
	}
	value, ok := parseDecimal(raw)
	if !ok {
		report.ValuesNulled++
		n.logger.Debug("nulled non-coercible value",
			"asset", assetID,
			"date", date.Format("2006-01-02"),
			"column", column,
			"raw", raw)
		return decimal.NullDecimal{}
	}
	return models.NullDecimalFrom(value)
}

// parseDate tries the configured layouts in order and truncates to a
// calendar day in UTC.
func (n *Normalizer) parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range n.dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.Day(t), true
		}
	}
	return time.Time{}, false
}

// parseDecimal accepts plain decimal strings plus the thousand-separator and
// currency-prefix forms that show up in scraped market data.
func parseDecimal(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// dropDuplicates removes exact full-row duplicates, keeping the first
// instance. Records must already be sorted by asset and date.
func (n *Normalizer) dropDuplicates(records []models.DailyRecord, report *Report) []models.DailyRecord {
	if len(records) == 0 {
		return records
	}
	out := records[:0]
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		key := rowKey(record)
		if seen[key] {
			report.DuplicatesRemoved++
			continue
		}
		seen[key] = true
		out = append(out, record)
	}
	if report.DuplicatesRemoved > 0 {
		n.logger.Info("removed duplicate rows", "count", report.DuplicatesRemoved)
	}
	return out
}

// rowKey renders every field of a record so only exact duplicates collide.
func rowKey(record models.DailyRecord) string {
	parts := []string{
		record.AssetID,
		record.Date.Format("2006-01-02"),
		nullDecimalKey(record.Open),
		nullDecimalKey(record.High),
		nullDecimalKey(record.Low),
		nullDecimalKey(record.Close),
		nullDecimalKey(record.Volume),
		nullDecimalKey(record.MarketCap),
	}
	return strings.Join(parts, "|")
}

func nullDecimalKey(v decimal.NullDecimal) string {
	if !v.Valid {
		return "null"
	}
	return v.Decimal.String()
}

// forwardFillVolume replaces null volumes with the same asset's most recent
// non-null volume. Records must already be sorted by asset and date; a null
// volume at the head of an asset's series stays null.
func (n *Normalizer) forwardFillVolume(records []models.DailyRecord, report *Report) {
	var (
		currentAsset string
		lastVolume   decimal.NullDecimal
	)
	for i := range records {
		if records[i].AssetID != currentAsset {
			currentAsset = records[i].AssetID
			lastVolume = decimal.NullDecimal{}
		}
		if records[i].Volume.Valid {
			lastVolume = records[i].Volume
			continue
		}
		if lastVolume.Valid {
			records[i].Volume = lastVolume
			report.VolumesForwardFilled++
		}
	}
	if report.VolumesForwardFilled > 0 {
		n.logger.Info("forward-filled volumes", "count", report.VolumesForwardFilled)
	}
}

// logConsistency logs OHLC ordering violations. Violations are kept in the
// dataset; the ordering is expected but not enforced.
func (n *Normalizer) logConsistency(records []models.DailyRecord, report *Report) {
	for i := range records {
		if !records[i].OHLCConsistent() {
			report.OHLCViolations++
			n.logger.Warn("OHLC ordering violation",
				"asset", records[i].AssetID,
				"date", records[i].Date.Format("2006-01-02"))
		}
	}
}

// String summarizes a report for log output.
func (r Report) String() string {
	return fmt.Sprintf("rows_in=%d rows_out=%d dropped=%d nulled=%d forward_filled=%d duplicates=%d",
		r.RowsIn, r.RowsOut, r.RowsDropped, r.ValuesNulled, r.VolumesForwardFilled, r.DuplicatesRemoved)
}
