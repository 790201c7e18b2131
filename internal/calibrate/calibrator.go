// Package calibrate derives per-asset anomaly thresholds from the historical
// distribution of percentage changes. For each asset and each tracked
// percentage-change field it takes a configurable percentile (98th by
// default) of the observed values; the resulting table is the
// calibration artifact later consumed by anomaly detection.
package calibrate

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// DefaultPercentile is the percentile used when none is configured.
var DefaultPercentile = decimal.NewFromInt(98)

// Calibrator builds threshold tables from datasets with derived metrics.
type Calibrator struct {
	logger     *slog.Logger
	percentile decimal.Decimal
}

// New creates a Calibrator. A non-positive percentile falls back to
// DefaultPercentile.
func New(logger *slog.Logger, percentile decimal.Decimal) *Calibrator {
	if logger == nil {
		logger = slog.Default()
	}
	if percentile.Sign() <= 0 {
		percentile = DefaultPercentile
	}
	return &Calibrator{logger: logger, percentile: percentile}
}

// Calibrate computes a threshold table over the dataset. Every asset present
// in the input gets an entry for every tracked metric: a percentile of its
// non-null percentage changes, or an explicitly undefined entry when the
// asset has no usable values for that metric. Calibrating an empty dataset
// returns an empty table together with a *errs.NoDataError; the caller
// decides whether that is fatal. Calibration is deterministic: identical
// input data yields identical threshold values.
func (c *Calibrator) Calibrate(ds models.Dataset) (*models.ThresholdTable, error) {
	table := models.NewThresholdTable(uuid.NewString(), c.percentile)
	if ds.IsEmpty() {
		c.logger.Warn("calibration requested on empty dataset")
		return table, errs.NewNoDataError("calibration")
	}

	assets := ds.Assets()
	for _, m := range models.AllMetrics() {
		for _, asset := range assets {
			values := collectPctChanges(ds, asset, m)
			threshold, ok := Percentile(values, c.percentile)
			if !ok {
				table.Set(m, asset, decimal.NullDecimal{})
				c.logger.Debug("no usable values for threshold",
					"asset", asset,
					"metric", m.PctChangeKey())
				continue
			}
			table.Set(m, asset, models.NullDecimalFrom(threshold))
		}
	}

	c.logger.Info("thresholds calibrated",
		"run_id", table.RunID,
		"percentile", c.percentile.String(),
		"assets", len(assets))
	return table, nil
}

// collectPctChanges gathers the non-null percentage changes of one metric
// for one asset, signed as observed.
func collectPctChanges(ds models.Dataset, assetID string, m models.Metric) []decimal.Decimal {
	var values []decimal.Decimal
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.AssetID != assetID {
			continue
		}
		pct := rec.Derived.Delta(m).PctChange
		if pct.Valid {
			values = append(values, pct.Decimal)
		}
	}
	return values
}
