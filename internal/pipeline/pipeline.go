// Package pipeline wires the analytics stages into the batch runs the
// binary exposes: Bootstrap builds the dataset and calibration from scratch,
// Run merges new rows into history, recomputes all derived metrics, and
// flags anomalies in the freshly arrived window. Every run replaces the
// stored dataset wholesale so cumulative metrics stay consistent.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/analytics"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/calibrate"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/detect"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/logger"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/normalize"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/storage"
)

// Outcome classifies what a run produced, so callers can tell "ran fine,
// nothing to report" apart from "did not run".
type Outcome string

const (
	// OutcomeNoData means the run had nothing to process.
	OutcomeNoData Outcome = "no_data"
	// OutcomeClean means the run completed and flagged nothing.
	OutcomeClean Outcome = "clean"
	// OutcomeAnomalies means the run completed and flagged rows.
	OutcomeAnomalies Outcome = "anomalies"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID         string           `json:"run_id"`
	Outcome       Outcome          `json:"outcome"`
	Normalization normalize.Report `json:"normalization"`
	HistoryRows   int              `json:"history_rows"`
	NewRows       int              `json:"new_rows"`
	TotalRows     int              `json:"total_rows"`
	Calibrated    bool             `json:"calibrated"`
	Anomalies     []detect.Anomaly `json:"anomalies,omitempty"`
	Duration      time.Duration    `json:"duration"`
}

// Options configures a pipeline instance.
type Options struct {
	// Table is the dataset store table holding the historical data.
	Table string

	// Percentile is the calibration percentile in percent.
	Percentile decimal.Decimal

	// WindowDays is the size of the detection window in calendar days,
	// counted back from the reference time.
	WindowDays int

	// ReferenceTime anchors the detection window. The zero value means the
	// wall clock at run time.
	ReferenceTime time.Time

	// RecalibrateOnMissing makes Run calibrate from the merged dataset when
	// no stored threshold table exists instead of failing detection.
	RecalibrateOnMissing bool

	// Workers bounds per-asset parallelism in the metric engine.
	Workers int

	// Retry controls retries at the storage I/O boundary.
	Retry errs.RetryPolicy
}

// Pipeline orchestrates normalization, merging, metric computation,
// calibration and detection over injected collaborators.
type Pipeline struct {
	log        *slog.Logger
	datasets   storage.DatasetStore
	thresholds storage.ThresholdStore
	normalizer *normalize.Normalizer
	engine     *analytics.Engine
	calibrator *calibrate.Calibrator
	detector   *detect.Detector
	opts       Options
}

// New creates a Pipeline over the given stores. A nil logger falls back to
// slog.Default; zero option fields fall back to the package defaults
// (98th percentile, 2-day window).
func New(log *slog.Logger, datasets storage.DatasetStore, thresholds storage.ThresholdStore, normalizer *normalize.Normalizer, opts Options) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if opts.Table == "" {
		opts.Table = "daily_records"
	}
	if opts.Percentile.Sign() <= 0 {
		opts.Percentile = calibrate.DefaultPercentile
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 2
	}
	if normalizer == nil {
		normalizer = normalize.New(log, nil)
	}

	return &Pipeline{
		log:        log,
		datasets:   datasets,
		thresholds: thresholds,
		normalizer: normalizer,
		engine:     analytics.NewEngine(log, opts.Workers),
		calibrator: calibrate.New(log, opts.Percentile),
		detector:   detect.New(log),
		opts:       opts,
	}
}

// Merge unions the historical dataset with newly normalized rows,
// preserving every row. It fails with a *errs.NoDataError only when both
// sides are empty.
func Merge(historical models.Dataset, fresh ...models.Dataset) (models.Dataset, error) {
	merged := historical.Concat(fresh...)
	if merged.IsEmpty() {
		return models.Dataset{}, errs.NewNoDataError("merge")
	}
	return merged, nil
}

// Bootstrap builds the stored dataset and calibration artifact from scratch:
// normalize the rows, compute metrics over them, calibrate thresholds, then
// persist both. No detection is performed; there is no "new" slice to check
// on a first load.
func (p *Pipeline) Bootstrap(ctx context.Context, rows []models.RawRow) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	ctx = logger.WithRunID(ctx, report.RunID)

	normalized, normReport, err := p.normalizer.Normalize(rows)
	if err != nil {
		return nil, err
	}
	report.Normalization = normReport
	report.NewRows = normalized.Len()

	if normalized.IsEmpty() {
		report.Outcome = OutcomeNoData
		report.Duration = time.Since(start)
		p.log.Warn("bootstrap received no rows", "run_id", report.RunID)
		return report, nil
	}

	computed, err := p.engine.Compute(normalized)
	if err != nil {
		return nil, err
	}
	report.TotalRows = computed.Len()

	table, err := p.calibrator.Calibrate(computed)
	if err != nil && !errs.IsNoData(err) {
		return nil, err
	}
	report.Calibrated = !table.IsEmpty()

	if err := p.saveThresholds(ctx, table); err != nil {
		return nil, err
	}
	if err := p.replaceDataset(ctx, computed); err != nil {
		return nil, err
	}

	report.Outcome = OutcomeClean
	report.Duration = time.Since(start)
	p.log.Info("bootstrap completed",
		"run_id", report.RunID,
		"rows", report.TotalRows,
		"duration", report.Duration)
	return report, nil
}

// Run performs one incremental batch: load history, normalize the new rows,
// merge, recompute every derived metric, obtain thresholds (stored or, if
// configured, freshly calibrated), detect anomalies in the recent window,
// and replace the stored dataset with the recomputed one.
func (p *Pipeline) Run(ctx context.Context, rows []models.RawRow) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString()}
	ctx = logger.WithRunID(ctx, report.RunID)

	historical, err := p.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	report.HistoryRows = historical.Len()

	normalized, normReport, err := p.normalizer.Normalize(rows)
	if err != nil {
		return nil, err
	}
	report.Normalization = normReport
	report.NewRows = normalized.Len()

	merged, err := Merge(historical, normalized)
	if err != nil {
		if errs.IsNoData(err) {
			report.Outcome = OutcomeNoData
			report.Duration = time.Since(start)
			p.log.Warn("nothing to process", "run_id", report.RunID)
			return report, nil
		}
		return nil, err
	}

	computed, err := p.engine.Compute(merged)
	if err != nil {
		return nil, err
	}
	report.TotalRows = computed.Len()

	table, calibrated, err := p.obtainThresholds(ctx, computed)
	if err != nil {
		return nil, err
	}
	report.Calibrated = calibrated

	window := computed.Since(p.windowCutoff())
	report.Anomalies = p.detector.Detect(window, table)

	if err := p.replaceDataset(ctx, computed); err != nil {
		return nil, err
	}

	if len(report.Anomalies) > 0 {
		report.Outcome = OutcomeAnomalies
	} else {
		report.Outcome = OutcomeClean
	}
	report.Duration = time.Since(start)
	p.log.Info("run completed",
		"run_id", report.RunID,
		"outcome", string(report.Outcome),
		"total_rows", report.TotalRows,
		"anomalies", len(report.Anomalies),
		"duration", report.Duration)
	return report, nil
}

// Calibrate recomputes the threshold table from the stored dataset and
// saves it. Derived metrics are recomputed first so calibration never reads
// stale percentage changes.
func (p *Pipeline) Calibrate(ctx context.Context) (*models.ThresholdTable, error) {
	historical, err := p.loadDataset(ctx)
	if err != nil {
		return nil, err
	}

	computed, err := p.engine.Compute(historical)
	if err != nil {
		return nil, err
	}

	table, err := p.calibrator.Calibrate(computed)
	if err != nil {
		if errs.IsNoData(err) {
			return table, err
		}
		return nil, err
	}

	if err := p.saveThresholds(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

// Detect flags anomalies in the stored dataset's recent window using the
// stored threshold table, without modifying any persisted state.
func (p *Pipeline) Detect(ctx context.Context) ([]detect.Anomaly, error) {
	historical, err := p.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	if historical.IsEmpty() {
		return nil, errs.NewNoDataError("detection")
	}

	table, err := p.thresholds.Load(ctx)
	if err != nil {
		return nil, err
	}

	computed, err := p.engine.Compute(historical)
	if err != nil {
		return nil, err
	}

	window := computed.Since(p.windowCutoff())
	return p.detector.Detect(window, table), nil
}

// obtainThresholds loads the stored table, calibrating a fresh one when the
// artifact is missing and recalibration is enabled.
func (p *Pipeline) obtainThresholds(ctx context.Context, computed models.Dataset) (*models.ThresholdTable, bool, error) {
	table, err := p.thresholds.Load(ctx)
	if err == nil {
		return table, false, nil
	}
	if !errors.Is(err, storage.ErrThresholdsNotFound) {
		return nil, false, err
	}
	if !p.opts.RecalibrateOnMissing {
		return nil, false, fmt.Errorf("no calibration artifact available: %w", err)
	}

	p.log.Info("no stored thresholds, calibrating from merged dataset")
	table, err = p.calibrator.Calibrate(computed)
	if err != nil && !errs.IsNoData(err) {
		return nil, false, err
	}
	if err := p.saveThresholds(ctx, table); err != nil {
		return nil, false, err
	}
	return table, true, nil
}

// windowCutoff returns the first date inside the detection window.
func (p *Pipeline) windowCutoff() time.Time {
	ref := p.opts.ReferenceTime
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	return models.Day(ref).AddDate(0, 0, -(p.opts.WindowDays - 1))
}

// runLog derives a logger carrying the run ID when the context has one.
func (p *Pipeline) runLog(ctx context.Context) *slog.Logger {
	if runID := logger.GetRunID(ctx); runID != "" {
		return p.log.With("run_id", runID)
	}
	return p.log
}

// loadDataset reads the stored dataset with retries at the I/O boundary.
func (p *Pipeline) loadDataset(ctx context.Context) (models.Dataset, error) {
	log := p.runLog(ctx)
	var ds models.Dataset
	err := logger.TimedOperation(log, "load_dataset", func() error {
		return errs.Retry(ctx, log, p.opts.Retry, "pipeline", "load_dataset", func() error {
			var err error
			ds, err = p.datasets.Load(ctx, p.opts.Table)
			return err
		})
	})
	return ds, err
}

// replaceDataset persists the recomputed dataset with retries.
func (p *Pipeline) replaceDataset(ctx context.Context, ds models.Dataset) error {
	log := p.runLog(ctx)
	return logger.TimedOperation(log, "replace_dataset", func() error {
		return errs.Retry(ctx, log, p.opts.Retry, "pipeline", "replace_dataset", func() error {
			return p.datasets.Replace(ctx, p.opts.Table, ds)
		})
	})
}

// saveThresholds persists the calibration artifact with retries.
func (p *Pipeline) saveThresholds(ctx context.Context, table *models.ThresholdTable) error {
	log := p.runLog(ctx)
	return logger.TimedOperation(log, "save_thresholds", func() error {
		return errs.Retry(ctx, log, p.opts.Retry, "pipeline", "save_thresholds", func() error {
			return p.thresholds.Save(ctx, table)
		})
	})
}
