// Package detect flags records whose day-over-day percentage changes exceed
// their asset's calibrated thresholds. Detection is a pure filter: the
// output is always a subset of the input rows, in input order, with all
// fields intact.
package detect

import (
	"log/slog"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

// Anomaly pairs a flagged record with the metrics that tripped it.
type Anomaly struct {
	Record  models.DailyRecord `json:"record"`
	Metrics []models.Metric    `json:"metrics"`
}

// Detector applies a threshold table to a dataset slice.
type Detector struct {
	logger *slog.Logger
}

// New creates a Detector. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger}
}

// Detect returns the records whose percentage change, for any tracked
// metric, strictly exceeds the asset's calibrated threshold in absolute
// value. A missing or undefined threshold entry never triggers and is not an
// error; neither does a null percentage change. A nil table flags nothing.
func (d *Detector) Detect(ds models.Dataset, table *models.ThresholdTable) []Anomaly {
	if table == nil {
		return nil
	}

	var anomalies []Anomaly
	for i := range ds.Records {
		rec := &ds.Records[i]

		var tripped []models.Metric
		for _, m := range models.AllMetrics() {
			pct := rec.Derived.Delta(m).PctChange
			if !pct.Valid {
				continue
			}
			threshold, ok := table.Lookup(m, rec.AssetID)
			if !ok {
				continue
			}
			if pct.Decimal.Abs().GreaterThan(threshold) {
				tripped = append(tripped, m)
			}
		}
		if len(tripped) == 0 {
			continue
		}

		anomalies = append(anomalies, Anomaly{Record: *rec, Metrics: tripped})
		d.logger.Info("anomalous move detected",
			"asset", rec.AssetID,
			"date", rec.Date.Format("2006-01-02"),
			"metrics", metricNames(tripped))
	}
	return anomalies
}

// Records extracts just the flagged rows, preserving detection order.
func Records(anomalies []Anomaly) []models.DailyRecord {
	if len(anomalies) == 0 {
		return nil
	}
	records := make([]models.DailyRecord, len(anomalies))
	for i, a := range anomalies {
		records[i] = a.Record
	}
	return records
}

func metricNames(metrics []models.Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = m.PctChangeKey()
	}
	return names
}
