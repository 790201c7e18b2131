package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ThresholdTable is the calibration artifact produced by the threshold
// calibrator: for each tracked percentage-change metric, a per-asset anomaly
// cutoff. An asset that had no usable history for a metric carries an
// explicit undefined entry (Valid=false) so downstream checks can tell
// "calibrated with no data" apart from "never calibrated".
type ThresholdTable struct {
	// RunID identifies the calibration run that produced the table.
	RunID string

	// Percentile is the percentile rank the thresholds were taken at,
	// expressed in percent (e.g. 98).
	Percentile decimal.Decimal

	// CalibratedAt records when the table was built.
	CalibratedAt time.Time

	// Entries maps metric -> asset ID -> threshold.
	Entries map[Metric]map[string]decimal.NullDecimal
}

// NewThresholdTable creates an empty table for the given percentile.
func NewThresholdTable(runID string, percentile decimal.Decimal) *ThresholdTable {
	return &ThresholdTable{
		RunID:        runID,
		Percentile:   percentile,
		CalibratedAt: time.Now().UTC(),
		Entries:      make(map[Metric]map[string]decimal.NullDecimal, MetricCount),
	}
}

// Set records the threshold for (metric, asset). An invalid NullDecimal
// marks the entry as explicitly undefined.
func (t *ThresholdTable) Set(m Metric, assetID string, threshold decimal.NullDecimal) {
	if t.Entries == nil {
		t.Entries = make(map[Metric]map[string]decimal.NullDecimal, MetricCount)
	}
	byAsset := t.Entries[m]
	if byAsset == nil {
		byAsset = make(map[string]decimal.NullDecimal)
		t.Entries[m] = byAsset
	}
	byAsset[assetID] = threshold
}

// Lookup returns the usable threshold for (metric, asset). The second return
// is false when the asset has no entry for the metric or the entry is
// explicitly undefined; in both cases the value must not be used for
// detection.
func (t *ThresholdTable) Lookup(m Metric, assetID string) (decimal.Decimal, bool) {
	byAsset, ok := t.Entries[m]
	if !ok {
		return decimal.Decimal{}, false
	}
	threshold, ok := byAsset[assetID]
	if !ok || !threshold.Valid {
		return decimal.Decimal{}, false
	}
	return threshold.Decimal, true
}

// Has reports whether (metric, asset) has an entry, defined or not.
func (t *ThresholdTable) Has(m Metric, assetID string) bool {
	byAsset, ok := t.Entries[m]
	if !ok {
		return false
	}
	_, ok = byAsset[assetID]
	return ok
}

// IsEmpty reports whether the table carries no entries at all.
func (t *ThresholdTable) IsEmpty() bool {
	for _, byAsset := range t.Entries {
		if len(byAsset) > 0 {
			return false
		}
	}
	return true
}

// Equal reports whether two tables hold the same calibration values. Decimal
// values are compared numerically, so tables survive a save/load round trip
// even if the stored string form differs in exponent.
func (t *ThresholdTable) Equal(other *ThresholdTable) bool {
	if other == nil {
		return false
	}
	if t.RunID != other.RunID || !t.Percentile.Equal(other.Percentile) {
		return false
	}
	if len(t.Entries) != len(other.Entries) {
		return false
	}
	for m, byAsset := range t.Entries {
		otherByAsset, ok := other.Entries[m]
		if !ok || len(byAsset) != len(otherByAsset) {
			return false
		}
		for asset, threshold := range byAsset {
			otherThreshold, ok := otherByAsset[asset]
			if !ok || threshold.Valid != otherThreshold.Valid {
				return false
			}
			if threshold.Valid && !threshold.Decimal.Equal(otherThreshold.Decimal) {
				return false
			}
		}
	}
	return true
}

// thresholdTableJSON is the persisted wire shape. Metric keys are stored as
// their percentage-change column names so the artifact stays readable and
// stable across enum reordering.
type thresholdTableJSON struct {
	RunID        string                                   `json:"run_id"`
	Percentile   decimal.Decimal                          `json:"percentile"`
	CalibratedAt time.Time                                `json:"calibrated_at"`
	Thresholds   map[string]map[string]decimal.NullDecimal `json:"thresholds"`
}

// MarshalJSON implements json.Marshaler.
func (t *ThresholdTable) MarshalJSON() ([]byte, error) {
	wire := thresholdTableJSON{
		RunID:        t.RunID,
		Percentile:   t.Percentile,
		CalibratedAt: t.CalibratedAt,
		Thresholds:   make(map[string]map[string]decimal.NullDecimal, len(t.Entries)),
	}
	for m, byAsset := range t.Entries {
		assets := make(map[string]decimal.NullDecimal, len(byAsset))
		for asset, threshold := range byAsset {
			assets[asset] = threshold
		}
		wire.Thresholds[m.PctChangeKey()] = assets
	}
	return json.Marshal(wire)
}

// UnmarshalJSON implements json.Unmarshaler. Unknown metric keys fail the
// load so a calibration artifact from an incompatible version is rejected
// rather than partially applied.
func (t *ThresholdTable) UnmarshalJSON(data []byte) error {
	var wire thresholdTableJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("failed to decode threshold table: %w", err)
	}
	t.RunID = wire.RunID
	t.Percentile = wire.Percentile
	t.CalibratedAt = wire.CalibratedAt
	t.Entries = make(map[Metric]map[string]decimal.NullDecimal, len(wire.Thresholds))
	for key, assets := range wire.Thresholds {
		m, err := ParsePctChangeKey(key)
		if err != nil {
			return err
		}
		byAsset := make(map[string]decimal.NullDecimal, len(assets))
		for asset, threshold := range assets {
			byAsset[asset] = threshold
		}
		t.Entries[m] = byAsset
	}
	return nil
}
