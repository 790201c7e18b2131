package models

import (
	"encoding/json"
	"fmt"
)

// Metric identifies one of the tracked OHLCV fields. It replaces the
// string-keyed column names used by ad-hoc tooling with a fixed enumeration
// so that threshold tables and derived metrics are typed by construction.
type Metric int

const (
	MetricOpen Metric = iota
	MetricHigh
	MetricLow
	MetricClose
	MetricVolume

	// MetricCount is the number of tracked metrics. It is kept last so it can
	// size per-metric arrays.
	MetricCount
)

// AllMetrics returns the tracked metrics in canonical order.
func AllMetrics() [MetricCount]Metric {
	return [MetricCount]Metric{MetricOpen, MetricHigh, MetricLow, MetricClose, MetricVolume}
}

// String returns the lowercase field name for the metric.
// This method implements the fmt.Stringer interface.
func (m Metric) String() string {
	switch m {
	case MetricOpen:
		return "open"
	case MetricHigh:
		return "high"
	case MetricLow:
		return "low"
	case MetricClose:
		return "close"
	case MetricVolume:
		return "volume"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric resolves a lowercase field name back to its Metric.
func ParseMetric(name string) (Metric, error) {
	for _, m := range AllMetrics() {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", name)
}

// MarshalJSON encodes the metric as its field name so reports and stored
// artifacts carry "close" rather than an enum ordinal.
func (m Metric) MarshalJSON() ([]byte, error) {
	if m < 0 || m >= MetricCount {
		return nil, fmt.Errorf("invalid metric %d", int(m))
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a field name produced by MarshalJSON.
func (m *Metric) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseMetric(name)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ChangeKey returns the persisted column name for the metric's day-over-day
// absolute change (e.g. "close_daily_change").
func (m Metric) ChangeKey() string {
	return m.String() + "_daily_change"
}

// PctChangeKey returns the persisted column name for the metric's
// day-over-day percentage change (e.g. "close_daily_pct_change").
// Threshold tables are keyed by these names.
func (m Metric) PctChangeKey() string {
	return m.String() + "_daily_pct_change"
}

// ParsePctChangeKey resolves a persisted percentage-change column name back
// to its Metric. Returns an error for unknown names so stale or malformed
// calibration artifacts are rejected on load instead of silently ignored.
func ParsePctChangeKey(key string) (Metric, error) {
	for _, m := range AllMetrics() {
		if m.PctChangeKey() == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown percentage-change key %q", key)
}
