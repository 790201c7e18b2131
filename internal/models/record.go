// Package models provides the data structures for daily OHLCV and
// market-capitalization analytics. It contains the canonical record shape,
// the derived-metric attachments computed by the analytics engine, and the
// persisted threshold-table calibration artifact.
package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DailyRecord holds one asset's OHLCV and market-cap data for one calendar
// day. Numeric fields use decimal.NullDecimal: Valid=false represents a
// missing or invalidated value (the normalizer nulls values it cannot coerce
// rather than dropping rows). (AssetID, Date) is unique within a Dataset.
type DailyRecord struct {
	Date      time.Time           `json:"date"`
	AssetID   string              `json:"asset_id"`
	Open      decimal.NullDecimal `json:"open"`
	High      decimal.NullDecimal `json:"high"`
	Low       decimal.NullDecimal `json:"low"`
	Close     decimal.NullDecimal `json:"close"`
	Volume    decimal.NullDecimal `json:"volume"`
	MarketCap decimal.NullDecimal `json:"market_cap"`

	Derived DerivedMetrics `json:"derived"`
}

// FieldDelta carries the day-over-day movement of one metric: the absolute
// difference from the preceding day and the percentage change expressed in
// percent units (6.5 means +6.5%). Both are null on an asset's first
// chronological row and whenever the preceding value is null; the percentage
// is additionally null when the preceding value is zero.
type FieldDelta struct {
	Change    decimal.NullDecimal `json:"change"`
	PctChange decimal.NullDecimal `json:"pct_change"`
}

// DerivedMetrics holds the per-record values computed by the analytics
// engine. TypicalPrice is (open+high+low+close)/4. VWAP is the running
// volume-weighted average of TypicalPrice over the asset's full history up
// to and including the record's day, null while cumulative volume is zero.
type DerivedMetrics struct {
	TypicalPrice decimal.NullDecimal     `json:"typical_price"`
	VWAP         decimal.NullDecimal     `json:"vwap"`
	Deltas       [MetricCount]FieldDelta `json:"deltas"`
}

// Delta returns the day-over-day movement for the given metric.
func (d *DerivedMetrics) Delta(m Metric) FieldDelta {
	return d.Deltas[m]
}

// SetDelta records the day-over-day movement for the given metric.
func (d *DerivedMetrics) SetDelta(m Metric, delta FieldDelta) {
	d.Deltas[m] = delta
}

// NullDecimalFrom wraps a concrete decimal in a valid NullDecimal.
func NullDecimalFrom(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Field returns the raw value backing the given metric.
func (r *DailyRecord) Field(m Metric) decimal.NullDecimal {
	switch m {
	case MetricOpen:
		return r.Open
	case MetricHigh:
		return r.High
	case MetricLow:
		return r.Low
	case MetricClose:
		return r.Close
	case MetricVolume:
		return r.Volume
	default:
		return decimal.NullDecimal{}
	}
}

// Key returns the record's (asset, date) identity used for duplicate
// detection and storage primary keys.
func (r *DailyRecord) Key() string {
	return r.AssetID + "/" + r.Date.Format("2006-01-02")
}

// OHLCConsistent reports whether high >= max(open, close) and
// low <= min(open, close). Missing prices are treated as consistent since
// there is nothing to compare. Violations are expected to be logged by the
// normalizer, never rejected.
func (r *DailyRecord) OHLCConsistent() bool {
	if !r.Open.Valid || !r.High.Valid || !r.Low.Valid || !r.Close.Valid {
		return true
	}
	maxOC := decimal.Max(r.Open.Decimal, r.Close.Decimal)
	minOC := decimal.Min(r.Open.Decimal, r.Close.Decimal)
	return !r.High.Decimal.LessThan(maxOC) && !r.Low.Decimal.GreaterThan(minOC)
}

// String returns a human-readable representation of the record.
// This method implements the fmt.Stringer interface.
func (r *DailyRecord) String() string {
	return fmt.Sprintf("DailyRecord{Asset: %s, Date: %s, O: %s, H: %s, L: %s, C: %s, V: %s}",
		r.AssetID, r.Date.Format("2006-01-02"),
		formatNull(r.Open), formatNull(r.High), formatNull(r.Low), formatNull(r.Close), formatNull(r.Volume))
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return "null"
	}
	return d.Decimal.String()
}

// Day normalizes a timestamp to a calendar date: midnight UTC with the time
// component discarded. All record dates are stored in this form.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Dataset is an ordered collection of DailyRecords, the unit exchanged
// between the pipeline stages and the dataset store. Stages treat datasets
// as immutable inputs: a transformation returns a new Dataset rather than
// reordering or rewriting the records of its argument.
type Dataset struct {
	Records []DailyRecord
}

// NewDataset creates a Dataset from the given records.
func NewDataset(records []DailyRecord) Dataset {
	return Dataset{Records: records}
}

// Len returns the number of records in the dataset.
func (d Dataset) Len() int { return len(d.Records) }

// IsEmpty reports whether the dataset contains no records.
func (d Dataset) IsEmpty() bool { return len(d.Records) == 0 }

// Clone returns a deep-enough copy of the dataset: the record slice is
// copied so the caller can mutate derived fields without touching the
// original. Decimal values are immutable and safe to share.
func (d Dataset) Clone() Dataset {
	records := make([]DailyRecord, len(d.Records))
	copy(records, d.Records)
	return Dataset{Records: records}
}

// SortedChronological returns a copy of the dataset ordered by asset ID and
// then by date ascending. The analytics engine establishes this order itself
// before computing cumulative metrics; callers are not required to.
func (d Dataset) SortedChronological() Dataset {
	out := d.Clone()
	sort.SliceStable(out.Records, func(i, j int) bool {
		if out.Records[i].AssetID != out.Records[j].AssetID {
			return out.Records[i].AssetID < out.Records[j].AssetID
		}
		return out.Records[i].Date.Before(out.Records[j].Date)
	})
	return out
}

// Assets returns the distinct asset IDs present in the dataset, sorted.
func (d Dataset) Assets() []string {
	seen := make(map[string]bool, 16)
	var assets []string
	for i := range d.Records {
		if !seen[d.Records[i].AssetID] {
			seen[d.Records[i].AssetID] = true
			assets = append(assets, d.Records[i].AssetID)
		}
	}
	sort.Strings(assets)
	return assets
}

// LatestDate returns the most recent record date in the dataset and false
// when the dataset is empty.
func (d Dataset) LatestDate() (time.Time, bool) {
	if d.IsEmpty() {
		return time.Time{}, false
	}
	latest := d.Records[0].Date
	for i := range d.Records {
		if d.Records[i].Date.After(latest) {
			latest = d.Records[i].Date
		}
	}
	return latest, true
}

// Since returns the records dated on or after the cutoff, preserving order.
func (d Dataset) Since(cutoff time.Time) Dataset {
	var records []DailyRecord
	for i := range d.Records {
		if !d.Records[i].Date.Before(cutoff) {
			records = append(records, d.Records[i])
		}
	}
	return Dataset{Records: records}
}

// Concat returns a new dataset containing this dataset's records followed by
// the records of each argument, in order. Neither input is modified.
func (d Dataset) Concat(others ...Dataset) Dataset {
	total := len(d.Records)
	for _, o := range others {
		total += len(o.Records)
	}
	records := make([]DailyRecord, 0, total)
	records = append(records, d.Records...)
	for _, o := range others {
		records = append(records, o.Records...)
	}
	return Dataset{Records: records}
}
