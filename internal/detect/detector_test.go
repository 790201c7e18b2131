package detect

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

func recWithPct(asset string, d int, pcts map[models.Metric]string) models.DailyRecord {
	rec := models.DailyRecord{
		Date:    time.Date(2021, 7, d, 0, 0, 0, 0, time.UTC),
		AssetID: asset,
	}
	for m, pct := range pcts {
		rec.Derived.SetDelta(m, models.FieldDelta{
			PctChange: models.NullDecimalFrom(decimal.RequireFromString(pct)),
		})
	}
	return rec
}

func tableWith(entries map[models.Metric]map[string]string) *models.ThresholdTable {
	table := models.NewThresholdTable("run-test", decimal.NewFromInt(98))
	for m, byAsset := range entries {
		for asset, v := range byAsset {
			table.Set(m, asset, models.NullDecimalFrom(decimal.RequireFromString(v)))
		}
	}
	return table
}

func TestDetectNilTable(t *testing.T) {
	d := New(nil)
	ds := models.NewDataset([]models.DailyRecord{
		recWithPct("btc", 5, map[models.Metric]string{models.MetricClose: "99"}),
	})

	assert.Nil(t, d.Detect(ds, nil))
}

func TestDetectStrictInequality(t *testing.T) {
	d := New(nil)
	table := tableWith(map[models.Metric]map[string]string{
		models.MetricClose: {"btc": "5"},
	})

	tests := []struct {
		name    string
		pct     string
		flagged bool
	}{
		{"below threshold", "4.9", false},
		{"exactly at threshold", "5", false},
		{"above threshold", "5.01", true},
		{"negative beyond threshold", "-5.01", true},
		{"negative at threshold", "-5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := models.NewDataset([]models.DailyRecord{
				recWithPct("btc", 5, map[models.Metric]string{models.MetricClose: tt.pct}),
			})
			anomalies := d.Detect(ds, table)
			assert.Equal(t, tt.flagged, len(anomalies) == 1)
		})
	}
}

func TestDetectAnyMetricTriggers(t *testing.T) {
	d := New(nil)
	table := tableWith(map[models.Metric]map[string]string{
		models.MetricClose:  {"btc": "5"},
		models.MetricVolume: {"btc": "50"},
	})

	ds := models.NewDataset([]models.DailyRecord{
		recWithPct("btc", 5, map[models.Metric]string{
			models.MetricClose:  "1",
			models.MetricVolume: "80",
		}),
	})

	anomalies := d.Detect(ds, table)
	require.Len(t, anomalies, 1)
	assert.Equal(t, []models.Metric{models.MetricVolume}, anomalies[0].Metrics)
}

func TestDetectSkipsMissingThresholdAndNullPct(t *testing.T) {
	d := New(nil)
	table := tableWith(map[models.Metric]map[string]string{
		models.MetricClose: {"btc": "5"},
	})
	// eth has no entries at all; volume has no threshold for btc; the
	// undefined entry never triggers either.
	table.Set(models.MetricHigh, "btc", decimal.NullDecimal{})

	ds := models.NewDataset([]models.DailyRecord{
		recWithPct("eth", 5, map[models.Metric]string{models.MetricClose: "1000"}),
		recWithPct("btc", 5, map[models.Metric]string{
			models.MetricVolume: "1000",
			models.MetricHigh:   "1000",
		}),
		// null close pct: no delta set at all
		recWithPct("btc", 6, nil),
	})

	assert.Empty(t, d.Detect(ds, table))
}

func TestDetectOutputIsSubsetInInputOrder(t *testing.T) {
	d := New(nil)
	table := tableWith(map[models.Metric]map[string]string{
		models.MetricClose: {"btc": "5", "eth": "5"},
	})

	ds := models.NewDataset([]models.DailyRecord{
		recWithPct("eth", 7, map[models.Metric]string{models.MetricClose: "9"}),
		recWithPct("btc", 5, map[models.Metric]string{models.MetricClose: "1"}),
		recWithPct("btc", 6, map[models.Metric]string{models.MetricClose: "-12"}),
	})

	anomalies := d.Detect(ds, table)
	require.Len(t, anomalies, 2)
	assert.Equal(t, "eth/2021-07-07", anomalies[0].Record.Key())
	assert.Equal(t, "btc/2021-07-06", anomalies[1].Record.Key())

	// Flagged records keep their fields intact.
	pct := anomalies[1].Record.Derived.Delta(models.MetricClose).PctChange
	require.True(t, pct.Valid)
	assert.True(t, pct.Decimal.Equal(decimal.NewFromInt(-12)))
}

func TestDetectZeroThresholdFlagsAnyNonZeroMove(t *testing.T) {
	d := New(nil)
	table := tableWith(map[models.Metric]map[string]string{
		models.MetricClose: {"btc": "0"},
	})

	ds := models.NewDataset([]models.DailyRecord{
		recWithPct("btc", 5, map[models.Metric]string{models.MetricClose: "0.0001"}),
		recWithPct("btc", 6, map[models.Metric]string{models.MetricClose: "0"}),
	})

	anomalies := d.Detect(ds, table)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "btc/2021-07-05", anomalies[0].Record.Key())
}

func TestRecords(t *testing.T) {
	assert.Nil(t, Records(nil))

	anomalies := []Anomaly{
		{Record: recWithPct("btc", 5, nil)},
		{Record: recWithPct("eth", 6, nil)},
	}
	records := Records(anomalies)
	require.Len(t, records, 2)
	assert.Equal(t, "btc", records[0].AssetID)
	assert.Equal(t, "eth", records[1].AssetID)
}
