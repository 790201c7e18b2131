// Package analytics computes derived per-asset metrics over a dataset:
// typical price, cumulative volume-weighted average price, and day-over-day
// absolute and percentage changes for each tracked field. Assets are
// independent, so computation can fan out across a bounded worker pool.
package analytics

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mlindqvist/go-ohlcv-analytics/internal/errs"
	"github.com/mlindqvist/go-ohlcv-analytics/internal/models"
)

var (
	four    = decimal.NewFromInt(4)
	hundred = decimal.NewFromInt(100)
)

// Engine derives metrics for every record of a dataset.
type Engine struct {
	logger  *slog.Logger
	workers int
}

// NewEngine creates an Engine. workers bounds per-asset parallelism;
// values below 1 mean sequential computation.
func NewEngine(logger *slog.Logger, workers int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, workers: workers}
}

// Compute returns a new dataset, sorted by asset and date, with
// DerivedMetrics populated on every record. The input dataset is not
// modified. A non-nil error is always a *errs.InvariantError: data that
// normalization should have made impossible reached the engine, and the run
// must abort rather than persist wrong metrics.
func (e *Engine) Compute(ds models.Dataset) (models.Dataset, error) {
	out := ds.SortedChronological()
	if out.IsEmpty() {
		return out, nil
	}

	groups := assetRanges(out.Records)
	if e.workers < 2 || len(groups) < 2 {
		for _, g := range groups {
			if err := computeAsset(out.Records[g.start:g.end]); err != nil {
				return models.Dataset{}, err
			}
		}
		return out, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, e.workers)
	for _, g := range groups {
		wg.Add(1)
		sem <- struct{}{}
		go func(records []models.DailyRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := computeAsset(records); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(out.Records[g.start:g.end])
	}
	wg.Wait()

	if firstErr != nil {
		return models.Dataset{}, firstErr
	}
	return out, nil
}

type assetRange struct {
	start, end int
}

// assetRanges finds the contiguous per-asset slices of a sorted record list.
func assetRanges(records []models.DailyRecord) []assetRange {
	var ranges []assetRange
	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || records[i].AssetID != records[start].AssetID {
			ranges = append(ranges, assetRange{start: start, end: i})
			start = i
		}
	}
	return ranges
}

// computeAsset fills in derived metrics for one asset's chronologically
// ordered records.
func computeAsset(records []models.DailyRecord) error {
	var (
		cumVolume      decimal.Decimal
		cumPriceVolume decimal.Decimal
		haveCum        bool
	)

	for i := range records {
		rec := &records[i]
		rec.Derived = models.DerivedMetrics{}

		rec.Derived.TypicalPrice = typicalPrice(rec)

		if rec.Volume.Valid && rec.Volume.Decimal.Sign() < 0 {
			return errs.NewInvariantError(rec.AssetID, rec.Date, "volume",
				fmt.Errorf("negative volume %s reached metric computation", rec.Volume.Decimal))
		}

		if rec.Derived.TypicalPrice.Valid && rec.Volume.Valid {
			cumVolume = cumVolume.Add(rec.Volume.Decimal)
			cumPriceVolume = cumPriceVolume.Add(rec.Derived.TypicalPrice.Decimal.Mul(rec.Volume.Decimal))
			haveCum = true
		}
		if haveCum && cumVolume.Sign() > 0 {
			rec.Derived.VWAP = models.NullDecimalFrom(cumPriceVolume.Div(cumVolume))
		}

		for _, m := range models.AllMetrics() {
			rec.Derived.SetDelta(m, delta(records, i, m))
		}
	}
	return nil
}

// typicalPrice is the mean of the four prices, null when any is missing.
func typicalPrice(rec *models.DailyRecord) decimal.NullDecimal {
	if !rec.Open.Valid || !rec.High.Valid || !rec.Low.Valid || !rec.Close.Valid {
		return decimal.NullDecimal{}
	}
	sum := rec.Open.Decimal.Add(rec.High.Decimal).Add(rec.Low.Decimal).Add(rec.Close.Decimal)
	return models.NullDecimalFrom(sum.Div(four))
}

// delta computes the day-over-day movement of one metric at position i.
// Both values are null on the first row; the percentage is null when the
// previous value is zero.
func delta(records []models.DailyRecord, i int, m models.Metric) models.FieldDelta {
	if i == 0 {
		return models.FieldDelta{}
	}
	cur := records[i].Field(m)
	prev := records[i-1].Field(m)
	if !cur.Valid || !prev.Valid {
		return models.FieldDelta{}
	}

	change := cur.Decimal.Sub(prev.Decimal)
	out := models.FieldDelta{Change: models.NullDecimalFrom(change)}
	if prev.Decimal.Sign() != 0 {
		out.PctChange = models.NullDecimalFrom(change.Div(prev.Decimal).Mul(hundred))
	}
	return out
}
