package calibrate

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Percentile returns the p-th percentile (p in percent, 0..100) of values
// using linear interpolation between closest ranks: the rank is
// p/100 * (n-1) and the result interpolates between the two neighboring
// order statistics. The second return is false when values is empty.
// The input slice is not modified.
func Percentile(values []decimal.Decimal, p decimal.Decimal) (decimal.Decimal, bool) {
	n := len(values)
	if n == 0 {
		return decimal.Decimal{}, false
	}
	if n == 1 {
		return values[0], true
	}

	sorted := make([]decimal.Decimal, n)
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})

	rank := p.Mul(decimal.NewFromInt(int64(n - 1))).Div(hundred)
	if rank.Sign() <= 0 {
		return sorted[0], true
	}
	maxRank := decimal.NewFromInt(int64(n - 1))
	if !rank.LessThan(maxRank) {
		return sorted[n-1], true
	}

	floor := rank.Floor()
	lo := int(floor.IntPart())
	frac := rank.Sub(floor)
	if frac.Sign() == 0 {
		return sorted[lo], true
	}
	return sorted[lo].Add(sorted[lo+1].Sub(sorted[lo]).Mul(frac)), true
}
