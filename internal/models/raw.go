package models

// Column names recognized in raw input rows. Matching is case-insensitive
// and ignores surrounding whitespace; sources are expected to lower-case
// header tokens before building RawRows.
const (
	ColumnDate      = "date"
	ColumnAssetID   = "asset_id"
	ColumnOpen      = "open"
	ColumnHigh      = "high"
	ColumnLow       = "low"
	ColumnClose     = "close"
	ColumnVolume    = "volume"
	ColumnMarketCap = "market_cap"
)

// RawRow is one uncoerced input row as delivered by a new-row source.
// AssetID may be set by the source (e.g. derived from a filename) or carried
// as a regular column; the normalizer accepts either. Values holds the raw
// string form of every column the source saw for this row.
type RawRow struct {
	AssetID string
	Values  map[string]string
}

// Get returns the raw value for a column and whether the column was present.
func (r RawRow) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}
