package domain

// PriceRow is one daily OHLCV observation in the canonical prices schema.
// (Ticker, Date) uniquely identifies a row; a later ingestion run may
// supersede the row with corrected values (last-write-wins).
// Corresponds to the prices dataset table.
type PriceRow struct {
	Ticker   string
	Date     Date
	Year     int // derived from Date after validation
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	AdjClose *float64
	Volume   int64
}

// MacroRow is one macroeconomic observation for a zone.
// Corresponds to the macro dataset table; all value fields are nullable.
type MacroRow struct {
	Zone   string
	Date   Date
	CPI    *float64
	GDP    *float64
	Policy *float64
	Unemp  *float64
}

// FeatureRow marks a derived-feature observation for a (feature, ticker) pair.
type FeatureRow struct {
	Feature string
	Ticker  string
	Date    Date
}

// PriceCheckpoint is the stored ingestion checkpoint for one ticker.
// The OHLCV snapshot duplicates the last appended row as an audit
// convenience; the dataset remains authoritative.
type PriceCheckpoint struct {
	Ticker   string
	Date     Date
	Open     *float64
	High     *float64
	Low      *float64
	Close    *float64
	AdjClose *float64
	Volume   int64
}

// MacroCheckpoint is the stored ingestion checkpoint for one zone.
type MacroCheckpoint struct {
	Zone   string
	Date   Date
	CPI    *float64
	GDP    *float64
	Policy *float64
	Unemp  *float64
}
