// Package normalize transforms raw provider tables into canonical rows.
//
// Normalization is deliberately forgiving about provider quirks: column
// names are canonicalized before matching, rows with unparseable dates are
// dropped before any typed derivation, and numeric coercion failures become
// nulls. The only hard signal is "no usable data": when a required field is
// missing after canonicalization the result is empty, never an error.
package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/provider"
	"github.com/loic-mmt/BloomDash/internal/schema"
)

// Prices normalizes a raw OHLCV table for one ticker into canonical price
// rows, sorted by date ascending. Returns an empty slice when the table is
// empty or lacks a required field.
func Prices(tbl *provider.Table, ticker string) []*domain.PriceRow {
	sch := schema.For(schema.DomainPrices)
	cols, ok := matchColumns(tbl, ticker, sch)
	if !ok {
		return nil
	}

	byDate := make(map[domain.Date]*domain.PriceRow)
	for _, raw := range tbl.Rows {
		date, ok := parseDate(cell(raw, cols["date"]))
		if !ok {
			continue
		}
		byDate[date] = &domain.PriceRow{
			Ticker:   ticker,
			Date:     date,
			Year:     date.Year,
			Open:     coerceFloat(cell(raw, cols["open"])),
			High:     coerceFloat(cell(raw, cols["high"])),
			Low:      coerceFloat(cell(raw, cols["low"])),
			Close:    coerceFloat(cell(raw, cols["close"])),
			AdjClose: coerceFloat(cell(raw, cols["adj_close"])),
			Volume:   coerceVolume(cell(raw, cols["volume"])),
		}
	}

	rows := make([]*domain.PriceRow, 0, len(byDate))
	for _, r := range byDate {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// Macro normalizes a raw macro table for one zone into canonical macro rows,
// sorted by date ascending.
func Macro(tbl *provider.Table, zone string) []*domain.MacroRow {
	sch := schema.For(schema.DomainMacro)
	cols, ok := matchColumns(tbl, zone, sch)
	if !ok {
		return nil
	}

	byDate := make(map[domain.Date]*domain.MacroRow)
	for _, raw := range tbl.Rows {
		date, ok := parseDate(cell(raw, cols["date"]))
		if !ok {
			continue
		}
		byDate[date] = &domain.MacroRow{
			Zone:   zone,
			Date:   date,
			CPI:    coerceFloat(cell(raw, cols["cpi"])),
			GDP:    coerceFloat(cell(raw, cols["gdp"])),
			Policy: coerceFloat(cell(raw, cols["policy"])),
			Unemp:  coerceFloat(cell(raw, cols["unemp"])),
		}
	}

	rows := make([]*domain.MacroRow, 0, len(byDate))
	for _, r := range byDate {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// Features normalizes a raw feature table fetched for one (feature, ticker)
// pair. Only a date column is required; everything else in the payload is
// ignored.
func Features(tbl *provider.Table, feature, ticker string) []*domain.FeatureRow {
	if tbl.Empty() {
		return nil
	}
	dateIdx := -1
	for _, c := range sliceColumns(tbl, ticker) {
		if schema.CanonicalColumn(c.Name) == "date" {
			dateIdx = c.index
			break
		}
	}
	if dateIdx < 0 {
		return nil
	}

	seen := make(map[domain.Date]bool)
	var rows []*domain.FeatureRow
	for _, raw := range tbl.Rows {
		date, ok := parseDate(cell(raw, dateIdx))
		if !ok || seen[date] {
			continue
		}
		seen[date] = true
		rows = append(rows, &domain.FeatureRow{Feature: feature, Ticker: ticker, Date: date})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows
}

// matchColumns canonicalizes the table's columns (after slicing wide tables
// down to key) and maps each required field to its position. The second
// return is false when the table is unusable for the schema.
func matchColumns(tbl *provider.Table, key string, sch schema.Schema) (map[string]int, bool) {
	if tbl.Empty() {
		return nil, false
	}

	cols := sliceColumns(tbl, key)
	positions := make(map[string]int, len(cols))
	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		name := schema.CanonicalColumn(c.Name)
		if _, exists := positions[name]; !exists {
			positions[name] = c.index
			present[name] = true
		}
	}

	if ok, _ := sch.HasRequired(present); !ok {
		return nil, false
	}
	return positions, true
}

// sliceColumns reduces a wide multi-instrument table to the columns relevant
// to key. When the table carries instrument qualifiers but none match key,
// the qualifiers are ignored and columns are matched by name alone, which
// mirrors how single-instrument payloads behave.
func sliceColumns(tbl *provider.Table, key string) []indexedColumn {
	hasKey := false
	for _, c := range tbl.Columns {
		if c.Key == key {
			hasKey = true
			break
		}
	}

	cols := make([]indexedColumn, 0, len(tbl.Columns))
	for i, c := range tbl.Columns {
		if hasKey && c.Key != "" && c.Key != key {
			continue
		}
		cols = append(cols, indexedColumn{Name: c.Name, index: i})
	}
	return cols
}

type indexedColumn struct {
	Name  string
	index int
}

// cell returns the raw cell at original column position i.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// dateLayouts are the provider date formats accepted in rough order of
// frequency. Anything unparseable drops the row.
var dateLayouts = []string{
	domain.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

func parseDate(s string) (domain.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOf(t), true
		}
	}
	// Unix epoch seconds, as returned by chart-style APIs.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return domain.DateOf(time.Unix(secs, 0).UTC()), true
	}
	return domain.Date{}, false
}

// coerceFloat parses a numeric cell; failures become nulls, not errors.
func coerceFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// coerceVolume parses a volume cell to a non-negative integer; failures and
// missing values become 0.
func coerceVolume(s string) int64 {
	f := coerceFloat(s)
	if f == nil || *f < 0 {
		return 0
	}
	return int64(*f)
}
