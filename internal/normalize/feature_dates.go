package normalize

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/provider"
	"github.com/loic-mmt/BloomDash/internal/schema"
)

// ErrMissingColumns is returned when a caller-supplied table lacks an
// identifying column. This is a programming-contract violation, not a
// recoverable runtime condition.
var ErrMissingColumns = errors.New("missing columns")

// LastFeatureDates extracts the maximum observation date per ticker from a
// multi-ticker feature table. Column names are matched after
// canonicalization; rows with unparseable dates are dropped. Unlike value
// normalization, a missing identifying column here is a caller error naming
// the missing field(s).
func LastFeatureDates(tbl *provider.Table, tickerCol, dateCol string) (map[string]domain.Date, error) {
	if tickerCol == "" {
		tickerCol = "ticker"
	}
	if dateCol == "" {
		dateCol = "date"
	}

	if tbl.Empty() {
		return map[string]domain.Date{}, nil
	}

	tickerIdx, dateIdx, err := identityColumns(tbl, tickerCol, dateCol)
	if err != nil {
		return nil, err
	}

	last := make(map[string]domain.Date)
	for _, raw := range tbl.Rows {
		ticker := strings.TrimSpace(cell(raw, tickerIdx))
		if ticker == "" {
			continue
		}
		date, ok := parseDate(cell(raw, dateIdx))
		if !ok {
			continue
		}
		if cur, seen := last[ticker]; !seen || date.After(cur) {
			last[ticker] = date
		}
	}
	return last, nil
}

// FeatureTable converts a multi-ticker feature table into feature rows
// tagged with the feature name. The table must carry "ticker" and "date"
// columns; missing ones are a caller error naming the field(s). Duplicate
// (ticker, date) pairs collapse to one row, dates sorted ascending.
func FeatureTable(tbl *provider.Table, feature string) ([]*domain.FeatureRow, error) {
	if tbl.Empty() {
		return nil, nil
	}

	tickerIdx, dateIdx, err := identityColumns(tbl, "ticker", "date")
	if err != nil {
		return nil, err
	}

	type pair struct {
		ticker string
		date   domain.Date
	}
	seen := make(map[pair]struct{})
	var rows []*domain.FeatureRow
	for _, raw := range tbl.Rows {
		ticker := strings.TrimSpace(cell(raw, tickerIdx))
		if ticker == "" {
			continue
		}
		date, ok := parseDate(cell(raw, dateIdx))
		if !ok {
			continue
		}
		k := pair{ticker, date}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, &domain.FeatureRow{Feature: feature, Ticker: ticker, Date: date})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Ticker != rows[j].Ticker {
			return rows[i].Ticker < rows[j].Ticker
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows, nil
}

// identityColumns locates the ticker and date columns after
// canonicalization, reporting any missing ones by name.
func identityColumns(tbl *provider.Table, tickerCol, dateCol string) (int, int, error) {
	tickerIdx, dateIdx := -1, -1
	for i, c := range tbl.Columns {
		switch schema.CanonicalColumn(c.Name) {
		case schema.CanonicalColumn(tickerCol):
			if tickerIdx < 0 {
				tickerIdx = i
			}
		case schema.CanonicalColumn(dateCol):
			if dateIdx < 0 {
				dateIdx = i
			}
		}
	}

	var missing []string
	if tickerIdx < 0 {
		missing = append(missing, tickerCol)
	}
	if dateIdx < 0 {
		missing = append(missing, dateCol)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return -1, -1, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return tickerIdx, dateIdx, nil
}
