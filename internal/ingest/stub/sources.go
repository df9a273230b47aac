// Package stub provides fixed in-memory sources for tests and the demo
// mode of cmd/ingest.
package stub

import (
	"context"

	"github.com/loic-mmt/BloomDash/internal/domain"
	"github.com/loic-mmt/BloomDash/internal/provider"
)

// PriceSource returns pre-built tables per ticker, filtered to the
// requested window. Implements ingest.PriceSource.
type PriceSource struct {
	tables map[string]*provider.Table
	err    error
}

// NewPriceSource creates a stub price source serving tables keyed by ticker.
func NewPriceSource(tables map[string]*provider.Table) *PriceSource {
	return &PriceSource{tables: tables}
}

// NewFailingPriceSource creates a stub whose History always returns err.
func NewFailingPriceSource(err error) *PriceSource {
	return &PriceSource{err: err}
}

// History returns the stub table rows whose first cell parses as a date
// inside [start, end]. Tickers without a table yield an empty table.
func (s *PriceSource) History(_ context.Context, ticker string, start, end domain.Date) (*provider.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	return filterWindow(s.tables[ticker], start, end), nil
}

// MacroSource returns pre-built tables per zone. Implements
// ingest.MacroSource.
type MacroSource struct {
	tables map[string]*provider.Table
	err    error
}

// NewMacroSource creates a stub macro source serving tables keyed by zone.
func NewMacroSource(tables map[string]*provider.Table) *MacroSource {
	return &MacroSource{tables: tables}
}

// NewFailingMacroSource creates a stub whose History always returns err.
func NewFailingMacroSource(err error) *MacroSource {
	return &MacroSource{err: err}
}

// History returns the stub table filtered to [start, end].
func (s *MacroSource) History(_ context.Context, zone string, start, end domain.Date) (*provider.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	return filterWindow(s.tables[zone], start, end), nil
}

// FeatureSource returns pre-built tables per (feature, ticker).
// Implements ingest.FeatureSource.
type FeatureSource struct {
	tables map[[2]string]*provider.Table
	err    error
}

// NewFeatureSource creates a stub feature source. Tables are keyed by
// [feature, ticker].
func NewFeatureSource(tables map[[2]string]*provider.Table) *FeatureSource {
	return &FeatureSource{tables: tables}
}

// NewFailingFeatureSource creates a stub whose History always returns err.
func NewFailingFeatureSource(err error) *FeatureSource {
	return &FeatureSource{err: err}
}

// History returns the stub table filtered to [start, end].
func (s *FeatureSource) History(_ context.Context, feature, ticker string, start, end domain.Date) (*provider.Table, error) {
	if s.err != nil {
		return nil, s.err
	}
	return filterWindow(s.tables[[2]string{feature, ticker}], start, end), nil
}

// filterWindow keeps rows whose date column falls inside [start, end].
// The date column is located by canonical name; when absent the table is
// returned as-is so malformed-table behavior stays testable.
func filterWindow(tbl *provider.Table, start, end domain.Date) *provider.Table {
	if tbl == nil {
		return &provider.Table{}
	}

	dateIdx := -1
	for i, c := range tbl.Columns {
		if c.Name == "date" || c.Name == "Date" {
			dateIdx = i
			break
		}
	}
	if dateIdx < 0 {
		return tbl
	}

	out := &provider.Table{Columns: tbl.Columns}
	for _, row := range tbl.Rows {
		if dateIdx >= len(row) {
			continue
		}
		d, err := domain.ParseDate(row[dateIdx])
		if err != nil {
			out.Rows = append(out.Rows, row)
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
