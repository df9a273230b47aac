// Package provider defines the raw-table contract between external data
// providers and the normalization layer, plus a shared retrying HTTP client
// for adapter implementations.
package provider

import "errors"

// ErrUnavailable indicates the provider is reachable but returned no usable
// payload for the requested window. Callers treat it as a recoverable-empty
// result, not a failure.
var ErrUnavailable = errors.New("provider: no data available")

// Column labels one column of a raw provider table.
type Column struct {
	// Name is the field label exactly as the provider returned it.
	// Canonicalization happens downstream in the normalizer.
	Name string

	// Key qualifies the column with an instrument identifier when the
	// provider returns several instruments in one wide table. Empty for
	// single-instrument payloads and for shared columns such as the date.
	Key string
}

// Table is a raw provider response: columns in provider order and cell
// values as provider text. Empty cells denote missing values. Typing and
// schema conformance are the normalizer's job.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Empty reports whether the table carries no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// ColumnIndex returns the position of the first column matching name and
// key, or -1 when absent.
func (t *Table) ColumnIndex(name, key string) int {
	for i, c := range t.Columns {
		if c.Name == name && c.Key == key {
			return i
		}
	}
	return -1
}
