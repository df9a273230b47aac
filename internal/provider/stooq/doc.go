// Package stooq is the planned Stooq adapter. Not implemented yet.
//
// Intended scope:
//   - End-of-day OHLCV for equities, ETFs and indices.
//   - Instrument identifier mapping from the symbol universe.
//   - Split and adjustment hints when available.
//
// The client will fetch CSV payloads per symbol and date range, coerce
// numeric fields through the shared normalization rules, and resume from
// the price checkpoint like the Yahoo adapter.
package stooq
