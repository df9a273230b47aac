// Package fred is the planned FRED adapter. Not implemented yet.
//
// Intended scope:
//   - Macro time series observations (rates, inflation, labor, growth).
//   - Series metadata (title, frequency, units, seasonal adjustment).
//   - Release timestamps and revision-aware observation dates.
//
// The client will read its API key from configuration, fetch the
// observations endpoint with date and frequency parameters, map the
// provider's missing-value marker "." to absent, and resume incrementally
// from the macro checkpoint like the implemented adapters.
package fred
