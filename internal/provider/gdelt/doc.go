// Package gdelt is the planned GDELT adapter. Not implemented yet.
//
// Intended scope:
//   - Global news headlines with publication timestamp and source.
//   - Query-level relevance metadata for market filters.
//   - Event enrichment fields (theme, tone, location).
//
// The client will build keyword/language/country queries against the DOC
// API with pagination, and suppress duplicates by canonical URL and
// published timestamp.
package gdelt
