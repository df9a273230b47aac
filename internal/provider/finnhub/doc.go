// Package finnhub is the planned Finnhub adapter. Not implemented yet.
//
// Intended scope:
//   - Equity, FX and crypto quote snapshots.
//   - Company profile and symbol metadata.
//   - Market-moving news and event calendars.
//
// The client will validate its API token at startup, normalize all
// timestamps to UTC, and budget requests to stay inside free-tier
// quotas.
package finnhub
