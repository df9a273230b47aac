// Package coingecko is the planned CoinGecko adapter. Not implemented yet.
//
// Intended scope:
//   - Crypto market snapshots (price, market cap, volume, rank).
//   - Historical market chart points.
//   - Coin metadata for symbol to coin-id mapping.
//
// The client will bootstrap and cache the coin list, fetch
// /coins/{id}/market_chart windows, dedupe by (coin id, timestamp) and
// respect free-tier rate limits via the shared retrying HTTP client.
package coingecko
