// Package ecb is the planned ECB SDMX adapter. Not implemented yet.
//
// Intended scope:
//   - SDMX macro and FX series (rates, inflation proxies, EXR).
//   - Dataset and dimension metadata for key construction.
//   - Timestamped observations with frequency tags.
//
// The client will build SDMX keys from dataset and dimension filters,
// flatten SDMX-JSON into tabular rows, and normalize D/W/M/Q periodicity
// into the canonical daily date convention.
package ecb
