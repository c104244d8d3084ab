// Package storage persists emitted samples.
//
// It currently supports:
//   - "file": JSON Lines, append-only
//   - "sqlite": a single samples table (modernc.org/sqlite, pure Go)
package storage
