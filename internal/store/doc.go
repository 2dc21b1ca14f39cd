// Package store provides the SQLite-backed pass journal.
//
// Every resolution pass is recorded with:
//   - Passes: one row per pass with the umbrella and suppression results
//   - Outcomes: one row per configured integration, in configured order
//   - Diagnostics: the pass diagnostics, keyed by their logical sequence number
//
// Writes are idempotent per pass id. Reads order passes by insertion seq and
// outcomes by configured position, never by wall-clock time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
