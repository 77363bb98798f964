// Package store persists collection items, taxonomy terms, options, timers,
// alerts and batch summaries in SQLite.
//
// The schema is embedded and versioned; a mismatched database is rejected
// rather than migrated. Writes retry with exponential backoff whenever SQLite
// reports the database busy, so the daemon and CLI can share one file.
// Lookups that find nothing return a nil value and a nil error.
package store
