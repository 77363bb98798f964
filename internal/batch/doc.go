// Package batch runs bulk holdings checks.
//
// Items are grouped by catalog key ("evergreen" or "overdrive-<library>"),
// split into chunks, and each chunk is answered by a single bulk request
// before its items are reconciled in order. The scheduled sweeps (failed
// items, stale union catalog holdings, possibly withdrawn lending titles)
// are built on the same loop and keep their store timers registered while a
// backlog remains.
package batch
