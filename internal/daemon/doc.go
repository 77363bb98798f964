// Package daemon runs the scheduled sweeps for the long-running Fontana
// process.
//
// A single instance lock keeps two daemons off the same data directory. Each
// poll asks the store for due timers, dispatches them to the batch
// orchestrator under the shared run lock, and advances them. Run summaries and
// sweep failures are published through the notifications service, and the
// Prometheus registry can be served on the configured metrics address.
package daemon
