// Command fontana is the operator CLI for the catalog pipeline: manual
// sweeps, per-item checks and imports, term cache maintenance, alert
// processing and stored settings.
package main
