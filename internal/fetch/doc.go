// Package fetch is the HTTP transport shared by the catalog and metadata
// clients.
//
// Every request yields a Response value instead of an error. Transport
// failures are reported as code 800 so callers can apply one "usable or not"
// rule. Each Client carries its own token-bucket limiter and a circuit
// breaker that opens after consecutive transport or 5xx failures; while open,
// requests short-circuit to code 800 without touching the network.
package fetch
