// Package config loads, normalizes, and validates Fontana configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GOODREADS_API_KEY and OVERDRIVE_CLIENT_SECRET. The Config type centralizes
// every knob the daemon and CLI need: catalog endpoints, enrichment
// credentials, sweep sizes and alert recipients.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
