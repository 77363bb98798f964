// Package logs reads fontanad log files for the CLI: the last N lines,
// follow mode with truncation handling, and level/component filtering of
// both the JSON and console line formats.
package logs
