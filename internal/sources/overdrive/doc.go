// Package overdrive is a client for the OverDrive discovery API.
//
// Requests authenticate with an OAuth2 client-credentials token that is
// cached until shortly before it expires. Library accounts are resolved from
// the configured library key map and cached per process.
package overdrive
