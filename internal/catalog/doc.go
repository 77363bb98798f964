// Package catalog defines the source-neutral record types exchanged between
// catalog clients, the batch orchestrator and the reconciler.
//
// A Record is either an EvergreenRecord (union catalog counts and copies) or
// an OverdriveRecord (lending-platform ownership). Normalize turns either one
// into a Snapshot carrying a keep/delete/none verdict and the copies whose
// status is on the available allow-list.
package catalog
