// Package reconcile decides what a catalog answer means for one collection
// item and applies it.
//
// A reconciliation loads the item, checks its holdings (union catalog
// counts and copies, or lending-platform ownership), classifies it when it
// is new or incomplete, and writes the resulting status, title prefix,
// location and shelf terms, and failure bookkeeping back to the store.
// Import is the entry point for the bulk importer.
package reconcile
