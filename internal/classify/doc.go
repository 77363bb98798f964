// Package classify assigns genre, audience and topic terms to collection
// items from their keyword buckets.
//
// Classification runs in stages: exact name matches, related keyword terms,
// sub-topics for leftover values, genre cleanup and the default audience.
// The completeness Report decides whether an item can be published or needs
// staff review.
package classify
