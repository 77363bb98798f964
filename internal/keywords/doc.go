// Package keywords holds the normalized keyword buckets (term keys) that
// drive classification.
//
// Buckets are built once per record from source fields (FromEvergreen,
// FromOverdrive), extended with enrichment keywords, and then reduced stage by
// stage during classification. Every operation returns a new value. The
// JSON form is the term_keys column of an item.
package keywords
