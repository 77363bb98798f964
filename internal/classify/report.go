package classify

import "strings"

// Report keys.
const (
	KeyCover         = "cover"
	KeyGenres        = "genres"
	KeyAudience      = "audience"
	KeyCheckAudience = "check audience"
	KeyVerifyCover   = "verify cover"
	KeyCoverImage    = "cover image"
	KeyGoodreadsID   = "goodreads ID"
	KeyRating        = "rating"
	KeyTermsKeywords = "terms and keywords"
)

// Entry is one completeness check.
type Entry struct {
	Key string
	OK  bool
}

// Report is an ordered set of completeness checks. An item is publishable
// only when every entry is true.
type Report struct {
	entries []Entry
}

// NewReport starts a report with cover, genres and audience unresolved.
func NewReport() *Report {
	return &Report{entries: []Entry{
		{Key: KeyCover},
		{Key: KeyGenres},
		{Key: KeyAudience},
	}}
}

// Set records a check, appending a new key at the end.
func (r *Report) Set(key string, ok bool) {
	for i := range r.entries {
		if r.entries[i].Key == key {
			r.entries[i].OK = ok
			return
		}
	}
	r.entries = append(r.entries, Entry{Key: key, OK: ok})
}

// Get returns a check and whether it exists.
func (r *Report) Get(key string) (ok, present bool) {
	for _, e := range r.entries {
		if e.Key == key {
			return e.OK, true
		}
	}
	return false, false
}

// Complete reports whether every check passed.
func (r *Report) Complete() bool {
	for _, e := range r.entries {
		if !e.OK {
			return false
		}
	}
	return true
}

// Failed returns the keys of failed checks in order.
func (r *Report) Failed() []string {
	var keys []string
	for _, e := range r.entries {
		if !e.OK {
			keys = append(keys, e.Key)
		}
	}
	return keys
}

// Entries returns a copy of every check in order.
func (r *Report) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Verify renders the failed keys as the item's verify annotation.
func (r *Report) Verify() string {
	return strings.Join(r.Failed(), ";")
}
