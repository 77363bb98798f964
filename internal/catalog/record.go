package catalog

import "strings"

// Kind identifies the catalog system a record came from.
type Kind string

const (
	KindEvergreen Kind = "evergreen"
	KindOverdrive Kind = "overdrive"
)

// Record is a pre-fetched catalog answer for one item. It is either an
// EvergreenRecord or an OverdriveRecord.
type Record interface {
	Kind() Kind
	// Key is the source record id used to re-associate bulk results.
	Key() string
}

// Holding is one copy listed by the union catalog.
type Holding struct {
	Library string
	Shelf   string
	Barcode string
	CopyID  string
	Status  int
	Deleted bool
}

// Available reports whether the copy counts toward local holdings. A copy
// the catalog marks deleted never counts, whatever its status code.
func (h Holding) Available() bool {
	return !h.Deleted && IsAvailable(h.Status)
}

// EvergreenRecord carries union catalog holdings counts and copies.
type EvergreenRecord struct {
	RecordID        string
	ConsortiumCount int
	LocalCount      int
	Holdings        []Holding
}

func (EvergreenRecord) Kind() Kind { return KindEvergreen }

func (r EvergreenRecord) Key() string { return r.RecordID }

// OverdriveRecord carries lending-platform ownership for one title.
type OverdriveRecord struct {
	ReserveID string
	// Owned is nil when the platform response did not state ownership.
	Owned *bool
}

func (OverdriveRecord) Kind() Kind { return KindOverdrive }

func (r OverdriveRecord) Key() string { return strings.ToLower(r.ReserveID) }

// Verdict is the holdings decision reached from a record.
type Verdict int

const (
	// VerdictKeep means the item has local holdings (or is owned).
	VerdictKeep Verdict = iota
	// VerdictDelete means the consortium no longer holds the title.
	VerdictDelete
	// VerdictNone means the consortium holds it but no local copy exists.
	VerdictNone
	// VerdictUnknown means the record lacks the data to decide.
	VerdictUnknown
)

func (v Verdict) String() string {
	switch v {
	case VerdictKeep:
		return "keep"
	case VerdictDelete:
		return "delete"
	case VerdictNone:
		return "none"
	default:
		return "unknown"
	}
}

// Snapshot is the normalized view of a Record.
type Snapshot struct {
	Kind      Kind
	Key       string
	Verdict   Verdict
	Available []Holding
}

// Normalize reduces a record to a holdings verdict and the available copies.
// Counts are checked first: a consortium count of zero deletes, a local count
// of zero empties. Copies only matter once both counts are positive.
func Normalize(rec Record) Snapshot {
	switch r := rec.(type) {
	case EvergreenRecord:
		return normalizeEvergreen(r)
	case *EvergreenRecord:
		if r == nil {
			return Snapshot{Kind: KindEvergreen, Verdict: VerdictUnknown}
		}
		return normalizeEvergreen(*r)
	case OverdriveRecord:
		return normalizeOverdrive(r)
	case *OverdriveRecord:
		if r == nil {
			return Snapshot{Kind: KindOverdrive, Verdict: VerdictUnknown}
		}
		return normalizeOverdrive(*r)
	default:
		return Snapshot{Verdict: VerdictUnknown}
	}
}

func normalizeEvergreen(r EvergreenRecord) Snapshot {
	snap := Snapshot{Kind: KindEvergreen, Key: r.Key()}
	switch {
	case r.ConsortiumCount == 0:
		snap.Verdict = VerdictDelete
		return snap
	case r.LocalCount < 1:
		snap.Verdict = VerdictNone
		return snap
	}
	for _, h := range r.Holdings {
		if h.Available() {
			snap.Available = append(snap.Available, h)
		}
	}
	snap.Verdict = VerdictKeep
	return snap
}

func normalizeOverdrive(r OverdriveRecord) Snapshot {
	snap := Snapshot{Kind: KindOverdrive, Key: r.Key()}
	switch {
	case r.Owned == nil:
		snap.Verdict = VerdictUnknown
	case *r.Owned:
		snap.Verdict = VerdictKeep
	default:
		snap.Verdict = VerdictDelete
	}
	return snap
}

// Batch is the answer to one bulk request. Keyed holds records that could be
// matched to the requested keys by position; Unkeyed holds the rest, which
// callers match by Record.Key.
type Batch struct {
	Keyed   map[string]Record
	Unkeyed []Record
}

// Find returns the record for key, falling back to a scan of the unkeyed
// records by their own id field.
func (b Batch) Find(key string) (Record, bool) {
	if rec, ok := b.Keyed[key]; ok && rec != nil {
		return rec, true
	}
	want := strings.ToLower(strings.TrimSpace(key))
	for _, rec := range b.Unkeyed {
		if rec != nil && strings.ToLower(rec.Key()) == want {
			return rec, true
		}
	}
	return nil, false
}

// Len reports how many records the batch carries.
func (b Batch) Len() int {
	return len(b.Keyed) + len(b.Unkeyed)
}
