package store

import (
	"strconv"
	"strings"
	"time"
)

// Status is the lifecycle state of a collection item.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPending Status = "pending"
	StatusPublish Status = "publish"
	StatusTrash   Status = "trash"
)

// Collection identifies the catalog system an item was imported from.
type Collection string

const (
	CollectionEvergreen Collection = "evergreen"
	CollectionOverdrive Collection = "overdrive"
)

// Taxonomy names.
const (
	TaxGenres   = "genres"
	TaxAudience = "audience"
	TaxTopics   = "topics"
	TaxLocation = "location"
	TaxShelf    = "shelf"
	TaxKeyword  = "keyword"
)

// Identifier is a typed external identifier such as an ISBN.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// HoldingRow is a persisted available copy.
type HoldingRow struct {
	Barcode  string `json:"barcode"`
	Shelf    string `json:"shelving_location"`
	Location string `json:"location"`
}

// Item is a collection record and its reconciliation state.
type Item struct {
	ID          int64
	Title       string
	Collection  Collection
	Library     string
	RecordID    string
	Status      Status
	ItemTypes   []string
	Forms       []string
	Identifiers []Identifier
	AltTitles   []string
	Creator     string
	DateIssued  string
	PartNumber  string
	CoverURL    string
	Verify      string

	CheckFailCount int
	CheckFailAt    *time.Time

	// RecordChangeDate is the normalized source edit stamp. ActiveDate is the
	// last successful holdings sync (Evergreen only).
	RecordChangeDate string
	ActiveDate       string

	TermKeysJSON string
	Holdings     []HoldingRow

	GoodreadsID   string
	OpenLibraryID string
	GoogleBookID  string
	IMDbID        string
	Rating        float64

	// Terms maps taxonomy name to ordered term ids.
	Terms map[string][]int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IdentifierValues returns the values of every identifier of the given type.
func (i *Item) IdentifierValues(kind string) []string {
	var out []string
	for _, id := range i.Identifiers {
		if strings.EqualFold(id.Type, kind) && id.Value != "" {
			out = append(out, id.Value)
		}
	}
	return out
}

// HasItemType reports whether the item carries the named type (case-insensitive).
func (i *Item) HasItemType(kind string) bool {
	for _, t := range i.ItemTypes {
		if strings.EqualFold(t, kind) {
			return true
		}
	}
	return false
}

// Term is a taxonomy entry.
type Term struct {
	ID       int64
	Taxonomy string
	Name     string
	Slug     string
	ParentID int64
	Meta     map[string]string
}

// MetaIDs parses a comma separated list of term ids from a meta field.
func (t Term) MetaIDs(key string) []int64 {
	raw := strings.TrimSpace(t.Meta[key])
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Alert is a closing or notice post.
type Alert struct {
	ID           int64
	Title        string
	NoticeType   string
	Locations    []string
	Start        time.Time
	End          time.Time
	Body         string
	IsRevision   bool
	IsAutosave   bool
	EmailTracker string
}

// Event is a scheduled calendar event at a library venue.
type Event struct {
	ID           int64
	Title        string
	Start        time.Time
	End          time.Time
	Venue        string
	LocationSlug string
	AuthorEmail  string
}

// Staff is a directory entry used for alert recipients.
type Staff struct {
	ID         int64
	Name       string
	Email      string
	Position   string
	LocationID int64
}

// Timer is a recurring scheduled sweep.
type Timer struct {
	Name     string
	NextRun  time.Time
	Interval time.Duration
}

// BatchRun is a persisted batch report summary.
type BatchRun struct {
	ID         string
	Kind       string
	Catalog    string
	StartedAt  time.Time
	FinishedAt time.Time
	Checked    int
	Updated    int
	Draft      int
	Trash      int
	Failed     int
	Reasons    map[string]string
}
