package openlibrary

import (
	"context"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"fontana/internal/config"
	"fontana/internal/fetch"
)

var bibkeyTypes = map[string]struct{}{"isbn": {}, "oclc": {}, "lccn": {}, "olid": {}}

var filteredSubjects = map[string]struct{}{
	"Accessible book":              {},
	"In library":                   {},
	"Large type books":             {},
	"Open Library Staff Picks":     {},
	"OverDrive":                    {},
	"Popular Print Disabled Books": {},
	"Protected DAISY":              {},
}

// Sub-topic parents for subject facets.
const (
	ParentPlaces = "Geographics"
	ParentPeople = "Entities>Personal"
	ParentTimes  = "Temporal"
)

// Identifier is a typed bibliographic identifier.
type Identifier struct {
	Type  string
	Value string
}

// Client queries the OpenLibrary books API.
type Client struct {
	baseURL string
	http    fetch.Getter
}

// New creates an OpenLibrary client.
func New(cfg config.OpenLibrary, getter fetch.Getter) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    getter,
	}
}

// Bibkeys keeps the identifiers OpenLibrary understands, formatted as
// "type:value".
func Bibkeys(ids []Identifier) []string {
	keys := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		kind := strings.ToLower(strings.TrimSpace(id.Type))
		value := strings.TrimSpace(id.Value)
		if _, ok := bibkeyTypes[kind]; !ok || value == "" {
			continue
		}
		key := kind + ":" + value
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Lookup fetches every usable identifier in one request.
func (c *Client) Lookup(ctx context.Context, ids []Identifier) *Result {
	keys := Bibkeys(ids)
	result := &Result{keys: keys}
	if len(keys) == 0 {
		return result
	}
	endpoint := c.baseURL + "/api/books?bibkeys=" + url.QueryEscape(strings.Join(keys, ",")) + "&jscmd=data&format=json"
	resp := c.http.Get(ctx, endpoint, nil)
	result.Code = resp.Code
	if !resp.OK() {
		return result
	}
	var payload map[string]bookJSON
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return result
	}
	result.data = payload
	return result
}

type bookJSON struct {
	Cover struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
	Identifiers   map[string][]string `json:"identifiers"`
	Subjects      []named             `json:"subjects"`
	SubjectPlaces []named             `json:"subject_places"`
	SubjectPeople []named             `json:"subject_people"`
	SubjectTimes  []named             `json:"subject_times"`
}

type named struct {
	Name string `json:"name"`
}

// IDs are external identifiers OpenLibrary knows for a book.
type IDs struct {
	OpenLibrary string
	GoodReads   string
	Google      string
}

// SubTopic is a group of values to insert as children of Parent.
type SubTopic struct {
	Parent string
	Values []string
}

// Keywords are subject headings split into plain topics and faceted
// sub-topics.
type Keywords struct {
	Topics    []string
	SubTopics []SubTopic
}

// Result is a decoded books response. A zero-data Result is safe to use.
type Result struct {
	Code int
	keys []string
	data map[string]bookJSON
}

// Empty reports whether no requested identifier matched.
func (r *Result) Empty() bool {
	return r == nil || len(r.data) == 0
}

func (r *Result) books() []bookJSON {
	if r.Empty() {
		return nil
	}
	books := make([]bookJSON, 0, len(r.keys))
	for _, key := range r.keys {
		if book, ok := r.data[key]; ok {
			books = append(books, book)
		}
	}
	return books
}

// Cover returns the largest cover available across all identifiers.
func (r *Result) Cover() string {
	books := r.books()
	for _, size := range []string{"large", "medium", "small"} {
		for _, book := range books {
			var value string
			switch size {
			case "large":
				value = book.Cover.Large
			case "medium":
				value = book.Cover.Medium
			default:
				value = book.Cover.Small
			}
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}

// IDs returns the first openlibrary, goodreads and google ids found.
func (r *Result) IDs() IDs {
	var ids IDs
	for _, book := range r.books() {
		if ids.OpenLibrary == "" {
			ids.OpenLibrary = first(book.Identifiers["openlibrary"])
		}
		if ids.GoodReads == "" {
			ids.GoodReads = first(book.Identifiers["goodreads"])
		}
		if ids.Google == "" {
			ids.Google = first(book.Identifiers["google"])
		}
	}
	return ids
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Keywords collects subjects as topics and places, people and times as
// sub-topics, dropping OpenLibrary housekeeping subjects.
func (r *Result) Keywords() Keywords {
	var kw Keywords
	facets := map[string][]string{}
	seen := map[string]struct{}{}
	add := func(bucket string, names []named) []string {
		var out []string
		for _, n := range names {
			name := strings.TrimSpace(n.Name)
			if name == "" {
				continue
			}
			if _, skip := filteredSubjects[name]; skip {
				continue
			}
			key := bucket + "\x00" + strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, name)
		}
		return out
	}
	for _, book := range r.books() {
		kw.Topics = append(kw.Topics, add("topics", book.Subjects)...)
		facets[ParentPlaces] = append(facets[ParentPlaces], add(ParentPlaces, book.SubjectPlaces)...)
		facets[ParentPeople] = append(facets[ParentPeople], add(ParentPeople, book.SubjectPeople)...)
		facets[ParentTimes] = append(facets[ParentTimes], add(ParentTimes, book.SubjectTimes)...)
	}
	for _, parent := range []string{ParentPlaces, ParentPeople, ParentTimes} {
		if values := facets[parent]; len(values) > 0 {
			kw.SubTopics = append(kw.SubTopics, SubTopic{Parent: parent, Values: values})
		}
	}
	return kw
}
