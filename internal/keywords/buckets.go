package keywords

import (
	"strings"

	json "github.com/goccy/go-json"

	"fontana/internal/textutil"
)

// Bucket names a keyword list.
type Bucket string

const (
	Genres        Bucket = "genres"
	GenresOther   Bucket = "genres_other"
	Audience      Bucket = "audience"
	AudienceOther Bucket = "audience_other"
	Topics        Bucket = "topics"
)

// All lists the buckets in their stored order.
var All = []Bucket{Genres, Audience, Topics, GenresOther, AudienceOther}

// Other returns the companion bucket holding free-form values for genres
// and audience. Other buckets have no companion.
func (b Bucket) Other() (Bucket, bool) {
	switch b {
	case Genres:
		return GenresOther, true
	case Audience:
		return AudienceOther, true
	}
	return "", false
}

// Buckets is an immutable set of normalized keyword lists. Every mutator
// returns a new value and leaves the receiver untouched.
type Buckets struct {
	lists map[Bucket][]string
	dewey Dewey
}

// New builds buckets from raw lists. Values are trimmed of list
// punctuation, lowercased and de-duplicated.
func New(lists map[Bucket][]string, dewey Dewey) Buckets {
	out := Buckets{lists: make(map[Bucket][]string, len(lists)), dewey: dewey}
	for bucket, values := range lists {
		if normalized := textutil.UniqueKeywords(values); len(normalized) > 0 {
			out.lists[bucket] = normalized
		}
	}
	return out
}

// Get returns a copy of a bucket's values.
func (b Buckets) Get(bucket Bucket) []string {
	return append([]string(nil), b.lists[bucket]...)
}

// Len reports the number of values in a bucket.
func (b Buckets) Len(bucket Bucket) int {
	return len(b.lists[bucket])
}

// Contains reports whether a bucket holds value.
func (b Buckets) Contains(bucket Bucket, value string) bool {
	value = textutil.NormalizeKeyword(value)
	for _, v := range b.lists[bucket] {
		if v == value {
			return true
		}
	}
	return false
}

// ContainsAny reports whether a bucket holds any value containing one of
// the substrings.
func (b Buckets) ContainsAny(bucket Bucket, substrings ...string) bool {
	for _, v := range b.lists[bucket] {
		for _, sub := range substrings {
			if strings.Contains(v, strings.ToLower(sub)) {
				return true
			}
		}
	}
	return false
}

// IsEmpty reports whether every bucket is empty and no Dewey value is set.
func (b Buckets) IsEmpty() bool {
	for _, values := range b.lists {
		if len(values) > 0 {
			return false
		}
	}
	return b.dewey.Value == ""
}

// Dewey returns the parsed call number.
func (b Buckets) Dewey() Dewey {
	return b.dewey
}

// WithDewey returns a copy with the Dewey value replaced.
func (b Buckets) WithDewey(d Dewey) Buckets {
	out := b.clone()
	out.dewey = d
	return out
}

// With returns a copy with values appended to bucket.
func (b Buckets) With(bucket Bucket, values ...string) Buckets {
	out := b.clone()
	out.lists[bucket] = textutil.UniqueKeywords(append(out.lists[bucket], values...))
	if len(out.lists[bucket]) == 0 {
		delete(out.lists, bucket)
	}
	return out
}

// Without returns a copy with values removed from bucket.
func (b Buckets) Without(bucket Bucket, values ...string) Buckets {
	if len(values) == 0 || len(b.lists[bucket]) == 0 {
		return b
	}
	drop := make(map[string]struct{}, len(values))
	for _, v := range values {
		drop[textutil.NormalizeKeyword(v)] = struct{}{}
	}
	out := b.clone()
	kept := make([]string, 0, len(out.lists[bucket]))
	for _, v := range out.lists[bucket] {
		if _, ok := drop[v]; !ok {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(out.lists, bucket)
	} else {
		out.lists[bucket] = kept
	}
	return out
}

// Merge returns a copy with every bucket of other appended. The receiver's
// Dewey value wins unless it is empty.
func (b Buckets) Merge(other Buckets) Buckets {
	out := b
	for _, bucket := range All {
		if values := other.lists[bucket]; len(values) > 0 {
			out = out.With(bucket, values...)
		}
	}
	if out.dewey.Value == "" && other.dewey.Value != "" {
		out = out.WithDewey(other.dewey)
	}
	return out
}

func (b Buckets) clone() Buckets {
	out := Buckets{lists: make(map[Bucket][]string, len(b.lists)), dewey: b.dewey}
	for bucket, values := range b.lists {
		out.lists[bucket] = append([]string(nil), values...)
	}
	return out
}

type bucketsJSON struct {
	Genres        []string   `json:"genres,omitempty"`
	Audience      []string   `json:"audience,omitempty"`
	Topics        []string   `json:"topics,omitempty"`
	GenresOther   []string   `json:"genres_other,omitempty"`
	AudienceOther []string   `json:"audience_other,omitempty"`
	Dewey         *deweyJSON `json:"dewey,omitempty"`
}

type deweyJSON struct {
	Value   string  `json:"value,omitempty"`
	Numeric float64 `json:"numeric,omitempty"`
	Text    string  `json:"text,omitempty"`
}

// MarshalJSON encodes the buckets in the stored term_keys layout.
func (b Buckets) MarshalJSON() ([]byte, error) {
	payload := bucketsJSON{
		Genres:        b.lists[Genres],
		Audience:      b.lists[Audience],
		Topics:        b.lists[Topics],
		GenresOther:   b.lists[GenresOther],
		AudienceOther: b.lists[AudienceOther],
	}
	if b.dewey.Value != "" {
		payload.Dewey = &deweyJSON{Value: b.dewey.Value, Numeric: b.dewey.Numeric, Text: b.dewey.Text}
	}
	return json.Marshal(payload)
}

// UnmarshalJSON decodes the stored term_keys layout.
func (b *Buckets) UnmarshalJSON(data []byte) error {
	var payload bucketsJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	var dewey Dewey
	if payload.Dewey != nil {
		dewey = Dewey{
			Value:      payload.Dewey.Value,
			Numeric:    payload.Dewey.Numeric,
			HasNumeric: payload.Dewey.Numeric != 0,
			Text:       payload.Dewey.Text,
		}
	}
	*b = New(map[Bucket][]string{
		Genres:        payload.Genres,
		Audience:      payload.Audience,
		Topics:        payload.Topics,
		GenresOther:   payload.GenresOther,
		AudienceOther: payload.AudienceOther,
	}, dewey)
	return nil
}

// Parse decodes a stored term_keys document. Empty input yields empty buckets.
func Parse(raw string) (Buckets, error) {
	var b Buckets
	if strings.TrimSpace(raw) == "" {
		return New(nil, Dewey{}), nil
	}
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return Buckets{}, err
	}
	return b, nil
}

// Encode renders buckets for storage. Empty buckets encode to "".
func (b Buckets) Encode() (string, error) {
	if b.IsEmpty() {
		return "", nil
	}
	data, err := b.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}
