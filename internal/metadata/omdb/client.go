package omdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"fontana/internal/config"
	"fontana/internal/fetch"
)

// QueryType selects the OMDb lookup parameter.
type QueryType string

const (
	QuerySearch QueryType = "search"
	QueryTitle  QueryType = "title"
	QueryIMDb   QueryType = "imdb"
)

// Kind is the OMDb result type filter.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Query describes one lookup. Year is an optional release-year hint.
type Query struct {
	Type QueryType
	Kind Kind
	Year int
}

// Client queries the OMDb API.
type Client struct {
	apiKey  string
	baseURL string
	http    fetch.Getter
}

// New creates an OMDb client.
func New(cfg config.OMDb, getter fetch.Getter) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    getter,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// URL builds the request URL for one value.
func (c *Client) URL(q Query, value string, year int) string {
	params := url.Values{}
	switch q.Type {
	case QueryIMDb:
		params.Set("i", value)
	case QueryTitle:
		params.Set("t", value)
	default:
		params.Set("s", value)
	}
	if q.Type != QueryIMDb {
		kind := q.Kind
		if kind == "" {
			kind = KindMovie
		}
		params.Set("type", string(kind))
	}
	if year > 0 {
		params.Set("y", strconv.Itoa(year))
	}
	params.Set("apikey", c.apiKey)
	return c.baseURL + "/?" + params.Encode()
}

// Lookup tries each value in order and returns the first answer without an
// error payload. With a year hint, a miss is retried with the year one and
// then two before the hint.
func (c *Client) Lookup(ctx context.Context, q Query, values ...string) *Result {
	result := &Result{queryType: q.Type}
	for _, value := range values {
		if value = strings.TrimSpace(value); value == "" {
			continue
		}
		if result = c.fetch(ctx, q, value, q.Year); result.found() {
			return result
		}
		if q.Year <= 0 {
			continue
		}
		for offset := 1; offset <= 2; offset++ {
			if result = c.fetch(ctx, q, value, q.Year-offset); result.found() {
				return result
			}
		}
	}
	return &Result{queryType: q.Type}
}

func (c *Client) fetch(ctx context.Context, q Query, value string, year int) *Result {
	resp := c.http.Get(ctx, c.URL(q, value, year), nil)
	result := &Result{queryType: q.Type, Code: resp.Code}
	if !resp.OK() {
		return result
	}
	var payload map[string]any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return result
	}
	result.data = payload
	return result
}

// Result is a decoded OMDb payload. A zero-data Result is safe to use.
type Result struct {
	Code      int
	queryType QueryType
	data      map[string]any
}

func (r *Result) found() bool {
	if r == nil || r.data == nil {
		return false
	}
	if _, failed := r.data["Error"]; failed {
		return false
	}
	if resp, ok := r.data["Response"].(string); ok && strings.EqualFold(resp, "false") {
		return false
	}
	return true
}

// Empty reports whether the lookup produced no usable answer.
func (r *Result) Empty() bool {
	if !r.found() {
		return true
	}
	if r.queryType == QuerySearch {
		list, _ := r.data["Search"].([]any)
		return len(list) == 0
	}
	return false
}

// Info returns a field of the answer, or of the first search hit in search
// mode. "N/A" is reported as empty.
func (r *Result) Info(field string) string {
	if r.Empty() {
		return ""
	}
	source := r.data
	if r.queryType == QuerySearch {
		list, _ := r.data["Search"].([]any)
		first, _ := list[0].(map[string]any)
		source = first
	}
	value := stringify(source[field])
	if value == "N/A" {
		return ""
	}
	return value
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// Rating converts imdbRating (out of ten) to a five-point reader rating.
func (r *Result) Rating() (float64, bool) {
	value := r.Info("imdbRating")
	if value == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return rating / 2, true
}
