package goodreads

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fontana/internal/config"
	"fontana/internal/fetch"
)

// Mode identifies how a Result was looked up.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeISBN   Mode = "isbn"
	ModeID     Mode = "goodreads"
)

const maxKeywords = 9

// minShelfCount is the popularity at or below which shelf collection stops
// once at least one keyword has been gathered.
const minShelfCount = 4

// Client queries the GoodReads XML API.
type Client struct {
	apiKey  string
	baseURL string
	http    fetch.Getter
}

// New creates a GoodReads client.
func New(cfg config.GoodReads, getter fetch.Getter) *Client {
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

// Search runs a free-text search and keeps the first work. Each part may
// carry "+"-separated words, as produced for author names.
func (c *Client) Search(ctx context.Context, parts ...string) *Result {
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		for _, word := range strings.FieldsFunc(part, func(r rune) bool { return r == '+' || r == ' ' }) {
			words = append(words, url.QueryEscape(word))
		}
	}
	endpoint := fmt.Sprintf("%s/search/index.xml?key=%s&q=%s", c.baseURL, url.QueryEscape(c.apiKey), strings.Join(words, "+"))
	return c.load(ctx, ModeSearch, endpoint)
}

// ByISBN tries each candidate in order and keeps the first one GoodReads
// answers without an error status.
func (c *Client) ByISBN(ctx context.Context, isbns []string) *Result {
	var last fetch.Response
	tried := false
	for _, isbn := range isbns {
		if isbn = strings.TrimSpace(isbn); isbn == "" {
			continue
		}
		endpoint := fmt.Sprintf("%s/book/isbn/%s?key=%s", c.baseURL, url.PathEscape(isbn), url.QueryEscape(c.apiKey))
		last = c.http.Get(ctx, endpoint, nil)
		tried = true
		if !last.Failed() {
			break
		}
	}
	if !tried {
		return &Result{mode: ModeISBN, client: c, Code: fetch.CodeTransport}
	}
	return c.parse(ModeISBN, last)
}

// ByID fetches a book by its GoodReads id.
func (c *Client) ByID(ctx context.Context, id string) *Result {
	endpoint := fmt.Sprintf("%s/book/show/%s.xml?key=%s", c.baseURL, url.PathEscape(strings.TrimSpace(id)), url.QueryEscape(c.apiKey))
	return c.load(ctx, ModeID, endpoint)
}

func (c *Client) load(ctx context.Context, mode Mode, endpoint string) *Result {
	return c.parse(mode, c.http.Get(ctx, endpoint, nil))
}

func (c *Client) parse(mode Mode, resp fetch.Response) *Result {
	result := &Result{mode: mode, client: c, Code: resp.Code}
	if !resp.OK() {
		return result
	}
	var doc responseXML
	if err := xml.NewDecoder(bytes.NewReader(resp.Body)).Decode(&doc); err != nil {
		return result
	}
	result.doc = &doc
	return result
}

type responseXML struct {
	Search struct {
		Works []workXML `xml:"results>work"`
	} `xml:"search"`
	Book *bookXML `xml:"book"`
}

type workXML struct {
	BestBook struct {
		Fields []fieldXML `xml:",any"`
	} `xml:"best_book"`
	Fields []fieldXML `xml:",any"`
}

type bookXML struct {
	Shelves []shelfXML `xml:"popular_shelves>shelf"`
	Fields  []fieldXML `xml:",any"`
}

type fieldXML struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type shelfXML struct {
	Name  string `xml:"name,attr"`
	Count string `xml:"count,attr"`
}

// Shelf is one popular shelf entry.
type Shelf struct {
	Name  string
	Count int
}

func lookupField(fields []fieldXML, name string) string {
	for _, f := range fields {
		if f.XMLName.Local == name {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}

// Result is a parsed GoodReads answer. A zero-data Result is safe to use.
type Result struct {
	Code   int
	mode   Mode
	client *Client
	doc    *responseXML
}

// Mode reports how the result was looked up.
func (r *Result) Mode() Mode { return r.mode }

// Empty reports whether the lookup yielded no book.
func (r *Result) Empty() bool {
	if r == nil || r.doc == nil {
		return true
	}
	if r.mode == ModeSearch {
		return len(r.doc.Search.Works) == 0
	}
	return r.doc.Book == nil
}

// Info returns a field of the first search result (best_book, then work) or
// of the book record. Placeholder cover images are reported as empty.
func (r *Result) Info(field string) string {
	if r.Empty() {
		return ""
	}
	var value string
	if r.mode == ModeSearch {
		work := r.doc.Search.Works[0]
		value = lookupField(work.BestBook.Fields, field)
		if value == "" {
			value = lookupField(work.Fields, field)
		}
	} else {
		value = lookupField(r.doc.Book.Fields, field)
	}
	if field == "image_url" && strings.Contains(strings.ToLower(value), "nophoto") {
		return ""
	}
	return value
}

// Shelves returns the popular shelves of a book record in API order.
func (r *Result) Shelves() []Shelf {
	if r.Empty() || r.doc.Book == nil {
		return nil
	}
	shelves := make([]Shelf, 0, len(r.doc.Book.Shelves))
	for _, s := range r.doc.Book.Shelves {
		count, _ := strconv.Atoi(strings.TrimSpace(s.Count))
		shelves = append(shelves, Shelf{Name: strings.TrimSpace(s.Name), Count: count})
	}
	return shelves
}

// Keywords returns informative shelf names. Search results carry no shelves,
// so the book is refetched by id first.
func (r *Result) Keywords(ctx context.Context) []string {
	if r.Empty() {
		return nil
	}
	if r.mode == ModeSearch {
		id := r.Info("id")
		if id == "" || r.client == nil {
			return nil
		}
		return r.client.ByID(ctx, id).Keywords(ctx)
	}
	return SelectKeywords(r.Shelves())
}

// SelectKeywords walks shelves in order, skipping non-informative names. It
// stops before the first shelf with a count of minShelfCount or less once a
// keyword has been collected, and never returns more than nine.
func SelectKeywords(shelves []Shelf) []string {
	keywords := make([]string, 0, maxKeywords)
	for _, shelf := range shelves {
		if shelf.Count <= minShelfCount && len(keywords) >= 1 {
			break
		}
		if shelf.Name == "" || isFiltered(shelf.Name) {
			continue
		}
		keywords = append(keywords, shelf.Name)
		if len(keywords) >= maxKeywords {
			break
		}
	}
	return keywords
}
