package evergreen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fontana/internal/catalog"
	"fontana/internal/config"
	"fontana/internal/fetch"
)

const (
	classRecord = "bre"
	classFeed   = "biblio_record_entry_feed"
	serviceName = "evergreen"
)

// ErrMalformed reports a holdings document that parsed but lacked counts.
var ErrMalformed = errors.New("evergreen holdings document malformed")

// Client queries the Evergreen unAPI for holdings.
type Client struct {
	baseURL  string
	orgUnit  string
	format   string
	includes string
	http     fetch.Getter
}

// New creates an Evergreen client.
func New(cfg config.Evergreen, getter fetch.Getter) *Client {
	return &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		orgUnit:  strings.TrimSpace(cfg.OrgUnit),
		format:   strings.TrimSpace(cfg.Format),
		includes: strings.TrimSpace(cfg.Includes),
		http:     getter,
	}
}

// RecordURL returns the unAPI holdings URL for one record.
func (c *Client) RecordURL(recordID string) string {
	return c.unapiURL(classRecord, strings.TrimSpace(recordID))
}

// BulkURL returns the unAPI feed URL for several records.
func (c *Client) BulkURL(recordIDs []string) string {
	trimmed := make([]string, 0, len(recordIDs))
	for _, id := range recordIDs {
		if id = strings.TrimSpace(id); id != "" {
			trimmed = append(trimmed, id)
		}
	}
	return c.unapiURL(classFeed, strings.Join(trimmed, ","))
}

func (c *Client) unapiURL(class, query string) string {
	return fmt.Sprintf("%s/unapi?format=%s;id=tag::U2@%s/%s%s/%s",
		c.baseURL, c.format, class, query, c.includes, c.orgUnit)
}

// SupercatURL returns a supercat retrieve URL, e.g. for marcxml or mods.
func (c *Client) SupercatURL(format, recordType, query string) string {
	if recordType == "" {
		recordType = "record"
	}
	return fmt.Sprintf("%s/supercat/retrieve/%s/%s/%s", c.baseURL, format, recordType, query)
}

// OpenSearchURL returns an OpenSearch 1.1 URL scoped to the org unit.
func (c *Client) OpenSearchURL(format, query string) string {
	return fmt.Sprintf("%s/opensearch/1.1/%s/%s%s", c.baseURL, c.orgUnit, format, query)
}

// Lookup fetches holdings for one record. The returned error is a
// *fetch.Error for unusable responses.
func (c *Client) Lookup(ctx context.Context, recordID string) (catalog.EvergreenRecord, error) {
	resp := c.http.Get(ctx, c.RecordURL(recordID), nil)
	if err := resp.AsError(serviceName); err != nil {
		return catalog.EvergreenRecord{}, err
	}
	record, err := parseRecord(resp.Body)
	if err != nil {
		return catalog.EvergreenRecord{}, fmt.Errorf("parse holdings for %s: %w", recordID, err)
	}
	record.RecordID = strings.TrimSpace(recordID)
	return record, nil
}

// BulkLookup fetches holdings for several records in one request. Results are
// combined with the requested ids by position when the counts line up;
// otherwise they are returned unkeyed with the id read from each document.
func (c *Client) BulkLookup(ctx context.Context, recordIDs []string) (catalog.Batch, error) {
	if len(recordIDs) == 0 {
		return catalog.Batch{}, nil
	}
	resp := c.http.Get(ctx, c.BulkURL(recordIDs), nil)
	if err := resp.AsError(serviceName); err != nil {
		return catalog.Batch{}, err
	}
	records, err := parseFeed(resp.Body)
	if err != nil {
		return catalog.Batch{}, fmt.Errorf("parse holdings feed: %w", err)
	}

	batch := catalog.Batch{}
	if len(records) == len(recordIDs) {
		batch.Keyed = make(map[string]catalog.Record, len(records))
		for i, rec := range records {
			key := strings.TrimSpace(recordIDs[i])
			rec.RecordID = key
			batch.Keyed[key] = rec
		}
		return batch, nil
	}
	for _, rec := range records {
		batch.Unkeyed = append(batch.Unkeyed, rec)
	}
	return batch, nil
}
