package overdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"fontana/internal/catalog"
	"fontana/internal/config"
	"fontana/internal/fetch"
)

const (
	serviceName        = "overdrive"
	tokenRefreshLeeway = time.Minute
)

var (
	// ErrCredentialsMissing is returned when no client key/secret pair is configured.
	ErrCredentialsMissing = errors.New("overdrive client credentials not configured")
	// ErrUnknownLibrary is returned when a library key has no configured account.
	ErrUnknownLibrary = errors.New("overdrive library not configured")
)

// Account is the subset of a library account the client needs.
type Account struct {
	ID              string
	Name            string
	CollectionToken string
	ProductsURL     string
	WebsiteURL      string
}

// Client talks to the OverDrive discovery API.
type Client struct {
	key       string
	secret    string
	oauthURL  string
	apiURL    string
	libraries map[string]string
	http      fetch.Getter
	now       func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	accounts  map[string]Account
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an OverDrive client from the [overdrive] config section.
func New(cfg config.Overdrive, getter fetch.Getter, opts ...Option) *Client {
	libraries := make(map[string]string, len(cfg.Libraries))
	for k, v := range cfg.Libraries {
		libraries[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	c := &Client{
		key:       strings.TrimSpace(cfg.ClientKey),
		secret:    strings.TrimSpace(cfg.ClientSecret),
		oauthURL:  strings.TrimSpace(cfg.OAuthURL),
		apiURL:    strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		libraries: libraries,
		http:      getter,
		now:       time.Now,
		accounts:  make(map[string]Account),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt.Add(-tokenRefreshLeeway)) {
		return c.token, nil
	}
	if c.key == "" || c.secret == "" {
		return "", ErrCredentialsMissing
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp := c.http.Do(req)
	if err := resp.AsError(serviceName); err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	var payload tokenResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	c.token = payload.AccessToken
	c.expiresAt = c.now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	resp := c.http.Get(ctx, rawURL, header)
	if resp.Code == http.StatusUnauthorized {
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
	}
	if err := resp.AsError(serviceName); err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("%s returned an empty body", rawURL)
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s: %w", serviceName, err)
	}
	return nil
}

type accountResponse struct {
	Name            string `json:"name"`
	CollectionToken string `json:"collectionToken"`
	Links           struct {
		Products    link `json:"products"`
		DLRHomepage link `json:"dlrHomepage"`
	} `json:"links"`
}

type link struct {
	Href string `json:"href"`
}

// LibraryID resolves a library key to its configured account id.
func (c *Client) LibraryID(libraryKey string) (string, error) {
	id, ok := c.libraries[strings.ToLower(strings.TrimSpace(libraryKey))]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownLibrary, libraryKey)
	}
	return id, nil
}

// Account returns the library account for a library key, caching the result.
func (c *Client) Account(ctx context.Context, libraryKey string) (Account, error) {
	libraryID, err := c.LibraryID(libraryKey)
	if err != nil {
		return Account{}, err
	}
	c.mu.Lock()
	cached, ok := c.accounts[libraryID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var payload accountResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/libraries/%s", c.apiURL, url.PathEscape(libraryID)), &payload); err != nil {
		return Account{}, fmt.Errorf("library account %s: %w", libraryID, err)
	}
	if payload.CollectionToken == "" {
		return Account{}, fmt.Errorf("library account %s: missing collection token", libraryID)
	}
	account := Account{
		ID:              libraryID,
		Name:            payload.Name,
		CollectionToken: payload.CollectionToken,
		ProductsURL:     payload.Links.Products.Href,
		WebsiteURL:      payload.Links.DLRHomepage.Href,
	}
	c.mu.Lock()
	c.accounts[libraryID] = account
	c.mu.Unlock()
	return account, nil
}

// Metadata is the product metadata fields used by reconciliation and
// keyword extraction.
type Metadata struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	SortTitle            string    `json:"sortTitle"`
	MediaType            string    `json:"mediaType"`
	Publisher            string    `json:"publisher"`
	PublishDate          string    `json:"publishDate"`
	IsOwnedByCollections *bool     `json:"isOwnedByCollections"`
	Subjects             []Subject `json:"subjects"`
	Keywords             []string  `json:"keywords"`
	Levels               []Level   `json:"levels"`
	GradeLevels          []Level   `json:"gradeLevels"`
	ReadingLevels        []Level   `json:"readingLevels"`
	InterestLevels       []Level   `json:"interestLevels"`
	Images               struct {
		Cover link `json:"cover"`
	} `json:"images"`
}

// Subject is one BISAC-style subject.
type Subject struct {
	Value string `json:"value"`
}

// Level is a grade, reading or interest level entry.
type Level struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// Record projects the metadata onto a catalog record.
func (m Metadata) Record() catalog.OverdriveRecord {
	return catalog.OverdriveRecord{ReserveID: m.ID, Owned: m.IsOwnedByCollections}
}

// Lookup fetches metadata for one reserve id in the library's collection.
func (c *Client) Lookup(ctx context.Context, libraryKey, reserveID string) (Metadata, error) {
	account, err := c.Account(ctx, libraryKey)
	if err != nil {
		return Metadata{}, err
	}
	endpoint := fmt.Sprintf("%s/v1/collections/%s/products/%s/metadata",
		c.apiURL, url.PathEscape(account.CollectionToken), url.PathEscape(strings.TrimSpace(reserveID)))
	var meta Metadata
	if err := c.getJSON(ctx, endpoint, &meta); err != nil {
		return Metadata{}, fmt.Errorf("metadata %s: %w", reserveID, err)
	}
	if meta.ID == "" {
		meta.ID = reserveID
	}
	return meta, nil
}

type bulkResponse struct {
	Metadata []Metadata `json:"metadata"`
}

// BulkLookup fetches ownership for several reserve ids. The response entries
// are not ordered so every record is returned unkeyed.
func (c *Client) BulkLookup(ctx context.Context, libraryKey string, reserveIDs []string) (catalog.Batch, error) {
	if len(reserveIDs) == 0 {
		return catalog.Batch{}, nil
	}
	account, err := c.Account(ctx, libraryKey)
	if err != nil {
		return catalog.Batch{}, err
	}
	ids := make([]string, 0, len(reserveIDs))
	for _, id := range reserveIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	query := url.Values{"reserveIds": {strings.Join(ids, ",")}}
	endpoint := fmt.Sprintf("%s/v1/collections/%s/bulkmetadata?%s",
		c.apiURL, url.PathEscape(account.CollectionToken), query.Encode())

	var payload bulkResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return catalog.Batch{}, fmt.Errorf("bulk metadata: %w", err)
	}
	batch := catalog.Batch{Unkeyed: make([]catalog.Record, 0, len(payload.Metadata))}
	for _, meta := range payload.Metadata {
		batch.Unkeyed = append(batch.Unkeyed, meta.Record())
	}
	return batch, nil
}
