package overdrive_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"fontana/internal/catalog"
	"fontana/internal/config"
	"fontana/internal/fetch"
	"fontana/internal/sources/overdrive"
)

type fakeAPI struct {
	tokenCalls   atomic.Int32
	accountCalls atomic.Int32
	server       *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		api.tokenCalls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/libraries/1234", func(w http.ResponseWriter, r *http.Request) {
		api.accountCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":1234,"name":"NC Digital Library","collectionToken":"v1L1BYwAAAA2Q","links":{"products":{"href":"https://api.overdrive.com/v1/collections/v1L1BYwAAAA2Q/products"}}}`))
	})
	mux.HandleFunc("/v1/collections/v1L1BYwAAAA2Q/products/ABC/metadata", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ABC","title":"Example","isOwnedByCollections":false,"keywords":["Mystery"]}`))
	})
	mux.HandleFunc("/v1/collections/v1L1BYwAAAA2Q/bulkmetadata", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("reserveIds") != "AAA,BBB" {
			t.Errorf("unexpected reserveIds %q", r.URL.Query().Get("reserveIds"))
		}
		_, _ = w.Write([]byte(`{"metadata":[{"id":"bbb","isOwnedByCollections":true},{"id":"aaa","isOwnedByCollections":false}]}`))
	})
	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (api *fakeAPI) client() *overdrive.Client {
	cfg := config.Default()
	cfg.Overdrive.ClientKey = "key"
	cfg.Overdrive.ClientSecret = "secret"
	cfg.Overdrive.OAuthURL = api.server.URL + "/token"
	cfg.Overdrive.APIURL = api.server.URL
	cfg.Overdrive.Libraries = map[string]string{"nc-digital-library": "1234"}
	return overdrive.New(cfg.Overdrive, fetch.New("overdrive"))
}

func TestLookupReturnsOwnership(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client()

	meta, err := client.Lookup(context.Background(), "NC-Digital-Library", "ABC")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if meta.IsOwnedByCollections == nil || *meta.IsOwnedByCollections {
		t.Fatalf("expected not owned, got %+v", meta.IsOwnedByCollections)
	}
	if got := catalog.Normalize(meta.Record()).Verdict; got != catalog.VerdictDelete {
		t.Fatalf("verdict = %v, want delete", got)
	}
}

func TestTokenAndAccountAreCached(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client()
	for i := 0; i < 3; i++ {
		if _, err := client.Lookup(context.Background(), "nc-digital-library", "ABC"); err != nil {
			t.Fatalf("Lookup %d returned error: %v", i, err)
		}
	}
	if api.tokenCalls.Load() != 1 {
		t.Fatalf("expected one token request, got %d", api.tokenCalls.Load())
	}
	if api.accountCalls.Load() != 1 {
		t.Fatalf("expected one account request, got %d", api.accountCalls.Load())
	}
}

func TestBulkLookupReturnsUnkeyedRecords(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client()

	batch, err := client.BulkLookup(context.Background(), "nc-digital-library", []string{"AAA", " BBB "})
	if err != nil {
		t.Fatalf("BulkLookup returned error: %v", err)
	}
	if len(batch.Keyed) != 0 || len(batch.Unkeyed) != 2 {
		t.Fatalf("unexpected batch shape: %+v", batch)
	}
	rec, ok := batch.Find("AAA")
	if !ok {
		t.Fatal("expected id-field match for AAA")
	}
	if got := catalog.Normalize(rec).Verdict; got != catalog.VerdictDelete {
		t.Fatalf("AAA verdict = %v", got)
	}
	rec, ok = batch.Find("BBB")
	if !ok || catalog.Normalize(rec).Verdict != catalog.VerdictKeep {
		t.Fatalf("unexpected BBB record: %v %v", rec, ok)
	}
}

func TestUnknownLibraryAndMissingCredentials(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client()
	if _, err := client.Lookup(context.Background(), "elsewhere", "ABC"); !errors.Is(err, overdrive.ErrUnknownLibrary) {
		t.Fatalf("expected ErrUnknownLibrary, got %v", err)
	}

	cfg := config.Default()
	cfg.Overdrive.ClientKey = ""
	cfg.Overdrive.ClientSecret = ""
	cfg.Overdrive.Libraries = map[string]string{"lib": "1234"}
	bare := overdrive.New(cfg.Overdrive, fetch.New("overdrive"))
	if _, err := bare.Lookup(context.Background(), "lib", "ABC"); !errors.Is(err, overdrive.ErrCredentialsMissing) {
		t.Fatalf("expected ErrCredentialsMissing, got %v", err)
	}
}

func TestLookupFailureSurfacesFetchError(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client()
	_, err := client.Lookup(context.Background(), "nc-digital-library", "MISSING")
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) || fetchErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 fetch error, got %v", err)
	}
	if !strings.Contains(err.Error(), "MISSING") {
		t.Fatalf("expected reserve id in error, got %v", err)
	}
}
