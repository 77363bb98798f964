package omdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"fontana/internal/config"
	"fontana/internal/fetch"
	"fontana/internal/metadata/omdb"
)

func newClient(t *testing.T, handler http.HandlerFunc) *omdb.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return omdb.New(config.OMDb{APIKey: "key", BaseURL: server.URL}, fetch.New("omdb"))
}

func TestTitleLookupRetriesEarlierYears(t *testing.T) {
	var years []string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "key" || q.Get("type") != "movie" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		years = append(years, q.Get("y"))
		if q.Get("t") == "Frozen" && q.Get("y") == "2012" {
			_, _ = w.Write([]byte(`{"Title":"Frozen","Year":"2013","Poster":"https://img/frozen.jpg","imdbID":"tt2294629","imdbRating":"7.4","Genre":"Animation, Adventure","Rated":"PG","Response":"True"}`))
			return
		}
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})

	result := client.Lookup(context.Background(), omdb.Query{Type: omdb.QueryTitle, Kind: omdb.KindMovie, Year: 2014}, "Frozen")
	if result.Empty() {
		t.Fatal("expected a match")
	}
	if want := []string{"2014", "2013", "2012"}; len(years) != 3 || years[0] != want[0] || years[1] != want[1] || years[2] != want[2] {
		t.Fatalf("unexpected year sequence %v", years)
	}
	if got := result.Info("imdbID"); got != "tt2294629" {
		t.Fatalf("imdbID = %q", got)
	}
	if rating, ok := result.Rating(); !ok || rating != 3.7 {
		t.Fatalf("rating = %v %v", rating, ok)
	}
}

func TestLookupTriesEachTitle(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") == "Second" {
			_, _ = w.Write([]byte(`{"Title":"Second","Poster":"N/A","Response":"True"}`))
			return
		}
		_, _ = w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	})

	result := client.Lookup(context.Background(), omdb.Query{Type: omdb.QueryTitle}, "First", "", "Second")
	if result.Info("Title") != "Second" {
		t.Fatalf("expected second title to match, got %q", result.Info("Title"))
	}
	if result.Info("Poster") != "" {
		t.Fatal("expected N/A poster to be empty")
	}
}

func TestSearchReadsFirstHit(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("s") != "Friends" || r.URL.Query().Get("type") != "series" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"Search":[{"Title":"Friends","imdbID":"tt0108778"},{"Title":"Friends 2"}],"Response":"True"}`))
	})
	result := client.Lookup(context.Background(), omdb.Query{Type: omdb.QuerySearch, Kind: omdb.KindSeries}, "Friends")
	if got := result.Info("imdbID"); got != "tt0108778" {
		t.Fatalf("imdbID = %q", got)
	}
}

func TestFailuresDegradeToEmpty(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	result := client.Lookup(context.Background(), omdb.Query{Type: omdb.QueryIMDb}, "tt1")
	if !result.Empty() || result.Info("Title") != "" {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if _, ok := result.Rating(); ok {
		t.Fatal("expected no rating")
	}
}
