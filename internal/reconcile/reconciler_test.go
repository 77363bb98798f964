package reconcile_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"fontana/internal/catalog"
	"fontana/internal/enrich"
	"fontana/internal/fetch"
	"fontana/internal/metadata/goodreads"
	"fontana/internal/metadata/omdb"
	"fontana/internal/metadata/openlibrary"
	"fontana/internal/reconcile"
	"fontana/internal/sources/evergreen"
	"fontana/internal/sources/overdrive"
	"fontana/internal/store"
	"fontana/internal/termkeys"
	"fontana/internal/testsupport"
)

const holdingsXML = `<?xml version="1.0" encoding="UTF-8"?>
<holdings xmlns="http://open-ils.org/spec/holdings/v1" id="tag:open-ils.org:U2@bre/4412">
  <counts>
    <count count="12" depth="0"/>
    <count count="2" depth="1"/>
  </counts>
  <volumes>
    <volume id="v1">
      <copies>
        <copy barcode="3100001" copy_id="91" deleted="f">
          <status ident="0">Available</status>
          <location ident="533">Adult Fiction</location>
          <circ_lib shortname="FON-BC"/>
        </copy>
        <copy barcode="3100002" copy_id="92" deleted="f">
          <status ident="3">Lost</status>
          <location ident="533">Adult Fiction</location>
          <circ_lib shortname="FON-SY"/>
        </copy>
      </copies>
    </volume>
  </volumes>
</holdings>`

type fixture struct {
	t          *testing.T
	st         *store.Store
	reconciler *reconcile.Reconciler

	mu       sync.Mutex
	now      time.Time
	holdings string
	status   int
	hits     int
	failed   []int64

	fiction, mystery, adult, bryson, sylva, shelf533 store.Term
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), holdings: holdingsXML, status: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/unapi", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.hits++
		status, body := f.status, f.holdings
		f.mu.Unlock()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/libraries/1234", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":1234,"name":"NC Digital Library","collectionToken":"coll1"}`))
	})
	mux.HandleFunc("/v1/collections/coll1/products/ABC/metadata", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"ABC","title":"Gone","isOwnedByCollections":false}`))
	})
	mux.HandleFunc("/v1/collections/coll1/products/OWN/metadata", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"OWN","title":"Kept","isOwnedByCollections":true}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t,
		testsupport.WithServer(server.URL),
		testsupport.WithOverdriveLibrary("nc-digital-library", "1234"),
		testsupport.WithoutMetadataKeys(),
	)
	f.st = testsupport.MustOpenStore(t, cfg)

	f.fiction = testsupport.MustTerm(t, f.st, store.Term{Taxonomy: store.TaxGenres, Name: "fiction"})
	testsupport.MustTerm(t, f.st, store.Term{Taxonomy: store.TaxGenres, Name: "nonfiction"})
	f.mystery = testsupport.MustTerm(t, f.st, store.Term{Taxonomy: store.TaxGenres, Name: "mystery", ParentID: f.fiction.ID})
	f.adult = testsupport.MustTerm(t, f.st, store.Term{Taxonomy: store.TaxAudience, Name: "adult"})
	f.bryson = testsupport.MustTerm(t, f.st, store.Term{Taxonomy: store.TaxLocation, Name: "Bryson City", Meta: map[string]string{"shortcode": "FON-BC"}})
	f.sylva = testsupport.MustTerm(t, f.st, store.Term{Taxonomy: store.TaxLocation, Name: "Sylva", Meta: map[string]string{"shortcode": "FON-SY"}})
	f.shelf533 = testsupport.MustTerm(t, f.st, store.Term{
		Taxonomy: store.TaxShelf,
		Name:     "Adult Fiction",
		Meta: map[string]string{
			"shelf_location_id": "533",
			"related_genres":    "1," + strconv.FormatInt(f.mystery.ID, 10),
		},
	})

	getter := func(service string) *fetch.Client { return fetch.NewFromConfig(service, cfg) }
	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	f.reconciler = reconcile.NewReconciler(reconcile.Deps{
		Store:     f.st,
		Terms:     termkeys.NewCache(f.st),
		Evergreen: evergreen.New(cfg.Evergreen, getter("evergreen")),
		Overdrive: overdrive.New(cfg.Overdrive, getter("overdrive")),
		Enricher: enrich.New(
			omdb.New(cfg.OMDb, getter("omdb")),
			openlibrary.New(cfg.OpenLibrary, getter("openlibrary")),
			goodreads.New(cfg.GoodReads, getter("goodreads")),
			nil,
		),
		Now: clock,
		OnFailed: func(_ context.Context, itemID int64) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.failed = append(f.failed, itemID)
			return nil
		},
	})
	return f
}

func (f *fixture) setHoldings(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.holdings = status, body
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits
}

func (f *fixture) failedCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.failed...)
}

func (f *fixture) item(id int64) *store.Item {
	f.t.Helper()
	item, err := f.st.GetItem(context.Background(), id)
	if err != nil || item == nil {
		f.t.Fatalf("GetItem(%d) = %v, %v", id, item, err)
	}
	return item
}

func evergreenDoc(recordID string) reconcile.Document {
	return reconcile.Document{
		Collection: store.CollectionEvergreen,
		RecordID:   recordID,
		Title:      reconcile.TitleFields{NonSort: "The", Title: "Big Sleep"},
		ItemTypes:  []string{"text"},
		CoverURL:   "http://covers/big-sleep.jpg",
		ChangeDate: "20260110093000.0",
		Evergreen:  &reconcile.EvergreenKeywords{MarcGenre: "Mystery", MarcAudience: "Adult"},
	}
}

func TestImportPublishesCompleteItem(t *testing.T) {
	f := newFixture(t)
	res, err := f.reconciler.Import(context.Background(), evergreenDoc("4412"), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Outcome != reconcile.New || !res.Classified {
		t.Fatalf("outcome = %v classified=%v", res.Outcome, res.Classified)
	}

	item := f.item(res.Item.ID)
	if item.Status != store.StatusPublish || item.Verify != "" {
		t.Fatalf("status = %s verify = %q", item.Status, item.Verify)
	}
	if item.Title != "The Big Sleep" {
		t.Fatalf("title = %q", item.Title)
	}
	wantRows := []store.HoldingRow{{Barcode: "3100001", Shelf: f.shelf533.Slug, Location: f.bryson.Slug}}
	if !reflect.DeepEqual(item.Holdings, wantRows) {
		t.Fatalf("holdings = %+v, want %+v", item.Holdings, wantRows)
	}
	if got := item.Terms[store.TaxLocation]; !reflect.DeepEqual(got, []int64{f.bryson.ID}) {
		t.Fatalf("locations = %v; lost copies must not contribute", got)
	}
	if got := item.Terms[store.TaxShelf]; !reflect.DeepEqual(got, []int64{f.shelf533.ID}) {
		t.Fatalf("shelves = %v", got)
	}
	if got := item.Terms[store.TaxGenres]; !reflect.DeepEqual(got, []int64{f.mystery.ID}) {
		t.Fatalf("genres = %v, want only mystery (shelf id 1 is ignored)", got)
	}
	if got := item.Terms[store.TaxAudience]; !reflect.DeepEqual(got, []int64{f.adult.ID}) {
		t.Fatalf("audience = %v", got)
	}
	if item.RecordChangeDate != "2026-01-10 09:30:00" {
		t.Fatalf("record change date = %q", item.RecordChangeDate)
	}
}

func TestImportWithoutAudienceGoesPending(t *testing.T) {
	f := newFixture(t)
	doc := evergreenDoc("77")
	doc.Evergreen = &reconcile.EvergreenKeywords{MarcGenre: "Mystery"}
	doc.CoverURL = ""

	res, err := f.reconciler.Import(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	item := f.item(res.Item.ID)
	if item.Status != store.StatusPending {
		t.Fatalf("status = %s", item.Status)
	}
	if item.Verify != "cover;check audience" {
		t.Fatalf("verify = %q", item.Verify)
	}
	if got := item.Terms[store.TaxAudience]; !reflect.DeepEqual(got, []int64{f.adult.ID}) {
		t.Fatalf("default audience = %v", got)
	}
}

func TestConsortiumZeroTrashesOnce(t *testing.T) {
	f := newFixture(t)
	item := testsupport.NewItem(t, f.st, store.Item{Title: "Old Book", RecordID: "9", Status: store.StatusPublish})
	gone := catalog.EvergreenRecord{RecordID: "9", ConsortiumCount: 0}

	for i := 0; i < 2; i++ {
		res, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: item.ID, Record: gone, Mode: reconcile.ModeRecheck})
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if res.Outcome != reconcile.Delete || res.Classified {
			t.Fatalf("outcome = %v classified=%v", res.Outcome, res.Classified)
		}
	}
	got := f.item(item.ID)
	if got.Status != store.StatusTrash || got.Title != "NO HOLDINGS - Old Book" {
		t.Fatalf("status=%s title=%q", got.Status, got.Title)
	}
	if f.lookups() != 0 {
		t.Fatal("a supplied record must not be refetched")
	}
}

func TestLocalZeroDraftsAndClearsHoldings(t *testing.T) {
	f := newFixture(t)
	item := testsupport.NewItem(t, f.st, store.Item{
		Title:    "Far Away",
		RecordID: "10",
		Status:   store.StatusPublish,
		Holdings: []store.HoldingRow{{Barcode: "x", Location: "bryson-city"}},
	})
	res, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{
		ItemID: item.ID,
		Record: catalog.EvergreenRecord{RecordID: "10", ConsortiumCount: 4, LocalCount: 0},
		Mode:   reconcile.ModeRecheck,
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := f.item(item.ID)
	if res.Outcome != reconcile.None || got.Status != store.StatusDraft || len(got.Holdings) != 0 {
		t.Fatalf("outcome=%v status=%s holdings=%v", res.Outcome, got.Status, got.Holdings)
	}
	if !strings.HasPrefix(got.Title, reconcile.TitlePrefix) {
		t.Fatalf("title = %q", got.Title)
	}
}

func TestUnavailableCopiesYieldNone(t *testing.T) {
	f := newFixture(t)
	item := testsupport.NewItem(t, f.st, store.Item{Title: "Missing", RecordID: "11"})
	rec := catalog.EvergreenRecord{
		RecordID:        "11",
		ConsortiumCount: 3,
		LocalCount:      2,
		Holdings: []catalog.Holding{
			{Library: "FON-SY", Shelf: "533", Barcode: "a", Status: 3},
			{Library: "FON-BC", Shelf: "533", Barcode: "b", Status: 0, Deleted: true},
			{Library: "FON-BC", Shelf: "533", Barcode: "c", Status: 14},
		},
	}
	res, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: item.ID, Record: rec, Mode: reconcile.ModeRecheck})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Outcome != reconcile.None {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	got := f.item(item.ID)
	if len(got.Terms[store.TaxLocation]) != 0 || len(got.Terms[store.TaxShelf]) != 0 {
		t.Fatalf("unavailable copies contributed terms: %v", got.Terms)
	}
}

func TestFailureCountIsDebounced(t *testing.T) {
	f := newFixture(t)
	item := testsupport.NewItem(t, f.st, store.Item{Title: "Flaky", RecordID: "4412"})
	f.setHoldings(http.StatusInternalServerError, "")
	req := reconcile.Request{ItemID: item.ID, Mode: reconcile.ModeRecheck}

	res, err := f.reconciler.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Outcome != reconcile.Failed {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if kind := store.ErrorKind(res.Cause); kind != reconcile.KindTransport {
		t.Fatalf("cause kind = %q", kind)
	}

	f.advance(time.Minute)
	_, _ = f.reconciler.Reconcile(context.Background(), req)
	if got := f.item(item.ID).CheckFailCount; got != 1 {
		t.Fatalf("fail count within debounce = %d, want 1", got)
	}

	f.advance(4 * time.Minute)
	_, _ = f.reconciler.Reconcile(context.Background(), req)
	if got := f.item(item.ID).CheckFailCount; got != 2 {
		t.Fatalf("fail count after debounce = %d, want 2", got)
	}

	f.setHoldings(http.StatusOK, holdingsXML)
	res, err = f.reconciler.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := f.item(item.ID)
	if res.Outcome != reconcile.Check || got.CheckFailCount != 0 || got.CheckFailAt != nil {
		t.Fatalf("outcome=%v count=%d at=%v", res.Outcome, got.CheckFailCount, got.CheckFailAt)
	}
	if got.ActiveDate != "2026-03-02" {
		t.Fatalf("active date = %q", got.ActiveDate)
	}
}

func TestPriorFailureSkipsLookup(t *testing.T) {
	f := newFixture(t)
	item := testsupport.NewItem(t, f.st, store.Item{Title: "Lost in bulk", RecordID: "5"})
	failed := reconcile.Failed
	res, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: item.ID, Mode: reconcile.ModeRecheck, Prior: &failed})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Outcome != reconcile.Failed || f.lookups() != 0 {
		t.Fatalf("outcome=%v lookups=%d", res.Outcome, f.lookups())
	}
	if got := f.item(item.ID).CheckFailCount; got != 1 {
		t.Fatalf("fail count = %d", got)
	}
}

func TestUpdateWithSameChangeDateIsUnchanged(t *testing.T) {
	f := newFixture(t)
	res, err := f.reconciler.Import(context.Background(), evergreenDoc("4412"), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	before := f.lookups()

	f.advance(24 * time.Hour)
	again, err := f.reconciler.Import(context.Background(), evergreenDoc("4412"), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if again.Outcome != reconcile.Unchanged || again.Item.ID != res.Item.ID {
		t.Fatalf("outcome = %v id=%d", again.Outcome, again.Item.ID)
	}
	if f.lookups() != before {
		t.Fatal("unchanged records must not be refetched")
	}
	if got := f.item(res.Item.ID).ActiveDate; got != "2026-03-03" {
		t.Fatalf("active date = %q", got)
	}

	changed := evergreenDoc("4412")
	changed.ChangeDate = "260301"
	res, err = f.reconciler.Import(context.Background(), changed, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Outcome != reconcile.Check || f.item(res.Item.ID).RecordChangeDate != "2026-03-01" {
		t.Fatalf("outcome = %v change date = %q", res.Outcome, f.item(res.Item.ID).RecordChangeDate)
	}
}

func TestUpdateKeepsStoredDocumentFields(t *testing.T) {
	f := newFixture(t)
	res, err := f.reconciler.Import(context.Background(), evergreenDoc("4412"), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	before := f.item(res.Item.ID)

	edited := evergreenDoc("4412")
	edited.Title = reconcile.TitleFields{Title: "Farewell, My Lovely"}
	edited.Evergreen = &reconcile.EvergreenKeywords{MarcGenre: "Romance", Topic: "Los Angeles"}
	edited.ChangeDate = "20260301000000.0"
	if _, err := f.reconciler.Import(context.Background(), edited, nil); err != nil {
		t.Fatalf("Import: %v", err)
	}

	after := f.item(res.Item.ID)
	if after.Title != before.Title || after.TermKeysJSON != before.TermKeysJSON {
		t.Fatalf("title=%q keys=%s, want %q %s", after.Title, after.TermKeysJSON, before.Title, before.TermKeysJSON)
	}
	if after.RecordChangeDate != "2026-03-01 00:00:00" {
		t.Fatalf("change date = %q", after.RecordChangeDate)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	withoutAudience := evergreenDoc("78")
	withoutAudience.Evergreen = &reconcile.EvergreenKeywords{MarcGenre: "Mystery"}

	cases := []struct {
		name       string
		doc        reconcile.Document
		wantStatus store.Status
		wantVerify string
	}{
		{name: "complete item stays published", doc: evergreenDoc("4412"), wantStatus: store.StatusPublish},
		{name: "defaulted audience stays pending", doc: withoutAudience, wantStatus: store.StatusPending, wantVerify: "check audience"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.reconciler.Import(context.Background(), tc.doc, nil)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			first := f.item(res.Item.ID)
			if first.Status != tc.wantStatus || first.Verify != tc.wantVerify {
				t.Fatalf("after import status=%s verify=%q", first.Status, first.Verify)
			}

			for i := 0; i < 2; i++ {
				if _, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: first.ID, Mode: reconcile.ModeRecheck}); err != nil {
					t.Fatalf("Reconcile: %v", err)
				}
			}
			last := f.item(first.ID)
			if last.Status != tc.wantStatus || last.Verify != tc.wantVerify {
				t.Fatalf("after recheck status=%s verify=%q, want %s %q", last.Status, last.Verify, tc.wantStatus, tc.wantVerify)
			}
			if last.Title != first.Title || !reflect.DeepEqual(last.Holdings, first.Holdings) {
				t.Fatalf("state drifted: %+v vs %+v", last, first)
			}
			for _, tax := range []string{store.TaxGenres, store.TaxAudience, store.TaxLocation, store.TaxShelf} {
				if !reflect.DeepEqual(last.Terms[tax], first.Terms[tax]) {
					t.Fatalf("%s drifted: %v vs %v", tax, last.Terms[tax], first.Terms[tax])
				}
			}
		})
	}
}

func TestReviewedAudienceStaysPublished(t *testing.T) {
	f := newFixture(t)
	doc := evergreenDoc("79")
	doc.Evergreen = &reconcile.EvergreenKeywords{MarcGenre: "Mystery"}
	res, err := f.reconciler.Import(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	reviewed := f.item(res.Item.ID)
	reviewed.Status = store.StatusPublish
	reviewed.Verify = ""
	if err := f.st.UpdateItem(context.Background(), reviewed); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	if _, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: reviewed.ID, Mode: reconcile.ModeRecheck}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := f.item(reviewed.ID); got.Status != store.StatusPublish || got.Verify != "" {
		t.Fatalf("status=%s verify=%q", got.Status, got.Verify)
	}
}

func TestFailedOutcomeRunsHook(t *testing.T) {
	f := newFixture(t)
	ok := testsupport.NewItem(t, f.st, store.Item{Title: "Fine", RecordID: "4412"})
	if _, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: ok.ID, Mode: reconcile.ModeRecheck}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if calls := f.failedCalls(); len(calls) != 0 {
		t.Fatalf("hook ran for a successful check: %v", calls)
	}

	f.setHoldings(http.StatusInternalServerError, "")
	res, err := f.reconciler.Import(context.Background(), evergreenDoc("5150"), nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Outcome != reconcile.Failed {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if calls := f.failedCalls(); !reflect.DeepEqual(calls, []int64{res.Item.ID}) {
		t.Fatalf("hook calls = %v, want [%d]", calls, res.Item.ID)
	}
}

func TestOverdriveNotOwnedIsTrashed(t *testing.T) {
	f := newFixture(t)
	doc := reconcile.Document{
		Collection: store.CollectionOverdrive,
		Library:    "NC-Digital-Library",
		RecordID:   "ABC",
		Title:      reconcile.TitleFields{Title: "Gone"},
		ItemTypes:  []string{"ebook"},
		Overdrive:  &reconcile.OverdriveKeywords{Keywords: []string{"Mystery"}},
	}
	res, err := f.reconciler.Import(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	got := f.item(res.Item.ID)
	if res.Outcome != reconcile.Delete || got.Status != store.StatusTrash || got.Title != "NO HOLDINGS - Gone" {
		t.Fatalf("outcome=%v status=%s title=%q", res.Outcome, got.Status, got.Title)
	}
	if res.Classified {
		t.Fatal("deleted items are not classified")
	}
}

func TestOverdriveOwnedRefreshesChangeDate(t *testing.T) {
	f := newFixture(t)
	item := testsupport.NewItem(t, f.st, store.Item{
		Title:      "Kept",
		Collection: store.CollectionOverdrive,
		Library:    "nc-digital-library",
		RecordID:   "OWN",
		CoverURL:   "http://c",
		Terms:      map[string][]int64{store.TaxGenres: {f.mystery.ID}, store.TaxAudience: {f.adult.ID}},
	})
	res, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: item.ID, Mode: reconcile.ModeRecheck})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	got := f.item(item.ID)
	if res.Outcome != reconcile.Check || res.Classified {
		t.Fatalf("outcome=%v classified=%v", res.Outcome, res.Classified)
	}
	if got.Status != store.StatusPublish || got.RecordChangeDate != "2026-03-02" {
		t.Fatalf("status=%s change date=%q", got.Status, got.RecordChangeDate)
	}
}

func TestUnknownItemIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler.Reconcile(context.Background(), reconcile.Request{ItemID: 999, Mode: reconcile.ModeRecheck})
	if !errors.Is(err, reconcile.ErrItemNotFound) || store.ErrorKind(err) != reconcile.KindNotFound {
		t.Fatalf("err = %v kind=%q", err, store.ErrorKind(err))
	}
}

func TestImportRejectsIncompleteDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler.Import(context.Background(), reconcile.Document{Collection: store.CollectionOverdrive, RecordID: "X"}, nil)
	if err == nil || !strings.Contains(err.Error(), "library is required") {
		t.Fatalf("err = %v", err)
	}
}
