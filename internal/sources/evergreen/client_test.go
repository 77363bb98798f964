package evergreen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fontana/internal/catalog"
	"fontana/internal/config"
	"fontana/internal/fetch"
	"fontana/internal/sources/evergreen"
)

const singleRecord = `<?xml version="1.0" encoding="UTF-8"?>
<holdings xmlns="http://open-ils.org/spec/holdings/v1" id="tag:open-ils.org:U2@bre/4412">
  <counts>
    <count count="12" transcendant="0" org_unit="1" depth="0" unshadow="12" type="public"/>
    <count count="2" transcendant="0" org_unit="281" depth="1" unshadow="2" type="public"/>
  </counts>
  <volumes>
    <volume id="v1" label="FIC SMI">
      <copies>
        <copy barcode="3100001" copy_id="91" deleted="f">
          <status ident="0">Available</status>
          <location ident="533">Adult Fiction</location>
          <circ_lib shortname="FON-BC" name="Bryson City"/>
        </copy>
        <copy barcode="3100002" copy_id="92" deleted="f">
          <status ident="3">Lost</status>
          <location ident="533">Adult Fiction</location>
          <circ_lib shortname="FON-SY" name="Sylva"/>
        </copy>
      </copies>
    </volume>
    <volume id="v2" label="FIC SMI c.2">
      <copies>
        <copy barcode="3100003" copy_id="93" deleted="t">
          <status ident="1">Checked out</status>
          <location ident="540">New Books</location>
          <circ_lib shortname="FON-RB" name="Robbinsville"/>
        </copy>
      </copies>
    </volume>
  </volumes>
</holdings>`

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<hold:holdings_feed xmlns:hold="http://open-ils.org/spec/holdings/v1">
  <hold:holdings id="tag:open-ils.org:U2@bre/10">
    <hold:counts><hold:count count="0" depth="0"/><hold:count count="0" depth="1"/></hold:counts>
  </hold:holdings>
  <hold:holdings id="tag:open-ils.org:U2@bre/11">
    <hold:counts><hold:count count="4" depth="0"/><hold:count count="0" depth="1"/></hold:counts>
  </hold:holdings>
  <hold:holdings id="tag:open-ils.org:U2@bre/12">
    <hold:counts><hold:count count="4" depth="0"/><hold:count count="1" depth="1"/></hold:counts>
    <hold:volumes><hold:volume><hold:copies>
      <hold:copy barcode="b12" copy_id="7"><hold:status ident="7"/><hold:location ident="12"/><hold:circ_lib shortname="FON-BC"/></hold:copy>
    </hold:copies></hold:volume></hold:volumes>
  </hold:holdings>
</hold:holdings_feed>`

func newClient(t *testing.T, handler http.HandlerFunc) *evergreen.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Evergreen.BaseURL = server.URL
	return evergreen.New(cfg.Evergreen, fetch.New("evergreen"))
}

func TestRecordURLMatchesUnAPIShape(t *testing.T) {
	cfg := config.Default()
	client := evergreen.New(cfg.Evergreen, fetch.New("evergreen"))
	want := "http://nccardinal.org/opac/extras/unapi?format=holdings_xml;id=tag::U2@bre/4412{holdings_xml,acn,acp,mra}/FONTANA"
	if got := client.RecordURL("4412"); got != want {
		t.Fatalf("RecordURL = %q, want %q", got, want)
	}
	wantBulk := "http://nccardinal.org/opac/extras/unapi?format=holdings_xml;id=tag::U2@biblio_record_entry_feed/1,2,3{holdings_xml,acn,acp,mra}/FONTANA"
	if got := client.BulkURL([]string{"1", " 2", "3", ""}); got != wantBulk {
		t.Fatalf("BulkURL = %q, want %q", got, wantBulk)
	}
	if got := client.SupercatURL("marcxml", "", "4412"); got != "http://nccardinal.org/opac/extras/supercat/retrieve/marcxml/record/4412" {
		t.Fatalf("unexpected supercat url %q", got)
	}
}

func TestLookupParsesCountsAndCopies(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "U2@bre/4412") {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(singleRecord))
	})

	rec, err := client.Lookup(context.Background(), "4412")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if rec.ConsortiumCount != 12 || rec.LocalCount != 2 || rec.RecordID != "4412" {
		t.Fatalf("unexpected counts: %+v", rec)
	}
	if len(rec.Holdings) != 3 {
		t.Fatalf("expected copies from both volumes, got %d", len(rec.Holdings))
	}
	first := rec.Holdings[0]
	if first.Library != "FON-BC" || first.Shelf != "533" || first.Barcode != "3100001" || first.CopyID != "91" || first.Status != 0 || first.Deleted {
		t.Fatalf("unexpected first copy: %+v", first)
	}
	if !rec.Holdings[2].Deleted {
		t.Fatal("expected deleted flag on third copy")
	}

	snap := catalog.Normalize(rec)
	if snap.Verdict != catalog.VerdictKeep || len(snap.Available) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestLookupFailureReturnsTransportError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := client.Lookup(context.Background(), "1")
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) || fetchErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if fetchErr.ErrorKind() != "transport" {
		t.Fatalf("unexpected kind %q", fetchErr.ErrorKind())
	}
}

func TestLookupRejectsDocumentWithoutCounts(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<holdings/>`))
	})
	if _, err := client.Lookup(context.Background(), "1"); !errors.Is(err, evergreen.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestBulkLookupCombinesByPosition(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "biblio_record_entry_feed/10,11,12") {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(feed))
	})

	batch, err := client.BulkLookup(context.Background(), []string{"10", "11", "12"})
	if err != nil {
		t.Fatalf("BulkLookup returned error: %v", err)
	}
	want := map[string]catalog.Verdict{
		"10": catalog.VerdictDelete,
		"11": catalog.VerdictNone,
		"12": catalog.VerdictKeep,
	}
	for key, verdict := range want {
		rec, ok := batch.Find(key)
		if !ok {
			t.Fatalf("missing record %s", key)
		}
		if got := catalog.Normalize(rec).Verdict; got != verdict {
			t.Fatalf("record %s verdict = %v, want %v", key, got, verdict)
		}
	}
}

func TestBulkLookupFallsBackToDocumentIDs(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feed))
	})

	batch, err := client.BulkLookup(context.Background(), []string{"10", "11", "12", "13"})
	if err != nil {
		t.Fatalf("BulkLookup returned error: %v", err)
	}
	if len(batch.Keyed) != 0 || len(batch.Unkeyed) != 3 {
		t.Fatalf("expected unkeyed results on count mismatch, got %+v", batch)
	}
	if _, ok := batch.Find("12"); !ok {
		t.Fatal("expected id-field fallback to find record 12")
	}
	if _, ok := batch.Find("13"); ok {
		t.Fatal("record 13 was not returned")
	}
}
