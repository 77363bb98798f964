package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"fontana/internal/batch"
	"fontana/internal/fetch"
	"fontana/internal/metrics"
)

func TestRequestsAreCountedByClass(t *testing.T) {
	m := metrics.New(false)
	m.ObserveRequest("evergreen", 200, 40*time.Millisecond)
	m.ObserveRequest("evergreen", 204, 10*time.Millisecond)
	m.ObserveRequest("evergreen", 503, time.Second)
	m.ObserveRequest("overdrive", fetch.CodeTransport, 0)

	body := scrape(t, m)
	for _, want := range []string{
		`fontana_http_requests_total{code="2xx",service="evergreen"} 2`,
		`fontana_http_requests_total{code="5xx",service="evergreen"} 1`,
		`fontana_http_requests_total{code="transport",service="overdrive"} 1`,
		`fontana_http_request_duration_seconds_count{service="evergreen"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in scrape:\n%s", want, body)
		}
	}
}

func TestBatchRunsAndOutcomes(t *testing.T) {
	m := metrics.New(false)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.ObserveOutcome("failed", "check")
	m.ObserveOutcome("failed", "check")
	m.ObserveOutcome("failed", "failed")
	m.ObserveRun("failed", &batch.Report{StartedAt: start, FinishedAt: start.Add(3 * time.Second)})

	got, err := testutil.GatherAndCount(m.Registry(), "fontana_batch_items_total")
	if err != nil || got != 2 {
		t.Fatalf("outcome series = %d, %v; want 2", got, err)
	}
	body := scrape(t, m)
	for _, want := range []string{
		`fontana_batch_items_total{kind="failed",outcome="check"} 2`,
		`fontana_batch_runs_total{kind="failed"} 1`,
		`fontana_batch_last_run_timestamp_seconds{kind="failed"} 1.767225603e+09`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in scrape:\n%s", want, body)
		}
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	server := httptest.NewServer(m.Handler())
	defer server.Close()
	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	return string(data)
}
