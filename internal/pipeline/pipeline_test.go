package pipeline_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"fontana/internal/batch"
	"fontana/internal/config"
	"fontana/internal/pipeline"
	"fontana/internal/reconcile"
	"fontana/internal/store"
	"fontana/internal/testsupport"
)

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Reconcile.ChunkSize = 5
	cfg.Reconcile.HoldingsMaxAgeDays = 2
	cfg.Schedule.FailedIntervalSeconds = 90

	got := pipeline.SettingsFromConfig(&cfg)
	if got.ChunkSize != 5 || got.HoldingsMaxAge != 48*time.Hour || got.FailedInterval != 90*time.Second {
		t.Fatalf("settings = %+v", got)
	}
}

func TestBuildWiresRequestMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/unapi") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<holdings xmlns="http://open-ils.org/spec/holdings/v1"><counts><count count="0" depth="0"/><count count="0" depth="1"/></counts></holdings>`))
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithServer(server.URL), testsupport.WithoutMetadataKeys())
	st := testsupport.MustOpenStore(t, cfg)
	p, err := pipeline.Build(cfg, st, nil, pipeline.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if p.Reconciler == nil || p.Orchestrator == nil || p.Alerts == nil || p.Terms == nil {
		t.Fatalf("incomplete pipeline: %+v", p)
	}

	item := testsupport.NewItem(t, st, store.Item{Title: "Gone", Collection: store.CollectionEvergreen, RecordID: "4412"})
	report, err := p.Orchestrator.CheckHoldings(context.Background(), []int64{item.ID})
	if err != nil {
		t.Fatalf("CheckHoldings: %v", err)
	}
	if report.Kind != batch.KindCheckHoldings || report.Checked != 1 {
		t.Fatalf("report = %+v", report)
	}

	n, err := testutil.GatherAndCount(p.Metrics.Registry(), "fontana_http_requests_total")
	if err != nil || n == 0 {
		t.Fatalf("expected recorded requests, got %d, %v", n, err)
	}
}

func TestFailedImportQueuesFailedSweep(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithServer(server.URL), testsupport.WithoutMetadataKeys())
	cfg.Schedule.FailedIntervalSeconds = 600
	st := testsupport.MustOpenStore(t, cfg)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return now })
	p, err := pipeline.Build(cfg, st, nil, pipeline.Options{Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	res, err := p.Reconciler.Import(ctx, reconcile.Document{
		Collection: store.CollectionEvergreen,
		RecordID:   "4412",
		Title:      reconcile.TitleFields{Title: "Unlucky"},
	}, nil)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Outcome != reconcile.Failed {
		t.Fatalf("outcome = %v", res.Outcome)
	}

	timer, err := st.GetTimer(ctx, batch.TimerFailed)
	if err != nil || timer == nil {
		t.Fatalf("GetTimer = %v, %v; a failed import must queue the failed sweep", timer, err)
	}
	if want := now.Add(10 * time.Minute); !timer.NextRun.Equal(want) {
		t.Fatalf("next run = %v, want %v", timer.NextRun, want)
	}

	now = now.Add(11 * time.Minute)
	due, err := st.DueTimers(ctx)
	if err != nil {
		t.Fatalf("DueTimers: %v", err)
	}
	if len(due) != 1 || due[0].Name != batch.TimerFailed {
		t.Fatalf("due = %+v", due)
	}
}

func TestBuildRequiresStore(t *testing.T) {
	cfg := config.Default()
	if _, err := pipeline.Build(&cfg, nil, nil, pipeline.Options{}); err == nil {
		t.Fatal("expected error without a store")
	}
}
