package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"fontana/internal/store"
	"fontana/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.DatabasePath())

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestSettingsSetAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"settings", "set", "evergreen_library_id", "12"}, env.configPath)
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	requireContains(t, out, "Set evergreen_library_id")

	out, _, err = runCLI(t, []string{"settings", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("settings list: %v", err)
	}
	requireContains(t, out, "evergreen_library_id")
	requireContains(t, out, "12")

	out, _, err = runCLI(t, []string{"--json", "settings", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("settings list --json: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["evergreen_library_id"] != "12" {
		t.Fatalf("settings = %v", got)
	}
}

func TestItemsShow(t *testing.T) {
	env := setupCLITestEnv(t)
	st := testsupport.MustOpenStore(t, env.cfg)
	genre := testsupport.MustTerm(t, st, store.Term{Taxonomy: store.TaxGenres, Name: "Mystery", Slug: "mystery"})
	item := testsupport.NewItem(t, st, store.Item{
		Title:    "The Hollow Hills",
		RecordID: "4411",
		Status:   store.StatusPublish,
		Terms:    map[string][]int64{store.TaxGenres: {genre.ID}},
	})

	out, _, err := runCLI(t, []string{"items", "show", strconv.FormatInt(item.ID, 10)}, env.configPath)
	if err != nil {
		t.Fatalf("items show: %v", err)
	}
	requireContains(t, out, "The Hollow Hills")
	requireContains(t, out, "4411")
	requireContains(t, out, "Mystery")

	if _, _, err := runCLI(t, []string{"items", "show", "999"}, env.configPath); err == nil {
		t.Fatal("expected missing item to fail")
	}
}

func TestAlertsProcessSkipsMissingAlert(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"alerts", "process", "77"}, env.configPath)
	if err != nil {
		t.Fatalf("alerts process: %v", err)
	}
	requireContains(t, out, "Alert 77 skipped")
}

func TestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestRecheckRefusesWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := newCommandContext(&env.configPath, new(bool))
	err := ctx.withRunLock(func() error {
		_, _, err := runCLI(t, []string{"recheck", "holdings"}, env.configPath)
		return err
	})
	if err == nil {
		t.Fatal("expected nested run to report the lock as busy")
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3,4", " 9 "})
	if err != nil {
		t.Fatalf("parseIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 4 || ids[2] != 9 {
		t.Fatalf("ids = %v", ids)
	}
	for _, bad := range [][]string{{"0"}, {"x"}, {","}, nil} {
		if _, err := parseIDs(bad); err == nil {
			t.Fatalf("parseIDs(%q) should fail", bad)
		}
	}
}

func TestLogsFiltersByLevel(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.LogDir, "fontanad.log"),
		"2026-06-01T08:00:00Z INFO daemon: sweep started\n"+
			"2026-06-01T08:00:01Z WARN daemon: sweep deferred\n")

	out, _, err := runCLI(t, []string{"logs", "--level", "warn"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "sweep deferred")
	if strings.Contains(out, "sweep started") {
		t.Fatalf("info line should be filtered: %q", out)
	}
}

func TestRunsListsRecordedBatches(t *testing.T) {
	env := setupCLITestEnv(t)
	st := testsupport.MustOpenStore(t, env.cfg)
	started := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := st.RecordBatchRun(context.Background(), store.BatchRun{
		ID: "run-1", Kind: "failed", Catalog: "evergreen",
		StartedAt: started, FinishedAt: started.Add(2 * time.Minute), Checked: 7,
	}); err != nil {
		t.Fatalf("RecordBatchRun: %v", err)
	}

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "evergreen")
	requireContains(t, out, "2m0s")
}
