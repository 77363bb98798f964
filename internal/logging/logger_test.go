package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fontana/internal/config"
	"fontana/internal/logging"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Debug("debug message")
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "fontana.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "reconcile").Info("outcome recorded", logging.String("outcome", "delete"), logging.String("title", "Two words"))

	content := readLog(t, logPath)
	if !strings.Contains(content, " INFO reconcile: outcome recorded") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "outcome=delete") || !strings.Contains(content, `title="Two words"`) {
		t.Fatalf("expected key=value fields, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no color for file output, got %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information at info level, got %q", content)
	}
}

func TestJSONLoggerRenamesCoreKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "warn",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("suppressed")
	logging.WarnWithContext(logger, "lookup failed", "evergreen_lookup_failed")

	content := readLog(t, logPath)
	if strings.Contains(content, "suppressed") {
		t.Fatalf("expected info line filtered, got %q", content)
	}
	for _, want := range []string{`"level":"warn"`, `"msg":"lookup failed"`, `"ts":`, `"event_type":"evergreen_lookup_failed"`, `"error_hint":`, `"impact":`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

func TestWithContextAddsRunAndItemFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "run-1")
	ctx = logging.WithCatalog(ctx, "overdrive-nc")
	ctx = logging.WithItemID(ctx, 42)
	logging.WithContext(ctx, logger).Info("processing")

	content := readLog(t, logPath)
	for _, want := range []string{"run_id=run-1", "catalog=overdrive-nc", "item_id=42"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", OutputPaths: []string{filepath.Join(t.TempDir(), "x.log")}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJSONLoggerLeadsWithItemFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "lead.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "run-7")
	ctx = logging.WithItemID(ctx, 42)
	logging.NewComponentLogger(logger, "reconcile").InfoContext(ctx, "item reconciled",
		logging.String("status", "publish"),
		logging.String(logging.FieldOutcome, "check"),
		logging.String(logging.FieldRecordID, "4412"),
		logging.Duration("took", 1500*time.Millisecond),
	)

	content := readLog(t, logPath)
	want := `"component":"reconcile","run_id":"run-7","item_id":42,"record_id":"4412","outcome":"check","status":"publish","took":"1.5s"`
	if !strings.Contains(content, want) {
		t.Fatalf("expected %s in %q", want, content)
	}
}

func TestJSONLoggerPrefersExplicitItemID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "explicit.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithItemID(context.Background(), 42)
	logger.InfoContext(ctx, "term keys unreadable", logging.Int64(logging.FieldItemID, 7))
	logging.WithContext(ctx, logger).InfoContext(ctx, "bound once")

	content := readLog(t, logPath)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", content)
	}
	if !strings.Contains(lines[0], `"item_id":7`) || strings.Contains(lines[0], `"item_id":42`) {
		t.Fatalf("explicit item id should win, got %q", lines[0])
	}
	if n := strings.Count(lines[1], `"item_id"`); n != 1 {
		t.Fatalf("bound item id repeated %d times in %q", n, lines[1])
	}
}

func TestConsoleLoggerReadsContextFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-ctx.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithCatalog(context.Background(), "overdrive-nc")
	ctx = logging.WithItemID(ctx, 9)
	logging.NewComponentLogger(logger, "batch").InfoContext(ctx, "chunk checked", logging.Int("checked", 4))

	content := readLog(t, logPath)
	if !strings.Contains(content, " INFO batch: chunk checked catalog=overdrive-nc item_id=9 checked=4") {
		t.Fatalf("expected lead fields before the rest, got %q", content)
	}
}
