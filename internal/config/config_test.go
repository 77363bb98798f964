package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"fontana/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("GOODREADS_API_KEY", "gr-key")
	t.Setenv("OMDB_API_KEY", "omdb-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "fontana")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "fontana.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.GoodReads.APIKey != "gr-key" {
		t.Fatalf("expected GoodReads key from env, got %q", cfg.GoodReads.APIKey)
	}
	if cfg.OMDb.APIKey != "omdb-key" {
		t.Fatalf("expected OMDb key from env, got %q", cfg.OMDb.APIKey)
	}
	if cfg.FailureDebounce() != 3*time.Minute {
		t.Fatalf("unexpected failure debounce: %v", cfg.FailureDebounce())
	}
	if cfg.Reconcile.ChunkSize != 10 || cfg.Reconcile.DeletedBatchSize != 15 {
		t.Fatalf("unexpected reconcile defaults: %+v", cfg.Reconcile)
	}
	if len(cfg.Alerts.ManagerPositions) != 4 {
		t.Fatalf("expected default manager positions, got %v", cfg.Alerts.ManagerPositions)
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/fontana-data",
		},
		"evergreen": map[string]any{
			"base_url": "https://catalog.example/opac/extras/",
		},
		"overdrive": map[string]any{
			"libraries": map[string]any{
				" NC-Digital ": " 1234 ",
			},
		},
		"alerts": map[string]any{
			"manager_positions": []string{" Director ", "Director", ""},
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  " DEBUG ",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "fontana-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Evergreen.BaseURL != "https://catalog.example/opac/extras" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Evergreen.BaseURL)
	}
	if id, ok := cfg.OverdriveLibrary("nc-digital"); !ok || id != "1234" {
		t.Fatalf("expected normalized library mapping, got %q ok=%v", id, ok)
	}
	if got := cfg.Alerts.ManagerPositions; len(got) != 1 || got[0] != "Director" {
		t.Fatalf("expected deduplicated positions, got %v", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "negative debounce",
			mutate:  func(c *config.Config) { c.Reconcile.FailureDebounceMinutes = -1 },
			wantErr: "failure_debounce_minutes",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *config.Config) { c.Reconcile.FailedBatchSize = 0 },
			wantErr: "reconcile.failed_batch_size must be positive",
		},
		{
			name:    "bad from address",
			mutate:  func(c *config.Config) { c.Alerts.From = "not an address" },
			wantErr: "alerts.from",
		},
		{
			name:    "edit url without placeholder",
			mutate:  func(c *config.Config) { c.Alerts.EditURL = "https://example.test/edit" },
			wantErr: "alerts.edit_url",
		},
		{
			name: "metrics without bind",
			mutate: func(c *config.Config) {
				c.Metrics.Enabled = true
				c.Metrics.Bind = " "
			},
			wantErr: "metrics.bind",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	target := filepath.Join(tempHome, "nested", "config.toml")

	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Evergreen.OrgUnit != "FONTANA" {
		t.Fatalf("unexpected org unit: %q", cfg.Evergreen.OrgUnit)
	}
}
