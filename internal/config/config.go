package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Evergreen contains configuration for the union catalog unAPI endpoint.
type Evergreen struct {
	BaseURL  string `toml:"base_url"`
	OrgUnit  string `toml:"org_unit"`
	Format   string `toml:"format"`
	Includes string `toml:"includes"`
}

// Overdrive contains configuration for the lending platform API.
type Overdrive struct {
	ClientKey    string `toml:"client_key"`
	ClientSecret string `toml:"client_secret"`
	OAuthURL     string `toml:"oauth_url"`
	APIURL       string `toml:"api_url"`
	// Libraries maps a library key (the first shelf term slug on an item)
	// to its OverDrive library account id.
	Libraries map[string]string `toml:"libraries"`
}

// GoodReads contains configuration for the GoodReads XML API.
type GoodReads struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// OMDb contains configuration for the Open Movie Database API.
type OMDb struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// OpenLibrary contains configuration for the OpenLibrary books API.
type OpenLibrary struct {
	BaseURL string `toml:"base_url"`
}

// HTTP contains transport settings shared by every external client.
type HTTP struct {
	TimeoutSeconds         int     `toml:"timeout_seconds"`
	RequestsPerSecond      float64 `toml:"requests_per_second"`
	Burst                  int     `toml:"burst"`
	BreakerThreshold       int     `toml:"breaker_threshold"`
	BreakerCooldownSeconds int     `toml:"breaker_cooldown_seconds"`
	UserAgent              string  `toml:"user_agent"`
}

// Reconcile contains knobs for record reconciliation and batch sweeps.
type Reconcile struct {
	FailureDebounceMinutes int `toml:"failure_debounce_minutes"`
	ChunkSize              int `toml:"chunk_size"`
	FailedBatchSize        int `toml:"failed_batch_size"`
	HoldingsBatchSize      int `toml:"holdings_batch_size"`
	DeletedBatchSize       int `toml:"deleted_batch_size"`
	HoldingsMaxAgeDays     int `toml:"holdings_max_age_days"`
	DeletedMaxAgeDays      int `toml:"deleted_max_age_days"`
}

// Schedule contains daemon timer intervals.
type Schedule struct {
	PollIntervalSeconds     int `toml:"poll_interval_seconds"`
	FailedIntervalSeconds   int `toml:"failed_interval_seconds"`
	HoldingsIntervalSeconds int `toml:"holdings_interval_seconds"`
	DeletedIntervalSeconds  int `toml:"deleted_interval_seconds"`
}

// Alerts contains configuration for closing/alert emails.
type Alerts struct {
	From                string   `toml:"from"`
	FromName            string   `toml:"from_name"`
	EditURL             string   `toml:"edit_url"`
	ManagerPositions    []string `toml:"manager_positions"`
	SupervisorPositions []string `toml:"supervisor_positions"`
}

// SMTP contains outbound mail settings. An empty host disables delivery.
type SMTP struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// Notifications contains configuration for ntfy operator notices.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Batch              bool   `toml:"batch"`
	Errors             bool   `toml:"errors"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Metrics contains the optional Prometheus endpoint settings.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Fontana.
//
// Configuration sections by subsystem:
//   - Paths: database, lock and log locations
//   - Evergreen, Overdrive: catalog sources
//   - GoodReads, OMDb, OpenLibrary: metadata enrichment
//   - HTTP: shared timeout, rate limit and circuit breaker
//   - Reconcile: failure debounce and sweep batch sizes
//   - Schedule: daemon timer intervals
//   - Alerts, SMTP: closing notices to staff
//   - Notifications: ntfy operator notices
//   - Metrics: Prometheus endpoint
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Evergreen     Evergreen     `toml:"evergreen"`
	Overdrive     Overdrive     `toml:"overdrive"`
	GoodReads     GoodReads     `toml:"goodreads"`
	OMDb          OMDb          `toml:"omdb"`
	OpenLibrary   OpenLibrary   `toml:"openlibrary"`
	HTTP          HTTP          `toml:"http"`
	Reconcile     Reconcile     `toml:"reconcile"`
	Schedule      Schedule      `toml:"schedule"`
	Alerts        Alerts        `toml:"alerts"`
	SMTP          SMTP          `toml:"smtp"`
	Notifications Notifications `toml:"notifications"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/fontana/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("fontana.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "fontana.db")
}

// LockPath returns the run lock location shared by the daemon and batch commands.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "fontana.lock")
}

// FailureDebounce returns the minimum spacing between counted lookup failures.
func (c *Config) FailureDebounce() time.Duration {
	return time.Duration(c.Reconcile.FailureDebounceMinutes) * time.Minute
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// OverdriveLibrary returns the account id configured for a library key.
func (c *Config) OverdriveLibrary(key string) (string, bool) {
	id, ok := c.Overdrive.Libraries[strings.ToLower(strings.TrimSpace(key))]
	return id, ok && id != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
