package testsupport

import (
	"path/filepath"
	"testing"

	"fontana/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// API keys are filled with placeholders, rate limiting is relaxed and the
// circuit breaker is disabled so tests see every response.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.GoodReads.APIKey = "test"
	cfgVal.OMDb.APIKey = "test"
	cfgVal.Overdrive.ClientKey = "test"
	cfgVal.Overdrive.ClientSecret = "secret"
	cfgVal.HTTP.RequestsPerSecond = 1000
	cfgVal.HTTP.Burst = 1000
	cfgVal.HTTP.BreakerThreshold = 0
	cfgVal.Metrics.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServer points every external API at baseURL. Paths differ per API, so a
// single httptest mux can serve them all.
func WithServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Evergreen.BaseURL = baseURL
		b.cfg.Overdrive.OAuthURL = baseURL + "/token"
		b.cfg.Overdrive.APIURL = baseURL
		b.cfg.GoodReads.BaseURL = baseURL
		b.cfg.OMDb.BaseURL = baseURL
		b.cfg.OpenLibrary.BaseURL = baseURL
	}
}

// WithOverdriveLibrary maps a library key to an OverDrive account id.
func WithOverdriveLibrary(key, id string) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Overdrive.Libraries == nil {
			b.cfg.Overdrive.Libraries = map[string]string{}
		}
		b.cfg.Overdrive.Libraries[key] = id
	}
}

// WithoutMetadataKeys clears the GoodReads and OMDb keys, disabling both.
func WithoutMetadataKeys() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.GoodReads.APIKey = ""
		b.cfg.OMDb.APIKey = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
