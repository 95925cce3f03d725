package testsupport

import (
	"path/filepath"
	"testing"

	"osmautolink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options. Pacing is
// tightened to one-second windows; tests inject a fake clock anyway.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.OSM.Token = "test-token"
	cfgVal.LLM.APIKey = "test-key"
	cfgVal.Enrichment.WindowSeconds = 1

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

// WithOSMAPI points the OSM client at a test server.
func WithOSMAPI(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OSM.APIURL = url
	}
}

// WithOverpass points discovery at a test server.
func WithOverpass(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Overpass.InterpreterURL = url
	}
}

// WithNominatim enables address lookups against a test server.
func WithNominatim(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Nominatim.Enabled = true
		b.cfg.Nominatim.URL = url
	}
}

// WithLLM points the chat-completions link finder at a test server.
func WithLLM(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.Provider = config.ProviderPerplexity
		b.cfg.LLM.BaseURL = url
	}
}

// WithBatchSize fixes the enrichment batch size.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.BatchSize = size
	}
}

// WithDryRun toggles dry-run uploads.
func WithDryRun(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OSM.DryRun = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
