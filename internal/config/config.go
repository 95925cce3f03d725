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

// Paths contains local storage locations.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// OSM contains OpenStreetMap API settings.
type OSM struct {
	APIURL                string `toml:"api_url"`
	Token                 string `toml:"token"`
	ChangesetComment      string `toml:"changeset_comment"`
	FetchConcurrency      int    `toml:"fetch_concurrency"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	UploadTimeoutSeconds  int    `toml:"upload_timeout_seconds"`
	// DryRun builds the changeset but never opens, uploads, or closes it.
	DryRun bool `toml:"dry_run"`
}

// Overpass contains the discovery query settings.
type Overpass struct {
	InterpreterURL string   `toml:"interpreter_url"`
	AreaRelationID int64    `toml:"area_relation_id"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RequiredKeys   []string `toml:"required_keys"`
}

// Nominatim contains the optional address lookup settings.
type Nominatim struct {
	Enabled   bool   `toml:"enabled"`
	URL       string `toml:"url"`
	BatchSize int    `toml:"batch_size"`
}

// Discovery contains defaults used when building search queries.
type Discovery struct {
	DefaultCity     string `toml:"default_city"`
	DefaultProvince string `toml:"default_province"`
}

// LLM contains link finder settings.
type LLM struct {
	// Provider selects the backend: "perplexity" (OpenAI-compatible chat
	// completions) or "gemini".
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	GeminiAPIKey   string  `toml:"gemini_api_key"`
	GeminiModel    string  `toml:"gemini_model"`
}

// Enrichment contains the link lookup pacing policy.
type Enrichment struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	SafetyMargin      int `toml:"safety_margin"`
	// BatchSize overrides RequestsPerMinute-SafetyMargin when positive.
	BatchSize     int `toml:"batch_size"`
	WindowSeconds int `toml:"window_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for osm-autolink.
//
// Configuration sections by subsystem:
//   - Paths: record store and log locations
//   - OSM: API endpoint, credentials, changeset comment, dry run
//   - Overpass: candidate discovery query
//   - Nominatim: optional address fill-in for search queries
//   - Discovery: default address parts appended to queries
//   - LLM: link finder backend
//   - Enrichment: requests-per-minute pacing
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	OSM        OSM        `toml:"osm"`
	Overpass   Overpass   `toml:"overpass"`
	Nominatim  Nominatim  `toml:"nominatim"`
	Discovery  Discovery  `toml:"discovery"`
	LLM        LLM        `toml:"llm"`
	Enrichment Enrichment `toml:"enrichment"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
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
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the record store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, databaseFileName)
}

// LockPath is the single-writer lock guarding the record store.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, lockFileName)
}

// EnrichmentBatchSize is the number of lookups issued per rate window.
func (c *Config) EnrichmentBatchSize() int {
	if c.Enrichment.BatchSize > 0 {
		return c.Enrichment.BatchSize
	}
	return c.Enrichment.RequestsPerMinute - c.Enrichment.SafetyMargin
}

// EnrichmentWindow is the unconditional pause between batches.
func (c *Config) EnrichmentWindow() time.Duration {
	return time.Duration(c.Enrichment.WindowSeconds) * time.Second
}

// RequireOSMToken reports a helpful error when no API token is configured.
func (c *Config) RequireOSMToken() error {
	if strings.TrimSpace(c.OSM.Token) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("osm.token is required. Set OSM_TOKEN env var or edit %s (create with 'osm-autolink config init')", defaultPath)
}

// RequireLLM reports a helpful error when the selected link finder has no key.
func (c *Config) RequireLLM() error {
	switch c.LLM.Provider {
	case ProviderGemini:
		if strings.TrimSpace(c.LLM.GeminiAPIKey) == "" {
			return errors.New("llm.gemini_api_key is required when llm.provider is gemini (or set GEMINI_API_KEY)")
		}
	default:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return errors.New("llm.api_key is required (or set PERPLEXITY_API_KEY)")
		}
	}
	return nil
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

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
