package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOSM()
	c.normalizeOverpass()
	c.normalizeNominatim()
	c.normalizeDiscovery()
	c.normalizeLLM()
	if err := c.normalizeEnrichment(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOSM() {
	c.OSM.APIURL = strings.TrimRight(strings.TrimSpace(c.OSM.APIURL), "/")
	if c.OSM.APIURL == "" {
		c.OSM.APIURL = defaultOSMAPIURL
	}
	c.OSM.Token = strings.TrimSpace(c.OSM.Token)
	if c.OSM.Token == "" {
		if value, ok := os.LookupEnv("OSM_TOKEN"); ok {
			c.OSM.Token = strings.TrimSpace(value)
		}
	}
	c.OSM.ChangesetComment = strings.TrimSpace(c.OSM.ChangesetComment)
	if c.OSM.ChangesetComment == "" {
		c.OSM.ChangesetComment = defaultComment
	}
	if c.OSM.FetchConcurrency <= 0 {
		c.OSM.FetchConcurrency = defaultFetchLimit
	}
	if c.OSM.RequestTimeoutSeconds <= 0 {
		c.OSM.RequestTimeoutSeconds = defaultOSMTimeout
	}
	if c.OSM.UploadTimeoutSeconds <= 0 {
		c.OSM.UploadTimeoutSeconds = defaultUploadLimit
	}
	if value, ok := os.LookupEnv("DRY_RUN"); ok && strings.TrimSpace(value) == "1" {
		c.OSM.DryRun = true
	}
}

func (c *Config) normalizeOverpass() {
	c.Overpass.InterpreterURL = strings.TrimSpace(c.Overpass.InterpreterURL)
	if value, ok := os.LookupEnv("OVERPASS_API_INTERPRETER"); ok && strings.TrimSpace(value) != "" {
		c.Overpass.InterpreterURL = strings.TrimSpace(value)
	}
	if c.Overpass.InterpreterURL == "" {
		c.Overpass.InterpreterURL = defaultOverpassURL
	}
	if c.Overpass.TimeoutSeconds <= 0 {
		c.Overpass.TimeoutSeconds = defaultOverpassTimeout
	}
	keys := make([]string, 0, len(c.Overpass.RequiredKeys))
	seen := make(map[string]struct{}, len(c.Overpass.RequiredKeys))
	for _, key := range c.Overpass.RequiredKeys {
		normalized := strings.TrimSpace(key)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		keys = append(keys, normalized)
	}
	if len(keys) == 0 {
		keys = append(keys, defaultRequiredKeys...)
	}
	c.Overpass.RequiredKeys = keys
}

func (c *Config) normalizeNominatim() {
	c.Nominatim.URL = strings.TrimRight(strings.TrimSpace(c.Nominatim.URL), "/")
	if value, ok := os.LookupEnv("NOMINATIM_URL"); ok && strings.TrimSpace(value) != "" {
		c.Nominatim.URL = strings.TrimRight(strings.TrimSpace(value), "/")
	}
	if c.Nominatim.URL == "" {
		c.Nominatim.URL = defaultNominatimURL
	}
	if c.Nominatim.BatchSize <= 0 || c.Nominatim.BatchSize > maxNominatimBatch {
		c.Nominatim.BatchSize = defaultNominatimBatch
	}
}

func (c *Config) normalizeDiscovery() {
	c.Discovery.DefaultCity = strings.TrimSpace(c.Discovery.DefaultCity)
	c.Discovery.DefaultProvince = strings.TrimSpace(c.Discovery.DefaultProvince)
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderPerplexity
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultPerplexityURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultPerplexityModel
	}
	c.LLM.GeminiModel = strings.TrimSpace(c.LLM.GeminiModel)
	if c.LLM.GeminiModel == "" {
		c.LLM.GeminiModel = defaultGeminiModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("PERPLEXITY_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.GeminiAPIKey = strings.TrimSpace(c.LLM.GeminiAPIKey)
	if c.LLM.GeminiAPIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.LLM.GeminiAPIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeEnrichment() error {
	if value, ok := os.LookupEnv("BATCH_SIZE"); ok && strings.TrimSpace(value) != "" && c.Enrichment.BatchSize == 0 {
		size, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("BATCH_SIZE: %w", err)
		}
		c.Enrichment.BatchSize = size
	}
	if c.Enrichment.WindowSeconds == 0 {
		c.Enrichment.WindowSeconds = defaultWindowSeconds
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
