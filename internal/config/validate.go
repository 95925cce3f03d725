package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked by
// RequireOSMToken and RequireLLM so read-only commands work without them.
func (c *Config) Validate() error {
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateOSM(); err != nil {
		return err
	}
	if err := c.validateOverpass(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	for key, value := range map[string]string{
		"osm.api_url":              c.OSM.APIURL,
		"overpass.interpreter_url": c.Overpass.InterpreterURL,
		"nominatim.url":            c.Nominatim.URL,
		"llm.base_url":             c.LLM.BaseURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("%s must be an absolute http(s) URL", key)
		}
	}
	return nil
}

func (c *Config) validateOSM() error {
	return ensurePositiveMap(map[string]int{
		"osm.fetch_concurrency":       c.OSM.FetchConcurrency,
		"osm.request_timeout_seconds": c.OSM.RequestTimeoutSeconds,
		"osm.upload_timeout_seconds":  c.OSM.UploadTimeoutSeconds,
	})
}

func (c *Config) validateOverpass() error {
	if c.Overpass.AreaRelationID <= 0 {
		return errors.New("overpass.area_relation_id must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderPerplexity, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be %q or %q", ProviderPerplexity, ProviderGemini)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.BatchSize < 0 {
		return errors.New("enrichment.batch_size must be >= 0")
	}
	if c.Enrichment.SafetyMargin < 0 {
		return errors.New("enrichment.safety_margin must be >= 0")
	}
	if c.EnrichmentBatchSize() <= 0 {
		return errors.New("enrichment.requests_per_minute must exceed enrichment.safety_margin (or set enrichment.batch_size)")
	}
	if c.Enrichment.WindowSeconds < 0 {
		return errors.New("enrichment.window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
