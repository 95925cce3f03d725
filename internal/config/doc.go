// Package config loads, normalizes, and validates osm-autolink configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment variables the
// tool has always accepted: OSM_TOKEN, DRY_RUN, OVERPASS_API_INTERPRETER,
// NOMINATIM_URL, BATCH_SIZE, GEMINI_API_KEY and PERPLEXITY_API_KEY.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a consistent pacing policy, and clear validation errors.
package config
