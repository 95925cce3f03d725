// Package services defines shared utilities consumed by the pipeline stages
// and the remote API clients under it.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, and OSM object
//     ids for logging.
//   - Structured error markers plus the Wrap helper that separate transport
//     failures from rejected submissions.
//   - HTTPStatusError and the Retry policy shared by the OpenStreetMap,
//     Overpass, and Nominatim clients.
//
// Remote clients live in subpackages (osmapi, overpass, nominatim, llm,
// gemini) and depend only on this package and internal/osm.
package services
