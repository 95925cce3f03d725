// Package nominatim resolves OSM objects to postal addresses with the
// Nominatim lookup endpoint.
package nominatim
