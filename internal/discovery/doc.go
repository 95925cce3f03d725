// Package discovery finds POIs that are missing a homepage link and renders
// the search query sent to the link finder for each of them.
//
// Candidates come from an Overpass query over a configured area. Only
// elements carrying one of the required category keys (amenity, shop, craft,
// office by default) are kept. When enabled, a Nominatim lookup fills in
// missing street addresses before the query text is rendered.
package discovery
