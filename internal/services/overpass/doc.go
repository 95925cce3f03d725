// Package overpass runs queries against an Overpass API interpreter and
// decodes the JSON element list, keeping tags in the order the server sent
// them.
package overpass
