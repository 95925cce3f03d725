// Package osm models the subset of OpenStreetMap data the autolink pipeline
// touches: object identifiers, elements as returned by the API 0.6 XML
// endpoints, and the osmChange documents submitted inside a changeset.
//
// Elements keep every attribute and child they were decoded with so a modify
// upload only changes what the caller explicitly set. A ModifySet collects
// edited elements before a changeset exists; Bind resolves it against a
// concrete changeset id once the session has been opened.
package osm
