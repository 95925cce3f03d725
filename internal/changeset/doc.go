// Package changeset turns pending link records into a single OpenStreetMap
// changeset.
//
// Builder fetches the current state of every object, skips those that
// gained a website tag since discovery, and groups the rest into an
// osm.ModifySet. Uploader opens a changeset, binds the set to it, uploads
// the osmChange document and always closes the changeset again, even when
// the upload is rejected or the caller gives up.
package changeset
