// Package workflow runs osm-autolink end to end.
//
// The Manager discovers candidate POIs, drops the ones the record store has
// already seen, looks up links in paced batches, and then walks the operator
// through the pending records before committing them as one changeset.
// Discover and Upload are exposed separately so the CLI can run either half
// on its own; Run chains them under a single run id.
//
// Records are only marked applied after the changeset upload succeeds, and
// only for the objects actually submitted. Conflicting objects stay pending.
package workflow
