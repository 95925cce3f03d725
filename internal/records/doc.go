// Package records persists every link lookup in an append-only SQLite log.
//
// Each OSM object is looked up at most once: FilterUnseen removes anything
// already recorded, whatever its state. Records are written once by the
// enrichment pipeline and afterwards only flip from pending to applied once
// their link has been committed to OpenStreetMap (or the operator chose to
// ignore them). A lock file next to the database keeps a second process from
// writing to the same store.
package records
