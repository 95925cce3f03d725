// Package enrich runs link lookups for discovered candidates under a
// requests-per-minute budget and persists the outcome of every lookup.
//
// Candidates are split into batches of Pacer.BatchSize. The lookups of one
// batch run concurrently; once all of them settle the batch is appended to
// the record store in one transaction, and the pacer waits one Window before
// starting the next batch. A failed lookup is recorded with an empty link so
// the POI is not asked about again.
package enrich
