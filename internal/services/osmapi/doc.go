// Package osmapi talks to the OpenStreetMap editing API (version 0.6).
//
// Reads (user details, element fetches) retry transient failures. Writes
// (changeset create, upload, close) are issued exactly once; a rejected
// upload is reported to the caller and never retried.
package osmapi
