package testsupport

import (
	"context"
	"testing"
	"time"

	"osmautolink/internal/config"
	"osmautolink/internal/osm"
	"osmautolink/internal/records"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Seed appends one record per id. An empty link leaves the record without
// a candidate.
func Seed(t testing.TB, store *records.Store, links map[string]string) []records.Record {
	t.Helper()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	recs := make([]records.Record, 0, len(links))
	i := 0
	for _, raw := range SortedKeys(links) {
		id := osm.MustParseObjectID(raw)
		recs = append(recs, records.Record{
			ID:        id,
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Query:     "'" + raw + "'",
			Link:      links[raw],
		})
		i++
	}
	if err := store.Append(context.Background(), recs); err != nil {
		t.Fatalf("store.Append: %v", err)
	}
	return recs
}
