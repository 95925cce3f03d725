package records_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"osmautolink/internal/osm"
	"osmautolink/internal/records"
	"osmautolink/internal/testsupport"
)

func ids(raw ...string) []osm.ObjectID {
	out := make([]osm.ObjectID, len(raw))
	for i, r := range raw {
		out[i] = osm.MustParseObjectID(r)
	}
	return out
}

func TestFilterUnseenReturnsDifference(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Seed(t, store, map[string]string{
		"node/1": "https://a.example",
		"way/2":  "",
	})
	if err := store.MarkApplied(ctx, ids("node/1")); err != nil {
		t.Fatalf("MarkApplied: %v", err)
	}

	got, err := store.FilterUnseen(ctx, ids("way/3", "node/1", "way/2", "relation/4", "way/3"))
	if err != nil {
		t.Fatalf("FilterUnseen: %v", err)
	}
	want := ids("way/3", "relation/4")
	if !slices.Equal(got, want) {
		t.Fatalf("FilterUnseen = %v, want %v", got, want)
	}
}

func TestFilterUnseenEmptyStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	got, err := store.FilterUnseen(context.Background(), nil)
	if err != nil {
		t.Fatalf("FilterUnseen: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no ids, got %v", got)
	}
}

func TestSelectPendingExcludesNullLinksAndApplied(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Seed(t, store, map[string]string{
		"node/1":     "https://one.example",
		"node/2":     "",
		"way/3":      "https://three.example",
		"relation/4": "https://four.example",
	})
	if err := store.MarkApplied(ctx, ids("way/3")); err != nil {
		t.Fatalf("MarkApplied: %v", err)
	}

	pending, err := store.SelectPendingUpload(ctx)
	if err != nil {
		t.Fatalf("SelectPendingUpload: %v", err)
	}
	got := records.IDs(pending)
	want := ids("node/1", "relation/4")
	if !slices.Equal(got, want) {
		t.Fatalf("pending = %v, want %v", got, want)
	}
	for _, rec := range pending {
		if !rec.Pending() {
			t.Fatalf("record %s reported as not pending", rec.ID)
		}
	}
}

func TestMarkAppliedIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Seed(t, store, map[string]string{"node/1": "https://one.example"})

	for i := 0; i < 2; i++ {
		if err := store.MarkApplied(ctx, ids("node/1", "node/99")); err != nil {
			t.Fatalf("MarkApplied #%d: %v", i+1, err)
		}
	}
	rec, err := store.Get(ctx, osm.MustParseObjectID("node/1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec == nil || !rec.Applied {
		t.Fatalf("expected applied record, got %#v", rec)
	}
	missing, err := store.Get(ctx, osm.MustParseObjectID("node/99"))
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("unknown id must not be created, got %#v", missing)
	}
}

func TestAppendIsAllOrNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Seed(t, store, map[string]string{"way/5": ""})

	now := time.Now()
	batch := []records.Record{
		{ID: osm.MustParseObjectID("node/1"), Timestamp: now, Query: "'A'", Link: "https://a.example"},
		{ID: osm.MustParseObjectID("way/5"), Timestamp: now, Query: "'B'"},
	}
	err := store.Append(ctx, batch)
	if !errors.Is(err, records.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	rec, err := store.Get(ctx, osm.MustParseObjectID("node/1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec != nil {
		t.Fatalf("failed append must not persist any record, found %#v", rec)
	}
}

func TestAppendRoundTripsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ts := time.Date(2024, 3, 2, 10, 4, 5, 123456789, time.FixedZone("CET", 3600))
	rec := records.Record{
		ID:        osm.MustParseObjectID("relation/7"),
		Timestamp: ts,
		Query:     "\"Zakład 'Fryzjer'\" near addr:city='Radom'",
		Link:      "https://fryzjer.example/",
	}
	if err := store.Append(ctx, []records.Record{rec}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := store.Get(ctx, rec.ID)
	if err != nil || got == nil {
		t.Fatalf("Get: %v %#v", err, got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.Query != rec.Query || got.Link != rec.Link || got.Applied {
		t.Fatalf("unexpected record %#v", got)
	}
}

func TestListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.Seed(t, store, map[string]string{
		"node/1": "https://one.example",
		"node/2": "",
		"node/3": "https://three.example",
	})
	if err := store.MarkApplied(ctx, ids("node/3")); err != nil {
		t.Fatalf("MarkApplied: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := records.Stats{Total: 3, WithLink: 2, Pending: 1, Applied: 1}
	if stats != want {
		t.Fatalf("Stats = %+v, want %+v", stats, want)
	}

	all, err := store.List(ctx, records.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := records.IDs(all); !slices.Equal(got, ids("node/3", "node/2")) {
		t.Fatalf("List newest first = %v", got)
	}
	pending, err := store.List(ctx, records.Filter{PendingOnly: true})
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if got := records.IDs(pending); !slices.Equal(got, ids("node/1")) {
		t.Fatalf("List pending = %v", got)
	}
}

func TestOpenRejectsSecondWriter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := records.Open(cfg); !errors.Is(err, records.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	reopened, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	_ = reopened.Close()
}
