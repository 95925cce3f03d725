package nominatim_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"osmautolink/internal/osm"
	"osmautolink/internal/services"
	"osmautolink/internal/services/nominatim"
)

func TestLookupChunksAndDecodes(t *testing.T) {
	var requests []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "jsonv2" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		ids := r.URL.Query().Get("osm_ids")
		requests = append(requests, ids)
		var parts []string
		for _, ref := range strings.Split(ids, ",") {
			kind := map[byte]string{'N': "node", 'W': "way", 'R': "relation"}[ref[0]]
			parts = append(parts, `{"osm_type":"`+kind+`","osm_id":`+ref[1:]+`,"address":{"road":"Słowackiego","house_number":"`+ref[1:]+`"}}`)
		}
		_, _ = io.WriteString(w, "["+strings.Join(parts, ",")+"]")
	}))
	defer server.Close()

	client := nominatim.NewClient(server.URL, nominatim.WithBatchSize(2))
	ids := []osm.ObjectID{
		osm.MustParseObjectID("node/1"),
		osm.MustParseObjectID("way/2"),
		osm.MustParseObjectID("relation/3"),
	}
	places, err := client.Lookup(context.Background(), ids)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(requests) != 2 || requests[0] != "N1,W2" || requests[1] != "R3" {
		t.Fatalf("unexpected requests %v", requests)
	}
	if len(places) != 3 {
		t.Fatalf("expected 3 places, got %d", len(places))
	}
	id, err := places[2].ObjectID()
	if err != nil || id != ids[2] {
		t.Fatalf("ObjectID = %v, %v", id, err)
	}
	if places[1].Address["road"] != "Słowackiego" {
		t.Fatalf("unexpected address %+v", places[1].Address)
	}
}

func TestLookupRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, "[]")
	}))
	defer server.Close()

	policy := services.RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	client := nominatim.NewClient(server.URL, nominatim.WithRetryPolicy(policy))
	places, err := client.Lookup(context.Background(), []osm.ObjectID{osm.MustParseObjectID("node/5")})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(places) != 0 || calls.Load() != 2 {
		t.Fatalf("places=%v calls=%d", places, calls.Load())
	}
}

func TestLookupGivesUp(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := nominatim.NewClient(server.URL, nominatim.WithRetryPolicy(services.NoRetry()))
	_, err := client.Lookup(context.Background(), []osm.ObjectID{osm.MustParseObjectID("node/5")})
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
