package discovery_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"osmautolink/internal/discovery"
	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
	"osmautolink/internal/services/nominatim"
	"osmautolink/internal/services/overpass"
)

type fakeQuerier struct {
	payload string
	query   string
	err     error
}

func (f *fakeQuerier) Query(_ context.Context, query string) ([]overpass.Element, error) {
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	var out struct {
		Elements []overpass.Element `json:"elements"`
	}
	if err := json.Unmarshal([]byte(f.payload), &out); err != nil {
		return nil, err
	}
	return out.Elements, nil
}

type fakeLookup struct {
	places []nominatim.Place
	err    error
	asked  []osm.ObjectID
}

func (f *fakeLookup) Lookup(_ context.Context, ids []osm.ObjectID) ([]nominatim.Place, error) {
	f.asked = append(f.asked, ids...)
	return f.places, f.err
}

const elements = `{"elements":[
 {"type":"node","id":1,"tags":{"name":"Kawiarnia","amenity":"cafe","addr:street":"Rynek","addr:housenumber":"1"}},
 {"type":"node","id":2,"tags":{"name":"Ławka","leisure":"bench"}},
 {"type":"way","id":3,"tags":{"name":"Stolarz","craft":"carpenter"}},
 {"type":"relation","id":4,"tags":{"amenity":"school"}},
 {"type":"node","id":1,"tags":{"name":"Kawiarnia","amenity":"cafe"}}
]}`

func options() discovery.Options {
	return discovery.Options{
		AreaRelationID: 1668045,
		TimeoutSeconds: 180,
		Query: discovery.QueryOptions{
			RequiredKeys:    []string{"amenity", "shop", "craft", "office"},
			DefaultCity:     "Radom",
			DefaultProvince: "Mazowieckie",
		},
	}
}

func TestDiscoverFiltersCategories(t *testing.T) {
	querier := &fakeQuerier{payload: elements}
	d := discovery.New(querier, nil, options(), logging.NewNop())

	candidates, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if querier.query != overpass.MissingWebsiteQuery(1668045, 180) {
		t.Fatalf("unexpected query %s", querier.query)
	}
	got := discovery.IDs(candidates)
	want := []osm.ObjectID{osm.MustParseObjectID("node/1"), osm.MustParseObjectID("way/3")}
	if !slices.Equal(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	if candidates[1].Query != "'Stolarz' near addr:city='Radom', addr:province='Mazowieckie'. POI category: craft='carpenter'" {
		t.Fatalf("query = %s", candidates[1].Query)
	}
}

func TestDiscoverFillsMissingAddresses(t *testing.T) {
	lookup := &fakeLookup{places: []nominatim.Place{{
		OSMType: "way",
		OSMID:   3,
		Address: map[string]string{"road": "Traugutta", "house_number": "12", "postcode": "26-600", "city": "Radom"},
	}}}
	d := discovery.New(&fakeQuerier{payload: elements}, lookup, options(), logging.NewNop())

	candidates, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if !slices.Equal(lookup.asked, []osm.ObjectID{osm.MustParseObjectID("way/3")}) {
		t.Fatalf("lookup asked for %v", lookup.asked)
	}
	want := "'Stolarz' near addr:street='Traugutta', addr:housenumber='12', addr:postcode='26-600', " +
		"addr:city='Radom', addr:province='Mazowieckie'. POI category: craft='carpenter'"
	if candidates[1].Query != want {
		t.Fatalf("query =\n%s\nwant\n%s", candidates[1].Query, want)
	}
}

func TestDiscoverIgnoresLookupFailure(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("nominatim down")}
	d := discovery.New(&fakeQuerier{payload: elements}, lookup, options(), logging.NewNop())

	candidates, err := d.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(candidates) != 2 || strings.Contains(candidates[1].Query, "addr:street") {
		t.Fatalf("unexpected candidates %+v", candidates)
	}
}

func TestDiscoverPropagatesQueryFailure(t *testing.T) {
	boom := errors.New("overpass down")
	d := discovery.New(&fakeQuerier{err: boom}, nil, options(), logging.NewNop())
	if _, err := d.Discover(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected overpass error, got %v", err)
	}
}
