package osm_test

import (
	"testing"

	"osmautolink/internal/osm"
)

func TestParseObjectID(t *testing.T) {
	id, err := osm.ParseObjectID("way/456")
	if err != nil {
		t.Fatalf("ParseObjectID: %v", err)
	}
	if id.Kind != osm.KindWay || id.Ref != 456 {
		t.Fatalf("unexpected id: %+v", id)
	}
	if id.String() != "way/456" {
		t.Fatalf("unexpected string form %q", id.String())
	}
	if id.PublicURL() != "https://www.openstreetmap.org/way/456" {
		t.Fatalf("unexpected public url %q", id.PublicURL())
	}
	if id.NominatimRef() != "W456" {
		t.Fatalf("unexpected nominatim ref %q", id.NominatimRef())
	}
}

func TestParseObjectIDRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "node", "node/", "node/abc", "area/1", "node/-4", "node/0"} {
		if _, err := osm.ParseObjectID(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestObjectIDCompareOrdersKindsThenRefs(t *testing.T) {
	ids := []osm.ObjectID{
		osm.MustParseObjectID("relation/1"),
		osm.MustParseObjectID("node/9"),
		osm.MustParseObjectID("way/2"),
		osm.MustParseObjectID("node/3"),
	}
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j].Compare(ids[i]) < 0 {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}
	want := []string{"node/3", "node/9", "way/2", "relation/1"}
	for i, id := range ids {
		if id.String() != want[i] {
			t.Fatalf("position %d: got %s want %s", i, id, want[i])
		}
	}
}
