package osm_test

import (
	"strings"
	"testing"

	"osmautolink/internal/osm"
)

const wayResponse = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="openstreetmap-cgimap">
 <way id="456" visible="true" version="7" changeset="1001" timestamp="2024-05-01T10:00:00Z" user="mapper" uid="42">
  <nd ref="10"/>
  <nd ref="11"/>
  <nd ref="10"/>
  <tag k="amenity" v="cafe"/>
  <tag k="name" v="Kawiarnia"/>
 </way>
</osm>`

func TestDecodeElementKeepsStructureAndAttributes(t *testing.T) {
	el, err := osm.DecodeElement(strings.NewReader(wayResponse), osm.MustParseObjectID("way/456"))
	if err != nil {
		t.Fatalf("DecodeElement: %v", err)
	}
	if el.Kind() != osm.KindWay || el.ID != 456 || el.Version != 7 {
		t.Fatalf("unexpected element header: kind=%s id=%d version=%d", el.Kind(), el.ID, el.Version)
	}
	if len(el.Nodes) != 3 || el.Nodes[2].Ref != 10 {
		t.Fatalf("unexpected node refs: %+v", el.Nodes)
	}
	if el.Changeset() != 1001 {
		t.Fatalf("unexpected changeset %d", el.Changeset())
	}
	if user, ok := el.Attr("user"); !ok || user != "mapper" {
		t.Fatalf("expected user attribute preserved, got %q", user)
	}
	if name, ok := el.Tag("name"); !ok || name != "Kawiarnia" {
		t.Fatalf("unexpected name tag %q", name)
	}
}

func TestDecodeElementMissing(t *testing.T) {
	if _, err := osm.DecodeElement(strings.NewReader(wayResponse), osm.MustParseObjectID("way/999")); err == nil {
		t.Fatal("expected error for absent element")
	}
	if _, err := osm.DecodeElement(strings.NewReader("not xml"), osm.MustParseObjectID("way/456")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSetTagAndHasTagValue(t *testing.T) {
	var el osm.Element
	if el.HasTagValue(osm.WebsiteKey) {
		t.Fatal("expected no website on empty element")
	}
	el.SetTag(osm.WebsiteKey, "  ")
	if el.HasTagValue(osm.WebsiteKey) {
		t.Fatal("expected blank website to count as absent")
	}
	el.SetTag(osm.WebsiteKey, "https://example.com")
	if !el.HasTagValue(osm.WebsiteKey) || len(el.Tags) != 1 {
		t.Fatalf("expected single website tag, got %+v", el.Tags)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	el, err := osm.DecodeElement(strings.NewReader(wayResponse), osm.MustParseObjectID("way/456"))
	if err != nil {
		t.Fatalf("DecodeElement: %v", err)
	}
	clone := el.Clone()
	clone.SetTag("name", "Changed")
	if name, _ := el.Tag("name"); name != "Kawiarnia" {
		t.Fatalf("clone edit leaked into original: %q", name)
	}
}
