package osm_test

import (
	"encoding/xml"
	"strings"
	"testing"

	"osmautolink/internal/osm"
)

type decodedChange struct {
	XMLName   xml.Name `xml:"osmChange"`
	Version   string   `xml:"version,attr"`
	Generator string   `xml:"generator,attr"`
	Modify    struct {
		Nodes     []osm.Element `xml:"node"`
		Ways      []osm.Element `xml:"way"`
		Relations []osm.Element `xml:"relation"`
	} `xml:"modify"`
}

const nodeResponse = `<osm version="0.6"><node id="1" version="3" changeset="77" lat="51.40" lon="21.15"><tag k="name" v="Café Example"/></node></osm>`

const relationResponse = `<osm version="0.6"><relation id="5" version="2" changeset="78"><member type="way" ref="456" role="outer"/><member type="node" ref="1" role=""/><tag k="type" v="multipolygon"/></relation></osm>`

func TestBindRoundTripsUntouchedContent(t *testing.T) {
	node, err := osm.DecodeElement(strings.NewReader(nodeResponse), osm.MustParseObjectID("node/1"))
	if err != nil {
		t.Fatalf("decode node: %v", err)
	}
	way, err := osm.DecodeElement(strings.NewReader(wayResponse), osm.MustParseObjectID("way/456"))
	if err != nil {
		t.Fatalf("decode way: %v", err)
	}
	rel, err := osm.DecodeElement(strings.NewReader(relationResponse), osm.MustParseObjectID("relation/5"))
	if err != nil {
		t.Fatalf("decode relation: %v", err)
	}

	var set osm.ModifySet
	for _, el := range []osm.Element{rel, way, node} {
		el.SetTag(osm.WebsiteKey, "https://example.com")
		if err := set.Add(el); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", set.Len())
	}

	change, err := set.Bind(osm.ChangesetID(9000))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	encoded, err := change.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.HasPrefix(string(encoded), "<?xml") {
		t.Fatalf("expected xml declaration, got %q", string(encoded[:20]))
	}

	var decoded decodedChange
	if err := xml.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal encoded change: %v", err)
	}
	if decoded.Version != "0.6" || decoded.Generator != osm.Generator {
		t.Fatalf("unexpected header: version=%q generator=%q", decoded.Version, decoded.Generator)
	}
	if len(decoded.Modify.Nodes) != 1 || len(decoded.Modify.Ways) != 1 || len(decoded.Modify.Relations) != 1 {
		t.Fatalf("unexpected grouping: %+v", decoded.Modify)
	}

	gotNode := decoded.Modify.Nodes[0]
	if gotNode.Changeset() != 9000 {
		t.Fatalf("expected node bound to changeset 9000, got %d", gotNode.Changeset())
	}
	if lat, _ := gotNode.Attr("lat"); lat != "51.40" {
		t.Fatalf("expected lat preserved, got %q", lat)
	}
	if name, _ := gotNode.Tag("name"); name != "Café Example" {
		t.Fatalf("expected name preserved, got %q", name)
	}
	if site, _ := gotNode.Tag(osm.WebsiteKey); site != "https://example.com" {
		t.Fatalf("expected website set, got %q", site)
	}

	gotWay := decoded.Modify.Ways[0]
	if len(gotWay.Nodes) != 3 || gotWay.Version != 7 {
		t.Fatalf("way structure changed: %+v", gotWay)
	}
	gotRel := decoded.Modify.Relations[0]
	if len(gotRel.Members) != 2 || gotRel.Members[0].Role != "outer" || gotRel.Members[1].Type != "node" {
		t.Fatalf("relation members changed: %+v", gotRel.Members)
	}
}

func TestBindLeavesSetPending(t *testing.T) {
	node, err := osm.DecodeElement(strings.NewReader(nodeResponse), osm.MustParseObjectID("node/1"))
	if err != nil {
		t.Fatalf("decode node: %v", err)
	}
	var set osm.ModifySet
	if err := set.Add(node); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := set.Bind(1); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if got := set.Group(osm.KindNode)[0].Changeset(); got != 77 {
		t.Fatalf("expected pending set untouched, changeset=%d", got)
	}
	if _, err := set.Bind(0); err == nil {
		t.Fatal("expected error for non-positive changeset id")
	}
}

func TestDraftDropsChangeset(t *testing.T) {
	node, err := osm.DecodeElement(strings.NewReader(nodeResponse), osm.MustParseObjectID("node/1"))
	if err != nil {
		t.Fatalf("decode node: %v", err)
	}
	var set osm.ModifySet
	if err := set.Add(node); err != nil {
		t.Fatalf("Add: %v", err)
	}
	draft := set.Draft()
	if draft.Changeset != 0 {
		t.Fatalf("expected unbound draft, got %d", draft.Changeset)
	}
	if _, ok := draft.Modify.Nodes[0].Attr("changeset"); ok {
		t.Fatal("expected changeset attribute removed from draft")
	}
	if got := set.Group(osm.KindNode)[0].Changeset(); got != 77 {
		t.Fatalf("expected set untouched, changeset=%d", got)
	}
}

func TestModifySetIDsAreOrdered(t *testing.T) {
	var set osm.ModifySet
	for _, ref := range []int64{30, 10, 20} {
		el := osm.Element{XMLName: xml.Name{Local: "node"}, ID: ref, Version: 1}
		if err := set.Add(el); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := set.Add(osm.Element{XMLName: xml.Name{Local: "way"}, ID: 1}); err != nil {
		t.Fatalf("Add way: %v", err)
	}
	if err := set.Add(osm.Element{XMLName: xml.Name{Local: "area"}, ID: 1}); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
	got := set.IDs()
	want := []string{"node/10", "node/20", "node/30", "way/1"}
	if len(got) != len(want) {
		t.Fatalf("unexpected ids: %v", got)
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Fatalf("position %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestChangesetTagsEncode(t *testing.T) {
	tags := osm.ChangesetTags{{Key: "comment", Value: "Dodanie brakujących linków stron internetowych"}, {Key: "created_by", Value: "osm-autolink"}}
	encoded, err := tags.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded struct {
		Changeset struct {
			Tags []osm.Tag `xml:"tag"`
		} `xml:"changeset"`
	}
	if err := xml.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Changeset.Tags) != 2 || decoded.Changeset.Tags[0].Value != tags[0].Value {
		t.Fatalf("unexpected tags: %+v", decoded.Changeset.Tags)
	}
}
