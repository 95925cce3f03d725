package osm

import (
	"encoding/xml"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// WebsiteKey is the tag the pipeline writes.
const WebsiteKey = "website"

// Tag is a single key/value pair in document order.
type Tag struct {
	Key   string `xml:"k,attr"`
	Value string `xml:"v,attr"`
}

// NodeRef is a way's reference to one of its nodes.
type NodeRef struct {
	Ref int64 `xml:"ref,attr"`
}

// Member is a relation member.
type Member struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

// Element is a node, way or relation as served by the API. Attributes other
// than id and version (lat, lon, changeset, timestamp, user, uid, visible)
// are preserved verbatim in Attrs.
type Element struct {
	XMLName xml.Name
	ID      int64      `xml:"id,attr"`
	Version int64      `xml:"version,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []NodeRef  `xml:"nd"`
	Members []Member   `xml:"member"`
	Tags    []Tag      `xml:"tag"`
}

// Kind derives the element type from its XML name.
func (e Element) Kind() Kind {
	return Kind(e.XMLName.Local)
}

// ObjectID returns the element's identifier.
func (e Element) ObjectID() ObjectID {
	return ObjectID{Kind: e.Kind(), Ref: e.ID}
}

// Tag returns the value stored under key.
func (e Element) Tag(key string) (string, bool) {
	for _, tag := range e.Tags {
		if tag.Key == key {
			return tag.Value, true
		}
	}
	return "", false
}

// HasTagValue reports whether key is present with a non-blank value.
func (e Element) HasTagValue(key string) bool {
	value, ok := e.Tag(key)
	return ok && strings.TrimSpace(value) != ""
}

// TagMap flattens the tag list.
func (e Element) TagMap() map[string]string {
	out := make(map[string]string, len(e.Tags))
	for _, tag := range e.Tags {
		out[tag.Key] = tag.Value
	}
	return out
}

// SetTag replaces the value under key, appending the tag when absent.
func (e *Element) SetTag(key, value string) {
	for i := range e.Tags {
		if e.Tags[i].Key == key {
			e.Tags[i].Value = value
			return
		}
	}
	e.Tags = append(e.Tags, Tag{Key: key, Value: value})
}

// Attr returns a preserved attribute by local name.
func (e Element) Attr(name string) (string, bool) {
	for _, attr := range e.Attrs {
		if attr.Name.Local == name {
			return attr.Value, true
		}
	}
	return "", false
}

func (e *Element) setAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name.Local == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (e *Element) removeAttr(name string) {
	e.Attrs = slices.DeleteFunc(e.Attrs, func(attr xml.Attr) bool {
		return attr.Name.Local == name
	})
}

// Changeset returns the changeset the element was last written in, 0 if unknown.
func (e Element) Changeset() int64 {
	value, ok := e.Attr("changeset")
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Clone deep-copies the element so edits never alias a fetched snapshot.
func (e Element) Clone() Element {
	e.Attrs = slices.Clone(e.Attrs)
	e.Nodes = slices.Clone(e.Nodes)
	e.Members = slices.Clone(e.Members)
	e.Tags = slices.Clone(e.Tags)
	return e
}

type document struct {
	XMLName   xml.Name  `xml:"osm"`
	Nodes     []Element `xml:"node"`
	Ways      []Element `xml:"way"`
	Relations []Element `xml:"relation"`
}

// DecodeElement reads an API 0.6 <osm> document and returns the element
// matching id.
func DecodeElement(r io.Reader, id ObjectID) (Element, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Element{}, fmt.Errorf("decode %s: %w", id, err)
	}
	var candidates []Element
	switch id.Kind {
	case KindNode:
		candidates = doc.Nodes
	case KindWay:
		candidates = doc.Ways
	case KindRelation:
		candidates = doc.Relations
	default:
		return Element{}, fmt.Errorf("decode %s: unknown kind", id)
	}
	for _, el := range candidates {
		if el.ID == id.Ref {
			return el, nil
		}
	}
	return Element{}, fmt.Errorf("decode %s: element missing from response", id)
}
