package osm

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Generator is written into every osmChange and changeset document.
const Generator = "osm-autolink"

// ChangesetID identifies an open edit session on the API.
type ChangesetID int64

func (id ChangesetID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// URL links to the changeset on the OpenStreetMap website.
func (id ChangesetID) URL() string {
	return "https://www.openstreetmap.org/changeset/" + id.String()
}

// ModifySet holds edited elements grouped by kind. Its elements are bound
// to a pending changeset: no changeset id is written until Bind.
type ModifySet struct {
	groups map[Kind][]Element
}

// Add stores a copy of el in the group for its kind.
func (s *ModifySet) Add(el Element) error {
	kind := el.Kind()
	if !kind.Valid() {
		return fmt.Errorf("modify set: element %d has unknown kind %q", el.ID, kind)
	}
	if s.groups == nil {
		s.groups = make(map[Kind][]Element, len(Kinds))
	}
	s.groups[kind] = append(s.groups[kind], el.Clone())
	return nil
}

// Len counts elements across all groups.
func (s ModifySet) Len() int {
	total := 0
	for _, group := range s.groups {
		total += len(group)
	}
	return total
}

// Group returns the elements of one kind ordered by id.
func (s ModifySet) Group(kind Kind) []Element {
	group := slices.Clone(s.groups[kind])
	slices.SortFunc(group, func(a, b Element) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return group
}

// IDs lists every element in node, way, relation order.
func (s ModifySet) IDs() []ObjectID {
	ids := make([]ObjectID, 0, s.Len())
	for _, kind := range Kinds {
		for _, el := range s.Group(kind) {
			ids = append(ids, el.ObjectID())
		}
	}
	return ids
}

// Bind resolves the pending changeset to id and returns the upload document.
// The set itself is left untouched.
func (s ModifySet) Bind(id ChangesetID) (*Change, error) {
	if id <= 0 {
		return nil, errors.New("bind modify set: changeset id must be positive")
	}
	value := id.String()
	change := s.render(func(el *Element) {
		el.setAttr("changeset", value)
	})
	change.Changeset = id
	return change, nil
}

// Draft renders the document without a changeset, for previews. Elements
// carry no changeset attribute.
func (s ModifySet) Draft() *Change {
	return s.render(func(el *Element) {
		el.removeAttr("changeset")
	})
}

func (s ModifySet) render(edit func(*Element)) *Change {
	group := func(kind Kind) []Element {
		out := s.Group(kind)
		for i := range out {
			out[i] = out[i].Clone()
			out[i].XMLName = xml.Name{Local: string(kind)}
			edit(&out[i])
		}
		return out
	}
	return &Change{
		Version:   "0.6",
		Generator: Generator,
		Modify: ChangeBlock{
			Nodes:     group(KindNode),
			Ways:      group(KindWay),
			Relations: group(KindRelation),
		},
	}
}

// Change is an osmChange document with a single modify block.
type Change struct {
	XMLName   xml.Name    `xml:"osmChange"`
	Version   string      `xml:"version,attr"`
	Generator string      `xml:"generator,attr"`
	Changeset ChangesetID `xml:"-"`
	Modify    ChangeBlock `xml:"modify"`
}

// ChangeBlock groups elements of a single action.
type ChangeBlock struct {
	Nodes     []Element `xml:"node"`
	Ways      []Element `xml:"way"`
	Relations []Element `xml:"relation"`
}

// Encode renders the document with an XML declaration.
func (c *Change) Encode() ([]byte, error) {
	return encodeDocument(c)
}

// ChangesetTags is the tag set sent when opening a changeset.
type ChangesetTags []Tag

// Encode renders the <osm><changeset> body for changeset/create.
func (t ChangesetTags) Encode() ([]byte, error) {
	doc := struct {
		XMLName   xml.Name `xml:"osm"`
		Changeset struct {
			Tags []Tag `xml:"tag"`
		} `xml:"changeset"`
	}{}
	doc.Changeset.Tags = t
	return encodeDocument(doc)
}

func encodeDocument(v any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	return buf.Bytes(), nil
}
