package osm

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Kind names an OSM element type.
type Kind string

const (
	KindNode     Kind = "node"
	KindWay      Kind = "way"
	KindRelation Kind = "relation"
)

// Kinds lists element types in osmChange order.
var Kinds = []Kind{KindNode, KindWay, KindRelation}

// Valid reports whether k is one of the three element types.
func (k Kind) Valid() bool {
	switch k {
	case KindNode, KindWay, KindRelation:
		return true
	default:
		return false
	}
}

func (k Kind) rank() int {
	switch k {
	case KindNode:
		return 0
	case KindWay:
		return 1
	case KindRelation:
		return 2
	default:
		return 3
	}
}

// ObjectID identifies a remote element as "<kind>/<id>".
type ObjectID struct {
	Kind Kind
	Ref  int64
}

// NewObjectID builds an identifier, validating the kind and numeric id.
func NewObjectID(kind Kind, ref int64) (ObjectID, error) {
	if !kind.Valid() {
		return ObjectID{}, fmt.Errorf("osm id: unknown kind %q", kind)
	}
	if ref <= 0 {
		return ObjectID{}, fmt.Errorf("osm id: invalid ref %d", ref)
	}
	return ObjectID{Kind: kind, Ref: ref}, nil
}

// ParseObjectID parses the "<kind>/<id>" form.
func ParseObjectID(value string) (ObjectID, error) {
	kind, ref, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return ObjectID{}, fmt.Errorf("osm id: %q is not <kind>/<id>", value)
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return ObjectID{}, fmt.Errorf("osm id: %q: %w", value, err)
	}
	return NewObjectID(Kind(kind), n)
}

// MustParseObjectID is ParseObjectID for literals known to be valid.
func MustParseObjectID(value string) ObjectID {
	id, err := ParseObjectID(value)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ObjectID) String() string {
	return string(id.Kind) + "/" + strconv.FormatInt(id.Ref, 10)
}

// IsZero reports whether the identifier is unset.
func (id ObjectID) IsZero() bool {
	return id.Kind == "" && id.Ref == 0
}

// PublicURL links to the object on the OpenStreetMap website.
func (id ObjectID) PublicURL() string {
	return "https://www.openstreetmap.org/" + id.String()
}

// NominatimRef renders the id in the N123/W456/R789 form used by Nominatim lookups.
func (id ObjectID) NominatimRef() string {
	if id.Kind == "" {
		return ""
	}
	return strings.ToUpper(string(id.Kind[:1])) + strconv.FormatInt(id.Ref, 10)
}

// Compare orders ids by kind (node, way, relation) then numeric id.
func (id ObjectID) Compare(other ObjectID) int {
	if c := cmp.Compare(id.Kind.rank(), other.Kind.rank()); c != 0 {
		return c
	}
	return cmp.Compare(id.Ref, other.Ref)
}
