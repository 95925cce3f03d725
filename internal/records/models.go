package records

import (
	"time"

	"osmautolink/internal/osm"
)

// Record is the outcome of one link lookup.
type Record struct {
	ID        osm.ObjectID
	Timestamp time.Time
	Query     string
	// Link is empty when the lookup found nothing.
	Link    string
	Applied bool
}

// HasLink reports whether the lookup produced a candidate link.
func (r Record) HasLink() bool {
	return r.Link != ""
}

// Pending reports whether the record still awaits upload.
func (r Record) Pending() bool {
	return r.HasLink() && !r.Applied
}

// IDs extracts the object ids of recs in order.
func IDs(recs []Record) []osm.ObjectID {
	ids := make([]osm.ObjectID, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

// Filter narrows List results.
type Filter struct {
	PendingOnly bool
	// Limit caps the number of rows; zero means no limit.
	Limit int
}

// Stats summarizes the store contents.
type Stats struct {
	Total    int
	WithLink int
	Pending  int
	Applied  int
}
