package discovery

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"osmautolink/internal/config"
	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
	"osmautolink/internal/services/nominatim"
	"osmautolink/internal/services/overpass"
)

// Candidate is a POI awaiting a link lookup.
type Candidate struct {
	ID    osm.ObjectID
	Query string
}

// IDs extracts candidate ids in order.
func IDs(candidates []Candidate) []osm.ObjectID {
	ids := make([]osm.ObjectID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}

// Querier runs an Overpass query.
type Querier interface {
	Query(ctx context.Context, query string) ([]overpass.Element, error)
}

// AddressLookup resolves postal addresses for objects.
type AddressLookup interface {
	Lookup(ctx context.Context, ids []osm.ObjectID) ([]nominatim.Place, error)
}

// Options configures a Discoverer.
type Options struct {
	AreaRelationID int64
	TimeoutSeconds int
	Query          QueryOptions
}

// Discoverer produces candidates for enrichment.
type Discoverer struct {
	querier Querier
	lookup  AddressLookup
	opts    Options
	logger  *slog.Logger
}

// New builds a Discoverer. lookup may be nil to skip address fill-in.
func New(querier Querier, lookup AddressLookup, opts Options, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		querier: querier,
		lookup:  lookup,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "discovery"),
	}
}

// NewFromConfig wires the Overpass and (optional) Nominatim clients.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Discoverer {
	querier := overpass.NewClient(
		cfg.Overpass.InterpreterURL,
		time.Duration(cfg.Overpass.TimeoutSeconds)*time.Second,
	)
	var lookup AddressLookup
	if cfg.Nominatim.Enabled {
		lookup = nominatim.NewClient(cfg.Nominatim.URL, nominatim.WithBatchSize(cfg.Nominatim.BatchSize))
	}
	return New(querier, lookup, Options{
		AreaRelationID: cfg.Overpass.AreaRelationID,
		TimeoutSeconds: cfg.Overpass.TimeoutSeconds,
		Query: QueryOptions{
			RequiredKeys:    cfg.Overpass.RequiredKeys,
			DefaultCity:     cfg.Discovery.DefaultCity,
			DefaultProvince: cfg.Discovery.DefaultProvince,
		},
	}, logger)
}

type poi struct {
	id   osm.ObjectID
	tags []osm.Tag
}

// Discover queries Overpass and returns one candidate per qualifying POI in
// server order.
func (d *Discoverer) Discover(ctx context.Context) ([]Candidate, error) {
	d.logger.Info("querying overpass", logging.Int64("area_relation_id", d.opts.AreaRelationID))
	elements, err := d.querier.Query(ctx, overpass.MissingWebsiteQuery(d.opts.AreaRelationID, d.opts.TimeoutSeconds))
	if err != nil {
		return nil, err
	}

	pois := make([]poi, 0, len(elements))
	seen := make(map[osm.ObjectID]struct{}, len(elements))
	for _, el := range elements {
		if !d.qualifies(el.Tags) {
			continue
		}
		id, err := el.ObjectID()
		if err != nil {
			d.logger.Debug("skipping element", logging.Error(err))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pois = append(pois, poi{id: id, tags: slices.Clone(el.Tags)})
	}

	d.fillAddresses(ctx, pois)

	candidates := make([]Candidate, len(pois))
	for i, p := range pois {
		candidates[i] = Candidate{ID: p.id, Query: BuildQuery(p.tags, d.opts.Query)}
	}
	d.logger.Info("overpass candidates",
		logging.Int("elements", len(elements)),
		logging.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

func (d *Discoverer) qualifies(tags overpass.Tags) bool {
	if !tags.Has("name") {
		return false
	}
	for _, key := range d.opts.Query.RequiredKeys {
		if tags.Has(key) {
			return true
		}
	}
	return false
}

// Nominatim address keys copied into empty addr:* tags.
var addressKeys = []struct {
	tag     string
	sources []string
}{
	{"addr:street", []string{"road", "pedestrian", "square"}},
	{"addr:housenumber", []string{"house_number"}},
	{"addr:postcode", []string{"postcode"}},
	{"addr:city", []string{"city", "town", "village"}},
}

// fillAddresses completes street addresses for POIs that lack one. Lookup
// failures only cost query detail, so they are logged and ignored.
func (d *Discoverer) fillAddresses(ctx context.Context, pois []poi) {
	if d.lookup == nil {
		return
	}
	var missing []osm.ObjectID
	index := make(map[osm.ObjectID]int)
	for i, p := range pois {
		if hasTag(p.tags, "addr:street") || hasTag(p.tags, "addr:place") {
			continue
		}
		missing = append(missing, p.id)
		index[p.id] = i
	}
	if len(missing) == 0 {
		return
	}
	places, err := d.lookup.Lookup(ctx, missing)
	if err != nil {
		logging.WarnWithContext(d.logger, "address lookup failed", "nominatim_lookup_failed",
			logging.Error(err),
			logging.Int("objects", len(missing)),
			logging.String(logging.FieldImpact, "queries are built without street addresses"),
		)
		return
	}
	filled := 0
	for _, place := range places {
		id, err := place.ObjectID()
		if err != nil {
			continue
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		before := len(pois[i].tags)
		for _, key := range addressKeys {
			if hasTag(pois[i].tags, key.tag) {
				continue
			}
			for _, source := range key.sources {
				if value := place.Address[source]; value != "" {
					pois[i].tags = append(pois[i].tags, osm.Tag{Key: key.tag, Value: value})
					break
				}
			}
		}
		if len(pois[i].tags) > before {
			filled++
		}
	}
	d.logger.Info("address lookup complete",
		logging.Int("requested", len(missing)),
		logging.Int("filled", filled),
	)
}

func hasTag(tags []osm.Tag, key string) bool {
	for _, tag := range tags {
		if tag.Key == key {
			return true
		}
	}
	return false
}
