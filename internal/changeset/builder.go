package changeset

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
	"osmautolink/internal/records"
	"osmautolink/internal/services"
)

const defaultFetchConcurrency = 8

// ElementFetcher loads the current version of an object.
type ElementFetcher interface {
	FetchElement(ctx context.Context, id osm.ObjectID) (osm.Element, error)
}

// Build is the outcome of preparing a changeset.
type Build struct {
	Set osm.ModifySet
	// Included lists the ids in Set in upload order.
	Included []osm.ObjectID
	// Conflicts lists ids skipped because they already carry a website.
	Conflicts []osm.ObjectID
}

// Builder assembles modify sets from pending records.
type Builder struct {
	fetcher     ElementFetcher
	concurrency int
	logger      *slog.Logger
}

// NewBuilder constructs a builder fetching at most concurrency objects at once.
func NewBuilder(fetcher ElementFetcher, concurrency int, logger *slog.Logger) *Builder {
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &Builder{
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(logger, "changeset"),
	}
}

// Build fetches every record's object and tags it with the record's link.
// Any fetch failure aborts the build.
func (b *Builder) Build(ctx context.Context, pending []records.Record) (Build, error) {
	ctx = services.WithStage(ctx, "build")
	fetched := make([]osm.Element, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, rec := range pending {
		g.Go(func() error {
			el, err := b.fetcher.FetchElement(gctx, rec.ID)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", rec.ID, err)
			}
			fetched[i] = el
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Build{}, err
	}

	var out Build
	for i, rec := range pending {
		el := fetched[i]
		if current, ok := el.Tag(osm.WebsiteKey); ok && current != "" {
			b.logger.Info("skipping object that already has a website",
				logging.String(logging.FieldObjectID, rec.ID.String()),
				logging.String("current", current),
				logging.String("proposed", rec.Link),
			)
			out.Conflicts = append(out.Conflicts, rec.ID)
			continue
		}
		el.SetTag(osm.WebsiteKey, rec.Link)
		if err := out.Set.Add(el); err != nil {
			return Build{}, err
		}
	}
	out.Included = out.Set.IDs()
	b.logger.Info("changeset prepared",
		logging.Int("included", len(out.Included)),
		logging.Int("conflicts", len(out.Conflicts)),
	)
	return out, nil
}
