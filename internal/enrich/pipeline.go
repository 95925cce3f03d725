package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/destel/rill"
	"github.com/dustin/go-humanize"

	"osmautolink/internal/discovery"
	"osmautolink/internal/linkfinder"
	"osmautolink/internal/logging"
	"osmautolink/internal/records"
	"osmautolink/internal/services"
)

// Appender persists a batch of records atomically.
type Appender interface {
	Append(ctx context.Context, recs []records.Record) error
}

// Summary reports what a run did.
type Summary struct {
	Processed int
	Found     int
	Batches   int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s processed, %s links found in %s batches",
		humanize.Comma(int64(s.Processed)),
		humanize.Comma(int64(s.Found)),
		humanize.Comma(int64(s.Batches)),
	)
}

// Pipeline looks up links and records the results.
type Pipeline struct {
	finder linkfinder.LinkFinder
	store  Appender
	pacer  Pacer
	logger *slog.Logger
}

// New builds a pipeline.
func New(finder linkfinder.LinkFinder, store Appender, pacer Pacer, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		finder: finder,
		store:  store,
		pacer:  pacer,
		logger: logging.NewComponentLogger(logger, "enrich"),
	}
}

// Run processes candidates batch by batch. A failed Append stops the run;
// earlier batches stay persisted and the failed batch will be discovered
// again next time.
func (p *Pipeline) Run(ctx context.Context, candidates []discovery.Candidate) (Summary, error) {
	ctx = services.WithStage(ctx, "enrich")
	var summary Summary
	if len(candidates) == 0 {
		p.logger.Info("no new candidates to look up")
		return summary, nil
	}
	batches := p.pacer.Batches(len(candidates))
	started := p.pacer.clock().Now()
	p.logger.Info("starting link lookups",
		logging.String("candidates", humanize.Comma(int64(len(candidates)))),
		logging.Int("batch_size", p.pacer.BatchSize),
		logging.Int("batches", len(batches)),
		logging.Duration("window", p.pacer.Window),
	)

	err := p.pacer.Run(ctx, len(candidates), func(ctx context.Context, batch Batch) error {
		recs, err := p.lookupBatch(ctx, candidates[batch.Start:batch.End])
		if err != nil {
			return err
		}
		// Cancelled lookups look like misses; never persist them as such.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.store.Append(ctx, recs); err != nil {
			return fmt.Errorf("persist batch %d/%d: %w", batch.Index+1, batch.Count, err)
		}
		found := 0
		for _, rec := range recs {
			if rec.HasLink() {
				found++
			}
		}
		summary.Processed += len(recs)
		summary.Found += found
		summary.Batches++
		p.logger.Info("batch saved",
			logging.String("batch", fmt.Sprintf("%d/%d", batch.Index+1, batch.Count)),
			logging.Int("size", len(recs)),
			logging.Int("found", found),
		)
		if batch.Index < batch.Count-1 {
			p.logger.Info("waiting for rate window", logging.Duration("window", p.pacer.Window))
		}
		return nil
	})
	elapsed := p.pacer.clock().Now().Sub(started)
	if err != nil {
		return summary, err
	}
	p.logger.Info("link lookups complete",
		logging.String("summary", summary.String()),
		logging.Duration("elapsed", elapsed),
	)
	return summary, nil
}

func (p *Pipeline) lookupBatch(ctx context.Context, batch []discovery.Candidate) ([]records.Record, error) {
	results := rill.OrderedMap(rill.FromSlice(batch, nil), len(batch), func(c discovery.Candidate) (records.Record, error) {
		link := p.lookup(ctx, c)
		return records.Record{
			ID:        c.ID,
			Timestamp: p.pacer.clock().Now(),
			Query:     c.Query,
			Link:      link,
		}, nil
	})
	return rill.ToSlice(results)
}

// lookup never fails: errors and panics are logged and become an empty link.
func (p *Pipeline) lookup(ctx context.Context, c discovery.Candidate) (link string) {
	ctx = services.WithObjectID(ctx, c.ID.String())
	logger := logging.WithContext(ctx, p.logger)
	defer func() {
		if r := recover(); r != nil {
			logging.WarnWithContext(logger, "link lookup panicked", "lookup_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldImpact, "recorded without a link"),
			)
			link = ""
		}
	}()

	logger.Debug("searching for a link", logging.String("query", c.Query))
	started := time.Now()
	found, err := p.finder.FindLink(ctx, c.Query)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "link lookup failed", "lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the link finder credentials and quota"),
				logging.String(logging.FieldImpact, "recorded without a link"),
			)
		}
		return ""
	}
	if found != "" {
		logger.Info("found a matching link",
			logging.String("link", found),
			logging.String("query", c.Query),
			logging.Duration("took", time.Since(started)),
		)
	}
	return found
}
