package workflow

import (
	"context"
	"fmt"

	"osmautolink/internal/discovery"
	"osmautolink/internal/enrich"
	"osmautolink/internal/linkfinder"
	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
)

// DiscoverReport summarizes the discovery and enrichment half of a run.
type DiscoverReport struct {
	Discovered int
	New        int
	Enrichment enrich.Summary
}

// Discover queries for candidates, drops every id the store has already
// recorded and looks up links for the rest.
func (m *Manager) Discover(ctx context.Context) (DiscoverReport, error) {
	ctx, _ = m.begin(ctx)
	logger := logging.WithContext(ctx, m.logger)
	var report DiscoverReport

	candidates, err := m.discoverer.Discover(ctx)
	if err != nil {
		return report, err
	}
	report.Discovered = len(candidates)

	unseen, err := m.store.FilterUnseen(ctx, discovery.IDs(candidates))
	if err != nil {
		return report, fmt.Errorf("filter processed candidates: %w", err)
	}
	fresh := keepCandidates(candidates, unseen)
	report.New = len(fresh)
	logger.Info("filtered processed candidates",
		logging.Int("discovered", report.Discovered),
		logging.Int("new", report.New),
	)
	if len(fresh) == 0 {
		return report, nil
	}

	finder, err := m.linkFinder()
	if err != nil {
		return report, err
	}
	pacer := enrich.Pacer{
		BatchSize: m.cfg.EnrichmentBatchSize(),
		Window:    m.cfg.EnrichmentWindow(),
		Clock:     m.clock,
	}
	summary, err := enrich.New(finder, m.store, pacer, m.base).Run(ctx, fresh)
	report.Enrichment = summary
	return report, err
}

func (m *Manager) linkFinder() (linkfinder.LinkFinder, error) {
	if m.finder != nil {
		return m.finder, nil
	}
	finder, err := linkfinder.New(m.cfg)
	if err != nil {
		return nil, err
	}
	m.logger.Info("link finder ready", logging.String("backend", finder.Name()))
	m.finder = finder
	return finder, nil
}

// keepCandidates returns the candidates whose ids appear in keep, in
// discovery order and without repeats.
func keepCandidates(candidates []discovery.Candidate, keep []osm.ObjectID) []discovery.Candidate {
	wanted := make(map[osm.ObjectID]struct{}, len(keep))
	for _, id := range keep {
		wanted[id] = struct{}{}
	}
	out := make([]discovery.Candidate, 0, len(keep))
	for _, c := range candidates {
		if _, ok := wanted[c.ID]; !ok {
			continue
		}
		delete(wanted, c.ID)
		out = append(out, c)
	}
	return out
}
