package workflow

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"osmautolink/internal/config"
	"osmautolink/internal/discovery"
	"osmautolink/internal/enrich"
	"osmautolink/internal/gate"
	"osmautolink/internal/linkfinder"
	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
	"osmautolink/internal/records"
	"osmautolink/internal/services"
	"osmautolink/internal/services/osmapi"
)

// Store is the part of the record store a run touches.
type Store interface {
	FilterUnseen(ctx context.Context, ids []osm.ObjectID) ([]osm.ObjectID, error)
	Append(ctx context.Context, recs []records.Record) error
	SelectPendingUpload(ctx context.Context) ([]records.Record, error)
	MarkApplied(ctx context.Context, ids []osm.ObjectID) error
}

// Discoverer produces enrichment candidates.
type Discoverer interface {
	Discover(ctx context.Context) ([]discovery.Candidate, error)
}

// OSMClient is the OpenStreetMap API surface used by uploads.
type OSMClient interface {
	UserDetails(ctx context.Context) (osmapi.User, error)
	FetchElement(ctx context.Context, id osm.ObjectID) (osm.Element, error)
	OpenChangeset(ctx context.Context, tags osm.ChangesetTags) (osm.ChangesetID, error)
	UploadChange(ctx context.Context, change *osm.Change) error
	CloseChangeset(ctx context.Context, id osm.ChangesetID) error
}

// Manager coordinates discovery, enrichment and upload.
type Manager struct {
	cfg        *config.Config
	store      Store
	base       *slog.Logger
	logger     *slog.Logger
	discoverer Discoverer
	finder     linkfinder.LinkFinder
	osm        OSMClient
	confirmer  gate.Confirmer
	clock      enrich.Clock
	out        io.Writer
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithDiscoverer replaces the Overpass-backed discoverer.
func WithDiscoverer(d Discoverer) ManagerOption {
	return func(m *Manager) {
		m.discoverer = d
	}
}

// WithLinkFinder replaces the configured link finder backend.
func WithLinkFinder(f linkfinder.LinkFinder) ManagerOption {
	return func(m *Manager) {
		m.finder = f
	}
}

// WithOSMClient replaces the OSM API client.
func WithOSMClient(c OSMClient) ManagerOption {
	return func(m *Manager) {
		m.osm = c
	}
}

// WithConfirmer sets the policy deciding what happens to pending records.
func WithConfirmer(c gate.Confirmer) ManagerOption {
	return func(m *Manager) {
		m.confirmer = c
	}
}

// WithClock replaces the pacing clock (used in tests).
func WithClock(c enrich.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithOutput redirects operator messages, stdout by default.
func WithOutput(w io.Writer) ManagerOption {
	return func(m *Manager) {
		if w != nil {
			m.out = w
		}
	}
}

// NewManager constructs a workflow manager. Collaborators not supplied
// through options are built from cfg; the link finder is only built when
// enrichment actually runs so upload-only runs need no LLM credentials.
func NewManager(cfg *config.Config, store Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		store:  store,
		base:   logger,
		logger: logging.NewComponentLogger(logger, "workflow"),
		clock:  enrich.SystemClock{},
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.discoverer == nil {
		m.discoverer = discovery.NewFromConfig(cfg, logger)
	}
	if m.osm == nil {
		m.osm = NewOSMClient(cfg)
	}
	return m
}

// NewOSMClient builds the API client from configuration.
func NewOSMClient(cfg *config.Config) *osmapi.Client {
	return osmapi.NewClient(osmapi.Config{
		BaseURL:        cfg.OSM.APIURL,
		Token:          cfg.OSM.Token,
		RequestTimeout: time.Duration(cfg.OSM.RequestTimeoutSeconds) * time.Second,
		UploadTimeout:  time.Duration(cfg.OSM.UploadTimeoutSeconds) * time.Second,
	})
}

// RunOptions selects which halves of a run execute.
type RunOptions struct {
	SkipDiscovery bool
}

// Report summarizes a full run.
type Report struct {
	RunID    string
	Discover DiscoverReport
	Upload   UploadReport
}

// Run discovers and enriches new candidates, then uploads pending records.
func (m *Manager) Run(ctx context.Context, opts RunOptions) (Report, error) {
	ctx, runID := m.begin(ctx)
	report := Report{RunID: runID}
	logger := logging.WithContext(ctx, m.logger)
	logger.Info("run started",
		logging.Bool("skip_discovery", opts.SkipDiscovery),
		logging.Bool("dry_run", m.cfg.OSM.DryRun),
	)

	if !opts.SkipDiscovery {
		discovered, err := m.Discover(ctx)
		report.Discover = discovered
		if err != nil {
			return report, err
		}
	}
	uploaded, err := m.Upload(ctx)
	report.Upload = uploaded
	if err != nil {
		return report, err
	}
	logger.Info("run finished")
	return report, nil
}

// begin tags ctx with a run id unless the caller already did.
func (m *Manager) begin(ctx context.Context) (context.Context, string) {
	if id, ok := services.RequestIDFromContext(ctx); ok {
		return ctx, id
	}
	id := uuid.NewString()
	return services.WithRequestID(ctx, id), id
}
