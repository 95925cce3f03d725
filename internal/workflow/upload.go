package workflow

import (
	"context"
	"fmt"
	"slices"

	"osmautolink/internal/changeset"
	"osmautolink/internal/gate"
	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
	"osmautolink/internal/records"
	"osmautolink/internal/services"
)

// UploadReport summarizes the confirmation and upload half of a run.
type UploadReport struct {
	Changeset osm.ChangesetID
	Uploaded  []osm.ObjectID
	Conflicts []osm.ObjectID
	Excluded  []osm.ObjectID
	Aborted   bool
	DryRun    bool
}

// Upload asks the confirmer about the pending records until it proceeds,
// aborts, or nothing is left, and commits them on proceed.
func (m *Manager) Upload(ctx context.Context) (UploadReport, error) {
	ctx, _ = m.begin(ctx)
	ctx = services.WithStage(ctx, "upload")
	logger := logging.WithContext(ctx, m.logger)
	report := UploadReport{DryRun: m.cfg.OSM.DryRun}

	if m.confirmer == nil {
		return report, services.Wrap(services.ErrConfiguration, "upload", "confirm", "no confirmation policy configured", nil)
	}
	if err := m.greet(ctx); err != nil {
		return report, err
	}

	for {
		pending, err := m.store.SelectPendingUpload(ctx)
		if err != nil {
			return report, fmt.Errorf("select pending records: %w", err)
		}
		pending = withoutIDs(pending, report.Excluded)
		if len(pending) == 0 {
			fmt.Fprintln(m.out, "Nothing more to upload, bye!")
			return report, nil
		}

		decision, err := m.confirmer.Confirm(ctx, pending)
		if err != nil {
			return report, err
		}
		logger.Debug("confirmation received",
			logging.String("action", decision.Action.String()),
			logging.Int("pending", len(pending)),
		)

		switch decision.Action {
		case gate.Exclude:
			for _, id := range decision.Exclude {
				fmt.Fprintf(m.out, "Ignoring item %s\n", id)
			}
			if !m.cfg.OSM.DryRun {
				if err := m.store.MarkApplied(ctx, decision.Exclude); err != nil {
					return report, fmt.Errorf("ignore records: %w", err)
				}
			}
			report.Excluded = append(report.Excluded, decision.Exclude...)
		case gate.Abort:
			fmt.Fprintln(m.out, "Aborting...")
			report.Aborted = true
			return report, nil
		case gate.Proceed:
			return m.commit(ctx, pending, report)
		default:
			return report, fmt.Errorf("unknown confirmation action %d", decision.Action)
		}
	}
}

// withoutIDs drops excluded records. Exclusions are persisted through
// MarkApplied except in a dry run, where they only live for this session.
func withoutIDs(pending []records.Record, excluded []osm.ObjectID) []records.Record {
	if len(excluded) == 0 {
		return pending
	}
	return slices.DeleteFunc(pending, func(rec records.Record) bool {
		return slices.Contains(excluded, rec.ID)
	})
}

// greet prints the authenticated account. A dry run without a token skips
// it since nothing will be written.
func (m *Manager) greet(ctx context.Context) error {
	if err := m.cfg.RequireOSMToken(); err != nil {
		if m.cfg.OSM.DryRun {
			return nil
		}
		return services.Wrap(services.ErrConfiguration, "upload", "check token", "", err)
	}
	user, err := m.osm.UserDetails(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "👤 Welcome, %s!\n", user.DisplayName)
	return nil
}

// commit builds the changeset from pending and uploads it. Only the objects
// actually submitted are marked applied; conflicts stay pending.
func (m *Manager) commit(ctx context.Context, pending []records.Record, report UploadReport) (UploadReport, error) {
	logger := logging.WithContext(ctx, m.logger)
	build, err := changeset.NewBuilder(m.osm, m.cfg.OSM.FetchConcurrency, m.base).Build(ctx, pending)
	if err != nil {
		return report, err
	}
	report.Conflicts = build.Conflicts
	if build.Set.Len() == 0 {
		fmt.Fprintln(m.out, "Every pending object already has a website, nothing to upload")
		return report, nil
	}

	if m.cfg.OSM.DryRun {
		doc, err := build.Set.Draft().Encode()
		if err != nil {
			return report, err
		}
		logger.Info("dry run, changeset not uploaded",
			logging.Int("objects", build.Set.Len()),
			logging.String("osm_change", string(doc)),
		)
		fmt.Fprintf(m.out, "Dry run: %d objects prepared, nothing uploaded\n", build.Set.Len())
		return report, nil
	}

	uploader := changeset.NewUploader(m.osm, changeset.DefaultTags(m.cfg.OSM.ChangesetComment), m.base)
	result, err := uploader.Upload(ctx, build.Set)
	report.Changeset = result.Changeset
	if result.Changeset != 0 {
		fmt.Fprintf(m.out, "🌐 Changeset: %s\n", result.Changeset.URL())
	}
	if err != nil {
		return report, err
	}

	// The upload is committed remotely; record it even if the caller gave up.
	if err := m.store.MarkApplied(context.WithoutCancel(ctx), result.Uploaded); err != nil {
		return report, fmt.Errorf("mark uploaded records applied: %w", err)
	}
	report.Uploaded = result.Uploaded
	fmt.Fprintln(m.out, "Done! Done! Done!")
	return report, nil
}
