package changeset

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"osmautolink/internal/logging"
	"osmautolink/internal/osm"
	"osmautolink/internal/services"
)

// ProjectURL is advertised in every changeset.
const ProjectURL = "https://github.com/Zaczero/osm-autolink"

// ChangesetAPI is the write side of the OSM API.
type ChangesetAPI interface {
	OpenChangeset(ctx context.Context, tags osm.ChangesetTags) (osm.ChangesetID, error)
	UploadChange(ctx context.Context, change *osm.Change) error
	CloseChangeset(ctx context.Context, id osm.ChangesetID) error
}

// DefaultTags returns the changeset tags for comment.
func DefaultTags(comment string) osm.ChangesetTags {
	return osm.ChangesetTags{
		{Key: "comment", Value: comment},
		{Key: "created_by", Value: osm.Generator},
		{Key: "website", Value: ProjectURL},
	}
}

// Result describes a committed changeset.
type Result struct {
	Changeset osm.ChangesetID
	Uploaded  []osm.ObjectID
}

// Uploader commits modify sets.
type Uploader struct {
	api    ChangesetAPI
	tags   osm.ChangesetTags
	logger *slog.Logger
}

// NewUploader constructs an uploader that opens changesets with tags.
func NewUploader(api ChangesetAPI, tags osm.ChangesetTags, logger *slog.Logger) *Uploader {
	return &Uploader{
		api:    api,
		tags:   tags,
		logger: logging.NewComponentLogger(logger, "changeset"),
	}
}

// Upload opens a changeset, uploads set into it and closes it. Once the
// changeset is open it is closed exactly once, on a context the caller
// cannot cancel. An empty set opens nothing.
func (u *Uploader) Upload(ctx context.Context, set osm.ModifySet) (result Result, err error) {
	ctx = services.WithStage(ctx, "upload")
	if set.Len() == 0 {
		u.logger.Info("nothing to upload")
		return Result{}, nil
	}

	id, err := u.api.OpenChangeset(ctx, u.tags)
	if err != nil {
		return Result{}, err
	}
	u.logger.Info("changeset opened",
		logging.Int64("changeset", int64(id)),
		logging.String("url", id.URL()),
	)

	defer func() {
		closeCtx := context.WithoutCancel(ctx)
		if closeErr := u.api.CloseChangeset(closeCtx, id); closeErr != nil {
			logging.WarnWithContext(u.logger, "failed to close changeset", "changeset_close_failed",
				logging.Int64("changeset", int64(id)),
				logging.Error(closeErr),
				logging.String(logging.FieldImpact, "changeset stays open until the server times it out"),
			)
			err = errors.Join(err, closeErr)
			return
		}
		u.logger.Info("changeset closed", logging.Int64("changeset", int64(id)))
	}()

	change, err := set.Bind(id)
	if err != nil {
		return Result{Changeset: id}, err
	}
	if err := u.api.UploadChange(ctx, change); err != nil {
		return Result{Changeset: id}, markRejected(err)
	}
	uploaded := set.IDs()
	u.logger.Info("changeset uploaded",
		logging.Int64("changeset", int64(id)),
		logging.Int("objects", len(uploaded)),
	)
	return Result{Changeset: id, Uploaded: uploaded}, nil
}

// markRejected tags client-error responses as rejections when the API
// client has not already classified them.
func markRejected(err error) error {
	if errors.Is(err, services.ErrRejected) {
		return err
	}
	var statusErr *services.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= http.StatusBadRequest && statusErr.StatusCode < http.StatusInternalServerError {
		return services.Wrap(services.ErrRejected, "upload", "submit changeset", "", err)
	}
	return err
}
