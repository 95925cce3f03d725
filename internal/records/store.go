package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"osmautolink/internal/config"
	"osmautolink/internal/osm"
)

// ErrLocked is returned by Open when another process holds the store.
var ErrLocked = errors.New("record store is locked by another process")

// ErrDuplicate is returned by Append when a record already exists.
var ErrDuplicate = errors.New("record already exists")

// Store manages record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// SQLite's default variable limit is far above this; chunking keeps
	// statements readable in logs.
	filterChunkSize = 500
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open takes the single-writer lock and initializes or connects to the
// record database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.LockPath())
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	var errs []error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release store lock: %w", err))
		}
	}
	return errors.Join(errs...)
}

// FilterUnseen returns the ids in candidates that have never been recorded,
// in input order and without duplicates.
func (s *Store) FilterUnseen(ctx context.Context, candidates []osm.ObjectID) ([]osm.ObjectID, error) {
	unique := dedupe(candidates)
	seen := make(map[osm.ObjectID]struct{})
	for start := 0; start < len(unique); start += filterChunkSize {
		chunk := unique[start:min(start+filterChunkSize, len(unique))]
		query := "SELECT id FROM records WHERE id IN (" + makePlaceholders(len(chunk)) + ")"
		err := retryOnBusy(ctx, func() error {
			rows, err := s.db.QueryContext(ctx, query, idArgs(chunk)...)
			if err != nil {
				return err
			}
			defer rows.Close()
			for rows.Next() {
				var raw string
				if err := rows.Scan(&raw); err != nil {
					return err
				}
				id, err := osm.ParseObjectID(raw)
				if err != nil {
					return fmt.Errorf("stored id: %w", err)
				}
				seen[id] = struct{}{}
			}
			return rows.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("filter unseen: %w", err)
		}
	}

	unseen := make([]osm.ObjectID, 0, len(unique))
	for _, id := range unique {
		if _, ok := seen[id]; !ok {
			unseen = append(unseen, id)
		}
	}
	return unseen, nil
}

// Append inserts recs in a single transaction. Either every record is
// persisted or none is.
func (s *Store) Append(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}
	for _, rec := range recs {
		if rec.ID.IsZero() {
			return errors.New("append: record without id")
		}
	}
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO records ("+recordColumns+") VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range recs {
			var exists int
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(1) FROM records WHERE id = ?", rec.ID.String(),
			).Scan(&exists); err != nil {
				return err
			}
			if exists > 0 {
				return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
			}
			if _, err := stmt.ExecContext(ctx,
				rec.ID.String(),
				formatTime(rec.Timestamp),
				rec.Query,
				nullableString(rec.Link),
				boolToInt(rec.Applied),
			); err != nil {
				return fmt.Errorf("insert %s: %w", rec.ID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("append records: %w", err)
	}
	return nil
}

// SelectPendingUpload returns every record with a link that has not been
// applied yet, oldest first.
func (s *Store) SelectPendingUpload(ctx context.Context) ([]Record, error) {
	recs, err := s.query(ctx,
		"SELECT "+recordColumns+" FROM records WHERE link IS NOT NULL AND applied = 0 ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("select pending: %w", err)
	}
	return recs, nil
}

// MarkApplied flags ids as applied in one transaction. Unknown ids are
// ignored and repeated calls are harmless.
func (s *Store) MarkApplied(ctx context.Context, ids []osm.ObjectID) error {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil
	}
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		for start := 0; start < len(unique); start += filterChunkSize {
			chunk := unique[start:min(start+filterChunkSize, len(unique))]
			if _, err := tx.ExecContext(ctx,
				"UPDATE records SET applied = 1 WHERE id IN ("+makePlaceholders(len(chunk))+")",
				idArgs(chunk)...,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("mark applied: %w", err)
	}
	return nil
}

// Get returns the record for id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id osm.ObjectID) (*Record, error) {
	recs, err := s.query(ctx,
		"SELECT "+recordColumns+" FROM records WHERE id = ?", id.String())
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT " + recordColumns + " FROM records")
	if filter.PendingOnly {
		sb.WriteString(" WHERE link IS NOT NULL AND applied = 0")
	}
	sb.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}
	recs, err := s.query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return recs, nil
}

// Stats counts records by state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN link IS NOT NULL THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN link IS NOT NULL AND applied = 0 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(applied), 0)
        FROM records`).Scan(&stats.Total, &stats.WithLink, &stats.Pending, &stats.Applied)
	})
	if err != nil {
		return Stats{}, fmt.Errorf("record stats: %w", err)
	}
	return stats, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	var recs []Record
	err := retryOnBusy(ctx, func() error {
		recs = recs[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return rows.Err()
	})
	return recs, err
}
