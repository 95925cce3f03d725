package records

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"osmautolink/internal/osm"
)

const recordColumns = "id, created_at, query, link, applied"

// Fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rawID     string
		createdAt string
		query     string
		link      sql.NullString
		applied   int
	)
	if err := row.Scan(&rawID, &createdAt, &query, &link, &applied); err != nil {
		return Record{}, err
	}
	id, err := osm.ParseObjectID(rawID)
	if err != nil {
		return Record{}, fmt.Errorf("stored id: %w", err)
	}
	ts, err := parseTimeString(createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("stored timestamp for %s: %w", id, err)
	}
	return Record{
		ID:        id,
		Timestamp: ts,
		Query:     query,
		Link:      link.String,
		Applied:   applied != 0,
	}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func idArgs(ids []osm.ObjectID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}

func dedupe(ids []osm.ObjectID) []osm.ObjectID {
	seen := make(map[osm.ObjectID]struct{}, len(ids))
	out := make([]osm.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
