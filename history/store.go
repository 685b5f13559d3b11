package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nicksriv/leadflow/profile"
	"github.com/nicksriv/leadflow/query"
)

// Schema is append-only: rows are written once and never updated.
const Schema = `
CREATE TABLE IF NOT EXISTS view_history (
    id            TEXT PRIMARY KEY,
    owner_id      TEXT NOT NULL,
    profile_id    TEXT NOT NULL,
    profile_url   TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    headline      TEXT NOT NULL DEFAULT '',
    location      TEXT NOT NULL DEFAULT '',
    avatar        TEXT NOT NULL DEFAULT '',
    criteria_json TEXT NOT NULL DEFAULT '{}',
    search_key    TEXT NOT NULL DEFAULT '',
    viewed_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_owner_viewed ON view_history(owner_id, viewed_at DESC);
CREATE INDEX IF NOT EXISTS idx_history_owner_key ON view_history(owner_id, search_key);
`

// ApplySchema creates the history table.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Store persists view events in SQLite.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// NewStore wraps an already-opened database.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

// Record appends one view event. The search key is derived from the
// criteria here so callers cannot write inconsistent keys.
func (s *Store) Record(ctx context.Context, ownerID string, c query.Criteria, p profile.Candidate, viewedAt time.Time) (*Entry, error) {
	if viewedAt.IsZero() {
		viewedAt = time.Now().UTC()
	}
	e := Entry{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		ProfileID:  profileID(p),
		ProfileURL: p.URL,
		Name:       p.Name,
		Headline:   p.Headline,
		Location:   p.Location,
		Avatar:     p.AvatarURL,
		Criteria:   c,
		SearchKey:  SearchKey(c),
		ViewedAt:   viewedAt,
	}
	criteria, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("history: marshal criteria: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO view_history (
			id, owner_id, profile_id, profile_url, name, headline, location,
			avatar, criteria_json, search_key, viewed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.OwnerID, e.ProfileID, e.ProfileURL, e.Name, e.Headline,
		e.Location, e.Avatar, string(criteria), e.SearchKey, e.ViewedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("history: record: %w", err)
	}
	return &e, nil
}

// Grouped returns an owner's views inside the range, grouped by search
// key. Within a group each profile appears once with its latest view;
// Count is the number of distinct profiles. Groups and members are
// ordered newest first.
func (s *Store) Grouped(ctx context.Context, ownerID string, r Range) ([]*Group, error) {
	q := `
		SELECT id, profile_id, profile_url, name, headline, location, avatar,
		       criteria_json, search_key, viewed_at
		FROM view_history WHERE owner_id = ?`
	args := []any{ownerID}
	if !r.Start.IsZero() {
		q += ` AND viewed_at >= ?`
		args = append(args, r.Start.UnixMilli())
	}
	if !r.End.IsZero() {
		q += ` AND viewed_at <= ?`
		args = append(args, r.End.UnixMilli())
	}
	q += ` ORDER BY viewed_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: grouped: %w", err)
	}
	defer rows.Close()

	var (
		order  []string
		groups = map[string]*Group{}
		seen   = map[string]map[string]bool{}
	)
	for rows.Next() {
		var (
			e        Entry
			criteria string
			viewed   int64
		)
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.ProfileURL, &e.Name,
			&e.Headline, &e.Location, &e.Avatar, &criteria, &e.SearchKey, &viewed); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.OwnerID = ownerID
		e.ViewedAt = time.UnixMilli(viewed)
		if err := json.Unmarshal([]byte(criteria), &e.Criteria); err != nil {
			s.log.Warn("history: bad criteria row", "id", e.ID)
		}

		g, ok := groups[e.SearchKey]
		if !ok {
			g = &Group{SearchKey: e.SearchKey, Criteria: e.Criteria, LatestAt: e.ViewedAt}
			groups[e.SearchKey] = g
			seen[e.SearchKey] = map[string]bool{}
			order = append(order, e.SearchKey)
		}
		// Rows arrive newest first, so the first sighting of a profile
		// within a group is its latest view.
		if seen[e.SearchKey][e.ProfileID] {
			continue
		}
		seen[e.SearchKey][e.ProfileID] = true
		g.Profiles = append(g.Profiles, e)
		g.Count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: grouped: %w", err)
	}

	out := make([]*Group, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out, nil
}

// Stats summarises an owner's whole history.
func (s *Store) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	var (
		total, distinct int
		last            sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT search_key), MAX(viewed_at)
		FROM view_history WHERE owner_id = ?`, ownerID).
		Scan(&total, &distinct, &last)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	st := &Stats{TotalViews: total, DistinctSearches: distinct}
	if last.Valid {
		st.LastViewedAt = time.UnixMilli(last.Int64)
	}
	return st, nil
}

// DeleteOlderThan removes an owner's views older than the cutoff and
// returns how many rows were dropped.
func (s *Store) DeleteOlderThan(ctx context.Context, ownerID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM view_history WHERE owner_id = ? AND viewed_at < ?`,
		ownerID, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: delete: %w", err)
	}
	return n, nil
}

// PruneOlderThan removes views older than the cutoff across all owners.
// Backs the scheduled retention job.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM view_history WHERE viewed_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return n, nil
}

// profileID prefers the public identifier and falls back to the
// normalized URL so dedupe still works for rows without one.
func profileID(p profile.Candidate) string {
	if p.ExternalID != "" {
		return p.ExternalID
	}
	return profile.NormalizeURL(p.URL)
}
