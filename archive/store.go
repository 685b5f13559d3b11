package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"

	"github.com/nicksriv/leadflow/profile"
)

// Schema keys rows on (owner_id, normalized_url). The version column backs
// the optimistic conditional update in Upsert.
const Schema = `
CREATE TABLE IF NOT EXISTS archived_profiles (
    id                TEXT PRIMARY KEY,
    owner_id          TEXT NOT NULL,
    url               TEXT NOT NULL,
    normalized_url    TEXT NOT NULL,
    name              TEXT NOT NULL DEFAULT '',
    headline          TEXT NOT NULL DEFAULT '',
    location          TEXT NOT NULL DEFAULT '',
    company           TEXT NOT NULL DEFAULT '',
    email             TEXT NOT NULL DEFAULT '',
    email_is_fallback INTEGER NOT NULL DEFAULT 0,
    avatar            TEXT NOT NULL DEFAULT '',
    about             TEXT NOT NULL DEFAULT '',
    skills_json       TEXT NOT NULL DEFAULT '[]',
    scraped_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL,
    version           INTEGER NOT NULL DEFAULT 1,
    UNIQUE (owner_id, normalized_url)
);
CREATE INDEX IF NOT EXISTS idx_archived_owner ON archived_profiles(owner_id, updated_at DESC);
`

// ApplySchema creates the archive table.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Store persists archive rows in SQLite.
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

// Upsert folds a freshly extracted profile into the archive under the
// non-regression merge policy. Atomic per key: a conditional update on the
// version column detects concurrent writers; a detected race is retried
// once against a fresh read, then surfaces as ConflictError.
func (s *Store) Upsert(ctx context.Context, ownerID, url string, p profile.Profile) (*Archived, error) {
	incoming := fromProfile(ownerID, url, p)

	return retry.DoWithData(
		func() (*Archived, error) { return s.upsertOnce(ctx, incoming) },
		retry.Context(ctx),
		retry.Attempts(2), // single retry against a fresh read
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var c *ConflictError
			return errors.As(err, &c)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debug("archive upsert retry", "owner", ownerID, "url", url, "attempt", n+1)
		}),
	)
}

func (s *Store) upsertOnce(ctx context.Context, incoming Archived) (*Archived, error) {
	existing, err := s.getByKey(ctx, incoming.OwnerID, incoming.NormalizedURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if existing == nil {
		row := incoming
		row.ID = uuid.NewString()
		row.UpdatedAt = now
		row.Version = 1
		if err := s.insert(ctx, &row); err != nil {
			if isUniqueViolation(err) {
				// Another writer inserted the key between read and write.
				return nil, &ConflictError{OwnerID: incoming.OwnerID, URL: incoming.URL}
			}
			return nil, err
		}
		return &row, nil
	}

	merged := merge(*existing, incoming)
	merged.UpdatedAt = now
	res, err := s.db.ExecContext(ctx, `
		UPDATE archived_profiles SET
			name = ?, headline = ?, location = ?, company = ?,
			email = ?, email_is_fallback = ?, avatar = ?, about = ?,
			skills_json = ?, scraped_at = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		merged.Name, merged.Headline, merged.Location, merged.Company,
		emailAddress(merged.Email), boolInt(merged.Email.Tag == profile.EmailFallback),
		merged.Avatar, merged.About, jsonArray(merged.Skills),
		merged.ScrapedAt.UnixMilli(), now.UnixMilli(),
		existing.ID, existing.Version)
	if err != nil {
		return nil, fmt.Errorf("archive: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, &ConflictError{OwnerID: incoming.OwnerID, URL: incoming.URL}
	}
	merged.Version = existing.Version + 1
	return &merged, nil
}

func (s *Store) insert(ctx context.Context, row *Archived) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO archived_profiles (
			id, owner_id, url, normalized_url, name, headline, location, company,
			email, email_is_fallback, avatar, about, skills_json,
			scraped_at, updated_at, version
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.ID, row.OwnerID, row.URL, row.NormalizedURL,
		row.Name, row.Headline, row.Location, row.Company,
		emailAddress(row.Email), boolInt(row.Email.Tag == profile.EmailFallback),
		row.Avatar, row.About, jsonArray(row.Skills),
		row.ScrapedAt.UnixMilli(), row.UpdatedAt.UnixMilli(), row.Version)
	if err != nil {
		return fmt.Errorf("archive: insert: %w", err)
	}
	return nil
}

// Get returns the archive row for one owner and profile URL, nil if absent.
func (s *Store) Get(ctx context.Context, ownerID, url string) (*Archived, error) {
	return s.getByKey(ctx, ownerID, profile.NormalizeURL(url))
}

// List returns all archive rows for an owner, most recently updated first.
func (s *Store) List(ctx context.Context, ownerID string) ([]*Archived, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		FROM archived_profiles WHERE owner_id = ? ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var out []*Archived
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const selectColumns = `
	SELECT id, owner_id, url, normalized_url, name, headline, location, company,
	       email, email_is_fallback, avatar, about, skills_json,
	       scraped_at, updated_at, version`

func (s *Store) getByKey(ctx context.Context, ownerID, normalizedURL string) (*Archived, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		FROM archived_profiles WHERE owner_id = ? AND normalized_url = ?`,
		ownerID, normalizedURL)
	out, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get: %w", err)
	}
	return out, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanRow(sc scanner) (*Archived, error) {
	var (
		row               Archived
		email, skillsJSON string
		isFallback        int
		scraped, updated  int64
	)
	err := sc.Scan(&row.ID, &row.OwnerID, &row.URL, &row.NormalizedURL,
		&row.Name, &row.Headline, &row.Location, &row.Company,
		&email, &isFallback, &row.Avatar, &row.About, &skillsJSON,
		&scraped, &updated, &row.Version)
	if err != nil {
		return nil, err
	}
	switch {
	case email != "":
		row.Email = profile.RealEmail(email)
	case isFallback == 1:
		row.Email = profile.FallbackEmail()
	default:
		row.Email = profile.MissingEmail()
	}
	if err := json.Unmarshal([]byte(skillsJSON), &row.Skills); err != nil {
		row.Skills = nil
	}
	row.ScrapedAt = time.UnixMilli(scraped)
	row.UpdatedAt = time.UnixMilli(updated)
	return &row, nil
}

func emailAddress(e profile.Email) string {
	if e.IsReal() {
		return e.Address
	}
	return ""
}

func jsonArray(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
