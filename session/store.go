package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Schema holds one row per owner. The cookie blob is opaque to SQL.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    owner_id     TEXT PRIMARY KEY,
    state        TEXT NOT NULL DEFAULT 'disconnected',
    cookies      BLOB,
    captured_at  INTEGER NOT NULL DEFAULT 0,
    expires_at   INTEGER NOT NULL DEFAULT 0,
    last_used_at INTEGER NOT NULL DEFAULT 0,
    updated_at   INTEGER NOT NULL DEFAULT 0
);
`

// ApplySchema creates the sessions table.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

// Store persists sessions in SQLite.
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

// Save persists a freshly captured cookie blob and marks the owner
// Connected. It replaces whatever session existed before.
func (s *Store) Save(ctx context.Context, ownerID string, cookies []byte, ttl time.Duration) (*Session, error) {
	now := time.Now()
	sess := &Session{
		OwnerID:    ownerID,
		State:      StateConnected,
		Cookies:    cookies,
		CapturedAt: now,
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (owner_id, state, cookies, captured_at, expires_at, last_used_at, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(owner_id) DO UPDATE SET
			state = excluded.state,
			cookies = excluded.cookies,
			captured_at = excluded.captured_at,
			expires_at = excluded.expires_at,
			last_used_at = excluded.last_used_at,
			updated_at = excluded.updated_at`,
		ownerID, string(StateConnected), cookies,
		now.UnixMilli(), sess.ExpiresAt.UnixMilli(), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("session: save: %w", err)
	}
	s.log.Info("session saved", "owner", ownerID, "cookie_count_bytes", len(cookies), "expires_at", sess.ExpiresAt)
	return sess, nil
}

// Active returns the owner's session when it is Connected and unexpired.
// Any other situation yields NotAuthenticatedError. A session found past
// its expiry is flipped to Expired as a side effect.
func (s *Store) Active(ctx context.Context, ownerID string) (*Session, error) {
	sess, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, &NotAuthenticatedError{OwnerID: ownerID, Reason: "no session"}
	}
	if sess.State == StateConnected && !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		if terr := s.setState(ctx, ownerID, StateExpired); terr != nil {
			s.log.Warn("session expire mark failed", "owner", ownerID, "error", terr)
		}
		sess.State = StateExpired
	}
	if sess.State != StateConnected {
		return nil, &NotAuthenticatedError{OwnerID: ownerID, Reason: string(sess.State)}
	}
	return sess, nil
}

// Get loads a session row without gating on state. Nil when absent.
func (s *Store) Get(ctx context.Context, ownerID string) (*Session, error) {
	var (
		sess                        Session
		state                       string
		captured, expires, lastUsed int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, state, cookies, captured_at, expires_at, last_used_at
		FROM sessions WHERE owner_id = ?`, ownerID).
		Scan(&sess.OwnerID, &state, &sess.Cookies, &captured, &expires, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get: %w", err)
	}
	sess.State = State(state)
	sess.CapturedAt = time.UnixMilli(captured)
	if expires > 0 {
		sess.ExpiresAt = time.UnixMilli(expires)
	}
	sess.LastUsedAt = time.UnixMilli(lastUsed)
	return &sess, nil
}

// Touch refreshes last_used_at after a successful browse operation.
func (s *Store) Touch(ctx context.Context, ownerID string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = ?, updated_at = ? WHERE owner_id = ?`,
		now, now, ownerID)
	if err != nil {
		return fmt.Errorf("session: touch: %w", err)
	}
	return nil
}

// Invalidate clears credentials and returns the owner to Disconnected.
// Legal from any state (explicit logout or remote invalidation cleanup).
func (s *Store) Invalidate(ctx context.Context, ownerID string) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET state = ?, cookies = NULL, updated_at = ? WHERE owner_id = ?`,
		string(StateDisconnected), now, ownerID)
	if err != nil {
		return fmt.Errorf("session: invalidate: %w", err)
	}
	s.log.Info("session invalidated", "owner", ownerID)
	return nil
}

// Transition moves the owner's session along the state graph, creating the
// row on first use. Used by the login flow (Connecting bookkeeping); Save
// and Invalidate own the Connected/Disconnected endpoints.
func (s *Store) Transition(ctx context.Context, ownerID string, to State) error {
	cur, err := s.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	from := StateDisconnected
	if cur != nil {
		from = cur.State
	}
	if !from.CanTransition(to) {
		return &InvalidTransitionError{OwnerID: ownerID, From: from, To: to}
	}
	return s.setState(ctx, ownerID, to)
}

func (s *Store) setState(ctx context.Context, ownerID string, to State) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (owner_id, state, updated_at) VALUES (?,?,?)
		ON CONFLICT(owner_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		ownerID, string(to), now)
	if err != nil {
		return fmt.Errorf("session: set state: %w", err)
	}
	return nil
}
