// Package linkedin orchestrates the acquisition pipeline: authenticated
// session, search-request build, page browse, extraction, archive merge,
// and history record. Browse work is serialised per owner; everything
// downstream of the rendered content is pure and fails soft.
package linkedin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nicksriv/leadflow/archive"
	"github.com/nicksriv/leadflow/browse"
	"github.com/nicksriv/leadflow/extract"
	"github.com/nicksriv/leadflow/history"
	"github.com/nicksriv/leadflow/profile"
	"github.com/nicksriv/leadflow/query"
	"github.com/nicksriv/leadflow/session"
)

// PageOpener supplies fresh browser tabs. Satisfied by *browse.Manager.
type PageOpener interface {
	NewPage(ctx context.Context) (browse.Page, error)
}

// Engine is the orchestrator behind the API surface.
type Engine struct {
	cfg      Config
	pages    PageOpener
	sessions *session.Store
	archives *archive.Store
	views    *history.Store
	queries  *query.Builder
	flights  *flightGroup
	log      *slog.Logger
}

// New wires an Engine. A nil logger falls back to slog.Default.
func New(cfg Config, pages PageOpener, sessions *session.Store, archives *archive.Store, views *history.Store, logger *slog.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		pages:    pages,
		sessions: sessions,
		archives: archives,
		views:    views,
		queries:  query.New(cfg.BaseURL),
		flights:  newFlightGroup(),
		log:      logger,
	}
}

// SearchResult is one page of people-search candidates.
type SearchResult struct {
	Results []profile.Candidate `json:"results"`
	Page    int                 `json:"page"`
	HasMore bool                `json:"has_more"`
}

// SearchPeople runs a people search and extracts candidate records from
// the rendered results page. Requires a Connected session.
func (e *Engine) SearchPeople(ctx context.Context, ownerID string, c query.Criteria, page int) (*SearchResult, error) {
	if page < 1 {
		page = 1
	}
	p, done, err := e.openAuthedPage(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer done()

	u := e.queries.Build(c, page)
	content, err := e.render(ctx, p, u)
	if err != nil {
		return nil, err
	}
	results := extract.SearchResults(content)
	e.touch(ctx, ownerID)

	e.log.Info("people search done", "owner", ownerID, "page", page, "results", len(results))
	return &SearchResult{
		Results: results,
		Page:    page,
		HasMore: len(results) >= e.cfg.SearchPageSize,
	}, nil
}

// revealContactJS clicks through to the contact-info overlay when present.
// Absence is an extraction gap, not a failure.
const revealContactJS = `() => {
	const a = document.querySelector('a[href*="overlay/contact-info"], #top-card-text-details-contact-info');
	if (a) { a.click(); return "clicked"; }
	return "";
}`

// ScrapeProfile renders one profile page, extracts it, and folds the
// result into the archive and the view history. The criteria are the
// search that surfaced this profile and end up on the history entry.
//
// Archive and history failures are logged but never fail the scrape:
// the freshly extracted profile is still returned.
func (e *Engine) ScrapeProfile(ctx context.Context, ownerID, urlOrID, knownName string, c query.Criteria) (*profile.Profile, error) {
	p, done, err := e.openAuthedPage(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer done()

	u := e.queries.ProfileURL(urlOrID)
	content, err := e.render(ctx, p, u)
	if err != nil {
		return nil, err
	}

	if out, evalErr := p.Eval(ctx, revealContactJS); evalErr != nil {
		e.log.Debug("contact reveal skipped", "owner", ownerID, "error", evalErr)
	} else if out == "clicked" {
		if err := e.settle(ctx); err != nil {
			return nil, err
		}
		if refreshed, cErr := p.Content(ctx); cErr == nil {
			content = refreshed
		}
	}

	prof := extract.Profile(content, u)
	if prof.Name == "" && knownName != "" {
		prof.Name = knownName
	}

	if _, aErr := e.archives.Upsert(ctx, ownerID, u, prof); aErr != nil {
		e.log.Error("archive upsert failed", "owner", ownerID, "url", u, "error", aErr)
	}
	if _, hErr := e.views.Record(ctx, ownerID, c, prof.Candidate, prof.ScrapedAt); hErr != nil {
		e.log.Error("history record failed", "owner", ownerID, "url", u, "error", hErr)
	}
	e.touch(ctx, ownerID)

	e.log.Info("profile scraped", "owner", ownerID, "url", u, "email", prof.Email.Tag.String())
	return &prof, nil
}

// Archives returns the owner's archive, most recently updated first.
func (e *Engine) Archives(ctx context.Context, ownerID string) ([]*archive.Archived, error) {
	return e.archives.List(ctx, ownerID)
}

// HistoryGrouped returns view history grouped by search key.
func (e *Engine) HistoryGrouped(ctx context.Context, ownerID string, r history.Range) ([]*history.Group, error) {
	return e.views.Grouped(ctx, ownerID, r)
}

// HistoryStats summarises the owner's view history.
func (e *Engine) HistoryStats(ctx context.Context, ownerID string) (*history.Stats, error) {
	return e.views.Stats(ctx, ownerID)
}

// DeleteHistoryOlderThan drops view entries older than the given number
// of days and returns the count removed.
func (e *Engine) DeleteHistoryOlderThan(ctx context.Context, ownerID string, days int) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return e.views.DeleteOlderThan(ctx, ownerID, cutoff)
}

// SaveSession persists an externally captured cookie blob for the owner.
func (e *Engine) SaveSession(ctx context.Context, ownerID string, cookies []byte) (*session.Session, error) {
	return e.sessions.Save(ctx, ownerID, cookies, e.cfg.SessionTTL)
}

// ImportSession bootstraps a session from the operator's local browsers.
func (e *Engine) ImportSession(ctx context.Context, ownerID string) (*session.Session, error) {
	return e.sessions.ImportFromBrowser(ctx, ownerID, e.cfg.SessionTTL)
}

// SessionStatus reports the owner's connection state for the UI.
type SessionStatus struct {
	OwnerID      string        `json:"owner_id"`
	State        session.State `json:"state"`
	ExpiresAt    time.Time     `json:"expires_at,omitzero"`
	ExpiringSoon bool          `json:"expiring_soon"`
}

// Status returns the owner's session state without gating on it.
func (e *Engine) Status(ctx context.Context, ownerID string) (*SessionStatus, error) {
	sess, err := e.sessions.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &SessionStatus{OwnerID: ownerID, State: session.StateDisconnected}, nil
	}
	return &SessionStatus{
		OwnerID:      ownerID,
		State:        sess.State,
		ExpiresAt:    sess.ExpiresAt,
		ExpiringSoon: sess.State == session.StateConnected && sess.ExpiringSoon(e.cfg.ExpiryWarnDays),
	}, nil
}

// Disconnect logs the owner out and clears stored credentials.
func (e *Engine) Disconnect(ctx context.Context, ownerID string) error {
	return e.sessions.Invalidate(ctx, ownerID)
}

// openAuthedPage acquires the owner's browse slot, checks the session,
// and opens a cookie-loaded tab. done releases both and must be called
// on every exit path.
func (e *Engine) openAuthedPage(ctx context.Context, ownerID string) (p browse.Page, done func(), err error) {
	release, err := e.flights.acquire(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	sess, err := e.sessions.Active(ctx, ownerID)
	if err != nil {
		release()
		return nil, nil, err
	}
	p, err = e.pages.NewPage(ctx)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("linkedin: open page: %w", err)
	}
	if err := p.SetCookies(sess.Cookies); err != nil {
		p.Close()
		release()
		return nil, nil, fmt.Errorf("linkedin: load session cookies: %w", err)
	}
	return p, func() { p.Close(); release() }, nil
}

// render navigates, waits out the settle delay, and returns the rendered
// document. Content failures on a navigated page count as transient.
func (e *Engine) render(ctx context.Context, p browse.Page, u string) (string, error) {
	if err := p.Navigate(ctx, u, e.cfg.NavigateTimeout); err != nil {
		return "", err
	}
	if err := e.settle(ctx); err != nil {
		return "", err
	}
	content, err := p.Content(ctx)
	if err != nil {
		return "", &browse.TransientError{URL: u, Err: err}
	}
	return content, nil
}

func (e *Engine) settle(ctx context.Context) error {
	return e.wait(ctx, e.cfg.SettleDelay)
}

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Engine) touch(ctx context.Context, ownerID string) {
	if err := e.sessions.Touch(ctx, ownerID); err != nil {
		e.log.Warn("session touch failed", "owner", ownerID, "error", err)
	}
}
