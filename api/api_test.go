package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nicksriv/leadflow/archive"
	"github.com/nicksriv/leadflow/browse"
	"github.com/nicksriv/leadflow/history"
	"github.com/nicksriv/leadflow/linkedin"
	"github.com/nicksriv/leadflow/profile"
	"github.com/nicksriv/leadflow/query"
	"github.com/nicksriv/leadflow/session"
)

// stubEngine records calls and returns canned values per method.
type stubEngine struct {
	owner     string
	criteria  query.Criteria
	searchRes *linkedin.SearchResult
	scrapeRes *profile.Profile
	archRes   []*archive.Archived
	deleted   int64
	days      int
	err       error
}

func (s *stubEngine) SearchPeople(_ context.Context, ownerID string, c query.Criteria, page int) (*linkedin.SearchResult, error) {
	s.owner, s.criteria = ownerID, c
	return s.searchRes, s.err
}

func (s *stubEngine) ScrapeProfile(_ context.Context, ownerID, urlOrID, knownName string, c query.Criteria) (*profile.Profile, error) {
	s.owner, s.criteria = ownerID, c
	return s.scrapeRes, s.err
}

func (s *stubEngine) Archives(_ context.Context, ownerID string) ([]*archive.Archived, error) {
	s.owner = ownerID
	return s.archRes, s.err
}

func (s *stubEngine) HistoryGrouped(_ context.Context, ownerID string, _ history.Range) ([]*history.Group, error) {
	s.owner = ownerID
	return nil, s.err
}

func (s *stubEngine) HistoryStats(_ context.Context, ownerID string) (*history.Stats, error) {
	s.owner = ownerID
	return &history.Stats{}, s.err
}

func (s *stubEngine) DeleteHistoryOlderThan(_ context.Context, ownerID string, days int) (int64, error) {
	s.owner, s.days = ownerID, days
	return s.deleted, s.err
}

func (s *stubEngine) SaveSession(_ context.Context, ownerID string, _ []byte) (*session.Session, error) {
	s.owner = ownerID
	return &session.Session{OwnerID: ownerID, State: session.StateConnected}, s.err
}

func (s *stubEngine) ImportSession(_ context.Context, ownerID string) (*session.Session, error) {
	s.owner = ownerID
	return &session.Session{OwnerID: ownerID, State: session.StateConnected}, s.err
}

func (s *stubEngine) Connect(_ context.Context, ownerID, _, _ string) (*session.Session, error) {
	s.owner = ownerID
	if s.err != nil {
		return nil, s.err
	}
	return &session.Session{OwnerID: ownerID, State: session.StateConnected}, nil
}

func (s *stubEngine) Status(_ context.Context, ownerID string) (*linkedin.SessionStatus, error) {
	s.owner = ownerID
	return &linkedin.SessionStatus{OwnerID: ownerID, State: session.StateDisconnected}, s.err
}

func (s *stubEngine) Disconnect(_ context.Context, ownerID string) error {
	s.owner = ownerID
	return s.err
}

func serve(t *testing.T, eng Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	NewService(eng, nil).Router(nil).ServeHTTP(w, r)
	return w
}

func TestSearchThreadsOwnerAndCriteria(t *testing.T) {
	// WHAT: The owner URL param and decoded criteria reach the engine and
	// the engine's result is returned as JSON.
	eng := &stubEngine{searchRes: &linkedin.SearchResult{Page: 2, HasMore: true}}
	w := serve(t, eng, http.MethodPost, "/api/v1/owners/o1/search",
		`{"job_title":"CTO","page":2}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", w.Code, w.Body)
	}
	if eng.owner != "o1" || eng.criteria.JobTitle != "CTO" {
		t.Errorf("engine call: owner=%q criteria=%+v", eng.owner, eng.criteria)
	}
	var res linkedin.SearchResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.Page != 2 || !res.HasMore {
		t.Errorf("response: %s", w.Body)
	}
}

func TestScrapeAndArchivesCarryEmail(t *testing.T) {
	// WHAT: The scrape and archive response bodies expose the extracted
	// email and its fallback flag.
	// WHY: The email is what the whole pipeline exists to deliver; a body
	// without it makes the archive's non-regression merge unreadable.
	eng := &stubEngine{
		scrapeRes: &profile.Profile{
			Candidate: profile.Candidate{Name: "Jane Doe", URL: "https://x/in/jane"},
			Email:     profile.RealEmail("jane@acme.example"),
		},
		archRes: []*archive.Archived{{
			ID:      "1",
			OwnerID: "o1",
			URL:     "https://x/in/jane",
			Email:   profile.RealEmail("jane@acme.example"),
		}},
	}

	w := serve(t, eng, http.MethodPost, "/api/v1/owners/o1/scrape", `{"url":"https://x/in/jane"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"email":"jane@acme.example"`) {
		t.Errorf("scrape body lacks email: %s", w.Body)
	}
	if !strings.Contains(w.Body.String(), `"email_is_fallback":false`) {
		t.Errorf("scrape body lacks fallback flag: %s", w.Body)
	}

	w = serve(t, eng, http.MethodGet, "/api/v1/owners/o1/archives", "")
	if w.Code != http.StatusOK {
		t.Fatalf("archives status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"email":"jane@acme.example"`) {
		t.Errorf("archives body lacks email: %s", w.Body)
	}
}

func TestSearchRejectsEmptyCriteria(t *testing.T) {
	w := serve(t, &stubEngine{}, http.MethodPost, "/api/v1/owners/o1/search", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: %d", w.Code)
	}
}

func TestNotAuthenticatedMapsTo401(t *testing.T) {
	// WHAT: A missing session surfaces as 401 "reconnect required".
	eng := &stubEngine{err: &session.NotAuthenticatedError{OwnerID: "o1", Reason: "no session"}}
	w := serve(t, eng, http.MethodPost, "/api/v1/owners/o1/scrape", `{"url":"https://x/in/a"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "reconnect required") {
		t.Errorf("body: %s", w.Body)
	}
}

func TestTransientBrowseFailureMapsTo503(t *testing.T) {
	// WHAT: A browse timeout maps to 503 with a Retry-After hint.
	eng := &stubEngine{err: &browse.TransientError{URL: "u", Err: context.DeadlineExceeded}}
	w := serve(t, eng, http.MethodPost, "/api/v1/owners/o1/scrape", `{"url":"https://x/in/a"}`)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestHistoryDeleteValidatesDays(t *testing.T) {
	for _, q := range []string{"", "?older_than_days=0", "?older_than_days=x"} {
		w := serve(t, &stubEngine{}, http.MethodDelete, "/api/v1/owners/o1/history"+q, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%q: status %d", q, w.Code)
		}
	}

	eng := &stubEngine{deleted: 7}
	w := serve(t, eng, http.MethodDelete, "/api/v1/owners/o1/history?older_than_days=30", "")
	if w.Code != http.StatusOK || eng.days != 30 {
		t.Fatalf("status=%d days=%d", w.Code, eng.days)
	}
	if !strings.Contains(w.Body.String(), `"deleted":7`) {
		t.Errorf("body: %s", w.Body)
	}
}

func TestHistoryGroupedParsesRange(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	w := serve(t, &stubEngine{}, http.MethodGet, "/api/v1/owners/o1/history?start="+start, "")
	if w.Code != http.StatusOK {
		t.Errorf("status: %d", w.Code)
	}

	w = serve(t, &stubEngine{}, http.MethodGet, "/api/v1/owners/o1/history?start=notatime", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad start status: %d", w.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	// WHAT: Status, save, login, and logout round-trip through the engine;
	// responses carry state but never the cookie blob.
	eng := &stubEngine{}

	w := serve(t, eng, http.MethodGet, "/api/v1/owners/o1/session", "")
	if w.Code != http.StatusOK || eng.owner != "o1" {
		t.Fatalf("status: %d owner=%q", w.Code, eng.owner)
	}

	w = serve(t, eng, http.MethodPost, "/api/v1/owners/o1/session",
		`{"cookies":[{"name":"li_at","value":"x"}]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("save status: %d body: %s", w.Code, w.Body)
	}
	if strings.Contains(w.Body.String(), "li_at") {
		t.Error("response must not echo cookies")
	}

	w = serve(t, eng, http.MethodPost, "/api/v1/owners/o1/session/login",
		`{"email":"u@example.com","password":"p"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("login status: %d", w.Code)
	}

	w = serve(t, eng, http.MethodDelete, "/api/v1/owners/o1/session", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status: %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	// WHAT: With allowed origins configured, a preflight from a listed
	// origin is admitted.
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/owners/o1/search", nil)
	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	NewService(&stubEngine{}, nil).Router([]string{"https://app.example.com"}).ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin: %q", got)
	}
}
