package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nicksriv/leadflow/history"
	"github.com/nicksriv/leadflow/query"
)

// SearchRequest is the body for POST /api/v1/owners/{owner}/search.
type SearchRequest struct {
	query.Criteria
	Page int `json:"page,omitempty"`
}

func (s *Service) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Criteria.Empty() {
		http.Error(w, "at least one search field required", http.StatusBadRequest)
		return
	}

	res, err := s.engine.SearchPeople(r.Context(), chi.URLParam(r, "owner"), req.Criteria, req.Page)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ScrapeRequest is the body for POST /api/v1/owners/{owner}/scrape.
// Criteria carry the search that surfaced this profile; they end up on
// the history entry.
type ScrapeRequest struct {
	URL       string         `json:"url"`
	KnownName string         `json:"known_name,omitempty"`
	Criteria  query.Criteria `json:"criteria"`
}

func (s *Service) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url required", http.StatusBadRequest)
		return
	}

	prof, err := s.engine.ScrapeProfile(r.Context(), chi.URLParam(r, "owner"), req.URL, req.KnownName, req.Criteria)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}

func (s *Service) handleArchives(w http.ResponseWriter, r *http.Request) {
	rows, err := s.engine.Archives(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Service) handleHistoryGrouped(w http.ResponseWriter, r *http.Request) {
	var rng history.Range
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid start, want RFC3339", http.StatusBadRequest)
			return
		}
		rng.Start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid end, want RFC3339", http.StatusBadRequest)
			return
		}
		rng.End = t
	}

	groups, err := s.engine.HistoryGrouped(r.Context(), chi.URLParam(r, "owner"), rng)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Service) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.HistoryStats(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("older_than_days"))
	if err != nil || days < 1 {
		http.Error(w, "older_than_days must be a positive integer", http.StatusBadRequest)
		return
	}

	n, err := s.engine.DeleteHistoryOlderThan(r.Context(), chi.URLParam(r, "owner"), days)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Service) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.Status(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SessionSaveRequest carries an externally captured cookie blob. The blob
// is opaque here and never logged.
type SessionSaveRequest struct {
	Cookies json.RawMessage `json:"cookies"`
}

func (s *Service) handleSessionSave(w http.ResponseWriter, r *http.Request) {
	var req SessionSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Cookies) == 0 {
		http.Error(w, "cookies required", http.StatusBadRequest)
		return
	}

	sess, err := s.engine.SaveSession(r.Context(), chi.URLParam(r, "owner"), req.Cookies)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(sess.OwnerID, string(sess.State), sess.ExpiresAt))
}

// LoginRequest carries credentials for POST .../session/login. They pass
// through to the login flow and are never logged or persisted.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Service) handleSessionLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	sess, err := s.engine.Connect(r.Context(), chi.URLParam(r, "owner"), req.Email, req.Password)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(sess.OwnerID, string(sess.State), sess.ExpiresAt))
}

func (s *Service) handleSessionImport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.ImportSession(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(sess.OwnerID, string(sess.State), sess.ExpiresAt))
}

func (s *Service) handleSessionLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Disconnect(r.Context(), chi.URLParam(r, "owner")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionView is the session response shape: state and expiry only, the
// cookie blob stays server-side.
func sessionView(ownerID, state string, expiresAt time.Time) map[string]any {
	return map[string]any{
		"owner_id":   ownerID,
		"state":      state,
		"expires_at": expiresAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
