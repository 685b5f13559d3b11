// Package api is the HTTP surface over the acquisition engine. It owns
// routing, request decoding, and the mapping from engine error types to
// status codes; all domain logic stays in the engine.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/nicksriv/leadflow/archive"
	"github.com/nicksriv/leadflow/browse"
	"github.com/nicksriv/leadflow/history"
	"github.com/nicksriv/leadflow/linkedin"
	"github.com/nicksriv/leadflow/profile"
	"github.com/nicksriv/leadflow/query"
	"github.com/nicksriv/leadflow/session"
)

// Engine is the slice of the acquisition engine the API consumes.
// Satisfied by *linkedin.Engine.
type Engine interface {
	SearchPeople(ctx context.Context, ownerID string, c query.Criteria, page int) (*linkedin.SearchResult, error)
	ScrapeProfile(ctx context.Context, ownerID, urlOrID, knownName string, c query.Criteria) (*profile.Profile, error)
	Archives(ctx context.Context, ownerID string) ([]*archive.Archived, error)
	HistoryGrouped(ctx context.Context, ownerID string, r history.Range) ([]*history.Group, error)
	HistoryStats(ctx context.Context, ownerID string) (*history.Stats, error)
	DeleteHistoryOlderThan(ctx context.Context, ownerID string, days int) (int64, error)
	SaveSession(ctx context.Context, ownerID string, cookies []byte) (*session.Session, error)
	ImportSession(ctx context.Context, ownerID string) (*session.Session, error)
	Connect(ctx context.Context, ownerID, email, password string) (*session.Session, error)
	Status(ctx context.Context, ownerID string) (*linkedin.SessionStatus, error)
	Disconnect(ctx context.Context, ownerID string) error
}

// Service wires the engine behind a chi router.
type Service struct {
	engine Engine
	log    *slog.Logger
}

// NewService creates the HTTP service. A nil logger falls back to
// slog.Default.
func NewService(engine Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{engine: engine, log: logger}
}

// Router builds the full handler chain. allowedOrigins configures CORS;
// empty means same-origin only.
func (s *Service) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/owners/{owner}", func(r chi.Router) {
		r.Post("/search", s.handleSearch)
		r.Post("/scrape", s.handleScrape)
		r.Get("/archives", s.handleArchives)

		r.Get("/history", s.handleHistoryGrouped)
		r.Get("/history/stats", s.handleHistoryStats)
		r.Delete("/history", s.handleHistoryDelete)

		r.Get("/session", s.handleSessionStatus)
		r.Post("/session", s.handleSessionSave)
		r.Post("/session/login", s.handleSessionLogin)
		r.Post("/session/import", s.handleSessionImport)
		r.Delete("/session", s.handleSessionLogout)
	})

	if len(allowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}

// writeEngineError maps engine error types onto HTTP statuses:
// no usable session 401, transient browse trouble 503, archive races 409.
func (s *Service) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		nae       *session.NotAuthenticatedError
		transient *browse.TransientError
		conflict  *archive.ConflictError
	)
	switch {
	case errors.As(err, &nae):
		http.Error(w, "reconnect required: "+nae.Reason, http.StatusUnauthorized)
	case errors.As(err, &transient):
		w.Header().Set("Retry-After", "30")
		http.Error(w, "browse failed, retry later", http.StatusServiceUnavailable)
	case errors.As(err, &conflict):
		http.Error(w, "archive conflict, retry", http.StatusConflict)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
