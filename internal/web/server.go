package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/knoldeck/internal/collection"
	"github.com/conorfennell/knoldeck/internal/review"
	"github.com/conorfennell/knoldeck/internal/sync"
)

// SyncFunc runs a collection sync on demand.
type SyncFunc func(ctx context.Context) (sync.Report, error)

// Server holds the dependencies for the HTTP server.
type Server struct {
	reviews    *review.Service
	collection *collection.Collection
	sync       SyncFunc
	log        *slog.Logger
	validate   *validator.Validate
	router     chi.Router
}

// NewServer creates and configures a new server. syncFn may be nil, in
// which case POST /sync is not available.
func NewServer(reviews *review.Service, coll *collection.Collection, syncFn SyncFunc, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		reviews:    reviews,
		collection: coll,
		sync:       syncFn,
		log:        log,
		validate:   validator.New(),
		router:     chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/due", s.handleDueAll)

	s.router.Route("/decks", func(r chi.Router) {
		r.Get("/", s.handleListDecks)
		r.Post("/", s.handleCreateDeck)

		r.Route("/{deck}", func(r chi.Router) {
			r.Get("/due", s.handleDue)
			r.Get("/notes", s.handleListNotes)
			r.Post("/notes", s.handleCreateNote)

			r.Route("/notes/{note}", func(r chi.Router) {
				r.Get("/", s.handleGetNote)
				r.Put("/", s.handleUpdateNote)
				r.Get("/front", s.handleFront)
				r.Get("/back", s.handleBack)
				r.Post("/review", s.handleReview)
				r.Get("/preview", s.handlePreview)
				r.Get("/history", s.handleHistory)
			})
		})
	})

	if s.sync != nil {
		s.router.Post("/sync", s.handleSync)
	}
}
