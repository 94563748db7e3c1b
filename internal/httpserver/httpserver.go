// Package httpserver implements the external ingress described in
// spec.md §6: POST /push, GET /result, plus the /stats and /tasks
// inspection routes the teacher's cmd/server/main.go already
// prototyped (supplementing the distilled spec, per SPEC_FULL.md).
// Routing is go-chi (grounded on denisvmedia-inventario's go.mod, the
// pack's only chi user); CORS/auth middleware chaining is kept and
// generalized from the teacher's enableCORS/authMiddleware.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/guido-cesarano/distributedq/internal/manager"
	"github.com/guido-cesarano/distributedq/internal/store"
	"github.com/rs/zerolog"
)

// Server holds the dependencies the ingress routes need.
type Server struct {
	manager *manager.Manager
	queues  *store.QueueStore
	apiKey  string
	log     zerolog.Logger
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithAPIKey requires the X-API-Key header to match key on every
// request. An empty key (the default) disables authentication.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithLogger overrides the zerolog logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New constructs a Server bound to a Manager and its QueueStore.
func New(m *manager.Manager, queues *store.QueueStore, opts ...Option) *Server {
	s := &Server{manager: m, queues: queues}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi.Router serving this Server's routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.recovererMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(corsMiddleware)
	r.Use(s.authMiddleware)

	r.Post("/push", s.handlePush)
	r.Get("/result", s.handleResult)
	r.Get("/stats", s.handleStats)
	r.Get("/tasks", s.handleTasks)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeResult(w, r, http.StatusNotFound, apiError{Error: "not-found", Message: "Not found"})
	})

	return r
}

// ListenAndServe runs the server on addr until an unrecoverable
// listener error occurs, and returns that error.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
