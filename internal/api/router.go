// Package api provides the read-only status API for a ralph workspace.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/toddgeist/ralph-wiggum-cursor/internal/config"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/budget"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/state"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/thrash"
)

// Server represents the status API server.
type Server struct {
	cfg           *config.Config
	workspaceRoot string
	router        chi.Router

	store      *state.Store
	tracker    *budget.Tracker
	detector   *thrash.Detector
	guardrails *guardrail.Store
}

// NewServer creates a new status API server over the workspace's state.
func NewServer(cfg *config.Config, workspaceRoot string, store *state.Store, tracker *budget.Tracker, detector *thrash.Detector, guardrails *guardrail.Store) *Server {
	s := &Server{
		cfg:           cfg,
		workspaceRoot: workspaceRoot,
		store:         store,
		tracker:       tracker,
		detector:      detector,
		guardrails:    guardrails,
	}
	s.setupRouter()
	return s
}

// setupRouter configures all routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	if s.cfg.API.APIKey != "" {
		r.Use(s.apiKeyAuth)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/status", s.handleStatus)
	r.Get("/budget", s.handleBudget)
	r.Get("/failures", s.handleFailures)
	r.Get("/guardrails", s.handleGuardrails)

	s.router = r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server on the configured address.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.cfg.Address(), s.router)
}

// apiKeyAuth is middleware that validates the API key.
func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/version" {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.URL.Query().Get("api_key")
		}
		if apiKey != s.cfg.API.APIKey {
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
