// Package server provides the HTTP API server, middleware, and handlers for Veil.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	veilotel "github.com/veil-sh/veil/internal/otel"
	"github.com/veil-sh/veil/internal/redact"
	"github.com/veil-sh/veil/internal/vault"
)

const requestTimeout = 120 * time.Second

// RedactorFactory builds a Redactor for a request's overrides. entities and
// customWords may be nil; fuzzy 0 disables fuzzy consolidation.
type RedactorFactory func(entities, customWords []string, fuzzy int) (*redact.Redactor, error)

// Server holds all dependencies for the HTTP API.
type Server struct {
	router          *chi.Mux
	defaultRedactor *redact.Redactor
	newRedactor     RedactorFactory
	vaultStore      *vault.Store
	apiKeys         map[string]string
	limiter         *RateLimiter
	startTime       time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithVault enables mapping persistence (store=true on redact, restore by
// mapping_id, and the /v1/mappings endpoints).
func WithVault(v *vault.Store) Option {
	return func(s *Server) { s.vaultStore = v }
}

// WithRateLimiter sets request rate limiting. Nil disables limiting.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// NewServer builds a Server. apiKeys maps API key -> caller_id; an empty
// map disables authentication (local development only).
func NewServer(defaultRedactor *redact.Redactor, factory RedactorFactory, apiKeys map[string]string, opts ...Option) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		defaultRedactor: defaultRedactor,
		newRedactor:     factory,
		apiKeys:         apiKeys,
		startTime:       time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))
	s.router.Use(veilotel.Middleware())

	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		if len(s.apiKeys) > 0 {
			r.Use(AuthMiddleware(s.apiKeys))
		}
		if s.limiter != nil {
			r.Use(RateLimitMiddleware(s.limiter))
		}
		r.Post("/v1/redact", s.handleRedact)
		r.Post("/v1/restore", s.handleRestore)
		r.Get("/v1/mappings", s.handleListMappings)
		r.Delete("/v1/mappings/{id}", s.handleDeleteMapping)
	})
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }
