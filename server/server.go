package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/player"
	"github.com/lixenwraith/tonestep/service"
)

// Server exposes session control over HTTP for host applications
type Server struct {
	manager *player.Manager
	log     *zap.Logger
	router  chi.Router
	health  func() []service.Status
}

// Option configures a Server
type Option func(*Server)

// WithHealth reports per-service status on /healthz, typically a Hub's Health method
func WithHealth(fn func() []service.Status) Option {
	return func(s *Server) { s.health = fn }
}

// New creates a new Server with all routes configured
func New(manager *player.Manager, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		manager: manager,
		log:     log,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/notes", s.handleNotes)

		r.Get("/session", s.handleGetSession)
		r.Post("/session", s.handleStartSession)
		r.Delete("/session", s.handleStopSession)

		r.Get("/voices", s.handleListVoices)
		r.Post("/voices", s.handleLoadVoices)
		r.Put("/voices/{key}", s.handlePutVoice)
	})
}
