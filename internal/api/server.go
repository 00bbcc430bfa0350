// Package api implements the citygen HTTP API.
//
// The server exposes the generation pipeline over JSON:
//
//	POST   /v1/generate              generate a city (JSON, or ?format=geojson|svg|dot|png|pdf)
//	GET    /v1/presets               list built-in presets
//	GET    /v1/runs                  list recent runs (?limit=N)
//	GET    /v1/runs/{id}             fetch a run record
//	POST   /v1/runs/{id}/regenerate  rerun a recorded run's options
//	DELETE /v1/runs/{id}             delete a run record
//	GET    /healthz                  liveness check
//
// Cache keys are scoped per client (X-Client-ID header) so clients never
// see each other's cached runs.
package api

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/store"
)

// =============================================================================
// Configuration
// =============================================================================

const (
	// DefaultAddr is the listen address used when Config.Addr is empty.
	DefaultAddr = ":8080"

	// DefaultTimeout bounds a single request, generation included.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBodyBytes limits request bodies.
	DefaultMaxBodyBytes = 1 << 20

	// shutdownTimeout is how long in-flight requests get on shutdown.
	shutdownTimeout = 10 * time.Second

	// clientHeader carries the client id used to scope cache keys.
	clientHeader = "X-Client-ID"

	// anonymousClient is the scope of requests without a client id.
	anonymousClient = "anonymous"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	Timeout      time.Duration
	MaxBodyBytes int64
	Logger       *log.Logger
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// =============================================================================
// Server
// =============================================================================

// Server serves the HTTP API. The cache and store are shared by all
// requests and closed by the caller, not the server.
type Server struct {
	cfg    Config
	cache  cache.Cache
	store  store.Store
	logger *log.Logger
	router chi.Router
}

// New creates a server. A nil cache disables caching.
func New(cfg Config, c cache.Cache, st store.Store) *Server {
	cfg.SetDefaults()
	if c == nil {
		c = cache.NewNullCache()
	}
	s := &Server{
		cfg:    cfg,
		cache:  c,
		store:  st,
		logger: cfg.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Timeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/presets", s.handlePresets)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Post("/{id}/regenerate", s.handleRegenerate)
			r.Delete("/{id}", s.handleDeleteRun)
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("api stopped")
	return nil
}
