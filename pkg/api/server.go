// Package api exposes the public content API with HTTP response caching,
// the cache operational endpoints, and the content mutation endpoints that
// drive cache invalidation.
package api

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/caelumdev/journal-api/pkg/cache"
	"github.com/caelumdev/journal-api/pkg/content"
)

// Config wires the server's collaborators.
type Config struct {
	// Content is the content repository (required).
	Content *content.Store

	// CacheStore is the shared response cache. Nil disables eviction and
	// response persistence; conditional requests still work.
	CacheStore *cache.Store

	// Recorder tracks per-key hit/miss metrics (required).
	Recorder *cache.Recorder

	// Warmer serves the cache-warming endpoints (required).
	Warmer *cache.Warmer

	// DevMode exposes underlying error messages in error envelopes.
	DevMode bool
}

// Server is the HTTP layer. Create it with New and mount Handler.
type Server struct {
	content  *content.Store
	store    *cache.Store
	recorder *cache.Recorder
	warmer   *cache.Warmer
	devMode  bool
	logger   zerolog.Logger
	mux      *http.ServeMux
}

// New creates the server and installs the content store's invalidation
// hooks.
func New(cfg Config) (*Server, error) {
	if cfg.Content == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if cfg.Recorder == nil {
		return nil, fmt.Errorf("metrics recorder is required")
	}
	if cfg.Warmer == nil {
		return nil, fmt.Errorf("cache warmer is required")
	}

	s := &Server{
		content:  cfg.Content,
		store:    cfg.CacheStore,
		recorder: cfg.Recorder,
		warmer:   cfg.Warmer,
		devMode:  cfg.DevMode,
		logger:   log.With().Str("component", "api").Logger(),
		mux:      http.NewServeMux(),
	}

	invalidator := cache.NewInvalidator(cfg.CacheStore, cfg.Recorder)
	cfg.Content.SetHooks(&invalidationHooks{inv: invalidator})

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	// Public content
	s.mux.HandleFunc("GET /api/public/journals", s.handle(s.listJournals))
	s.mux.HandleFunc("GET /api/public/journals/{slug}", s.handle(s.getJournal))
	s.mux.HandleFunc("GET /api/public/categories", s.handle(s.listCategories))
	s.mux.HandleFunc("GET /api/public/tags", s.handle(s.listTags))

	// Cache operations
	s.mux.HandleFunc("GET /api/cache/metrics", s.handle(s.getCacheMetrics))
	s.mux.HandleFunc("DELETE /api/cache/metrics", s.handle(s.clearCacheMetrics))
	s.mux.HandleFunc("POST /api/cache/warm", s.handle(s.warmCache))
	s.mux.HandleFunc("GET /api/cache/warm", s.handle(s.listWarmTargets))

	// Content mutations
	s.mux.HandleFunc("POST /api/journals", s.handle(s.createJournal))
	s.mux.HandleFunc("PATCH /api/journals/{slug}", s.handle(s.patchJournal))
	s.mux.HandleFunc("DELETE /api/journals/{slug}", s.handle(s.deleteJournal))
	s.mux.HandleFunc("POST /api/categories", s.handle(s.createCategory))
	s.mux.HandleFunc("DELETE /api/categories/{slug}", s.handle(s.deleteCategory))
	s.mux.HandleFunc("POST /api/tags", s.handle(s.createTag))
	s.mux.HandleFunc("DELETE /api/tags/{slug}", s.handle(s.deleteTag))

	// Operational
	s.mux.HandleFunc("GET /health", s.health)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handlerFunc is an HTTP handler that reports failures as errors instead
// of writing them itself.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle converts a handlerFunc into a stdlib handler, funneling every
// error through the envelope writer.
func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}
