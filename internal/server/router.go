package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/sheetreview/internal/server/handlers"
	"github.com/agentstation/sheetreview/internal/server/middleware"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.app,
		s.registry,
		s.watcher,
		s.cache,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/health", h.HandleHealth)
	mux.HandleFunc("GET "+prefix+"/ready", h.HandleReady)

	// Viewers
	mux.HandleFunc("POST "+prefix+"/viewers", h.HandleOpenViewer)
	mux.HandleFunc("GET "+prefix+"/viewers/{id}", h.HandleGetViewer)
	mux.HandleFunc("DELETE "+prefix+"/viewers/{id}", h.HandleCloseViewer)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/page", h.HandleSetPage)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/filter", h.HandleSetFilter)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/next", h.HandleNext)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/previous", h.HandlePrevious)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/edit", h.HandleBeginEdit)
	mux.HandleFunc("PUT "+prefix+"/viewers/{id}/draft", h.HandleUpdateDraft)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/cancel", h.HandleCancel)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/save", h.HandleSave)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/conflict", h.HandleConflict)
	mux.HandleFunc("POST "+prefix+"/viewers/{id}/refresh", h.HandleRefreshViewer)

	// Table
	mux.HandleFunc("GET "+prefix+"/table", h.HandleTable)
	mux.HandleFunc("GET "+prefix+"/columns/{n}", h.HandleColumn)

	// Admin endpoints
	mux.HandleFunc("POST "+prefix+"/refresh", h.HandleRefresh)
	mux.HandleFunc("GET "+prefix+"/stats", h.HandleStats)

	// Real-time endpoints
	mux.HandleFunc("GET "+prefix+"/updates/ws", h.HandleWebSocket)
	mux.HandleFunc("GET "+prefix+"/updates/stream", h.HandleSSE)

	if s.config.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
}

// applyMiddleware wraps handler with middleware chain. The first
// middleware listed is the outermost.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	chain := []func(http.Handler) http.Handler{
		middleware.Observe(s.metrics.RequestServed),
		middleware.Logger(s.logger),
		middleware.Recovery(s.logger),
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		corsConfig.AllowedOrigins = cfg.CORSOrigins
		chain = append(chain, middleware.CORS(corsConfig))
	}

	if cfg.AuthEnabled {
		authConfig := middleware.DefaultAuthConfig(cfg.PathPrefix)
		authConfig.Enabled = true
		authConfig.HeaderName = cfg.AuthHeader
		chain = append(chain, middleware.Auth(authConfig, s.logger))
	}

	if s.rateLimiter != nil {
		chain = append(chain, middleware.RateLimit(s.rateLimiter))
	}

	return middleware.Chain(chain...)(handler)
}
