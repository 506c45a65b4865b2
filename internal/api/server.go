// Package api provides the HTTP backend that serves the events and todos collections.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	promclient "github.com/prometheus/client_golang/prometheus"

	"github.com/daybookapp/daybook/internal/metrics"
	"github.com/daybookapp/daybook/internal/service"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the router. The zero value serves the API without CORS or metrics.
type Options struct {
	Version        string
	AllowedOrigins []string
	HTTPMetrics    *metrics.HTTPMetrics
	Gatherer       promclient.Gatherer
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	items  *service.ItemService
	db     Pinger
	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(items *service.ItemService, db Pinger, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	s := &Server{
		items:  items,
		db:     db,
		router: chi.NewRouter(),
		logger: logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Daybook API", opts.Version)
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerItemRoutes()

	if opts.HTTPMetrics != nil || opts.Gatherer != nil {
		s.router.Handle("/metrics", metrics.Handler(opts.Gatherer))
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mostly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	if opts.HTTPMetrics != nil {
		s.router.Use(opts.HTTPMetrics.Middleware)
	}
}
