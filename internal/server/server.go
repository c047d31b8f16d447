// Package server provides the HTTP server and routing for FolioWatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/foliowatch/foliowatch/internal/config"
	"github.com/foliowatch/foliowatch/internal/database"
	"github.com/foliowatch/foliowatch/internal/feedback"
	"github.com/foliowatch/foliowatch/internal/modules/holdings"
	"github.com/foliowatch/foliowatch/internal/modules/settings"
	"github.com/foliowatch/foliowatch/internal/modules/snapshots"
	"github.com/foliowatch/foliowatch/internal/scheduler"
	"github.com/foliowatch/foliowatch/internal/sync"
)

// Deps holds everything the server needs to route requests.
type Deps struct {
	Log       zerolog.Logger
	DB        *database.DB
	Config    *config.Config
	Holdings  *holdings.Service
	Snapshots *snapshots.Service
	Settings  *settings.Service
	Engine    *sync.Engine
	Feedback  *feedback.StateManager
	Scheduler *scheduler.Scheduler
	SyncJob   scheduler.Job
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	deps   Deps
}

// New creates a new HTTP server
func New(deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    deps.Log.With().Str("component", "server").Logger(),
		deps:   deps,
	}

	s.setupMiddleware(deps.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", s.handleSystemHealth)
		})

		r.Route("/owners/{ownerID}", func(r chi.Router) {
			r.Route("/holdings", func(r chi.Router) {
				r.Get("/", s.handleListHoldings)
				r.Post("/", s.handleCreateHolding)
				r.Get("/{holdingID}", s.handleGetHolding)
				r.Put("/{holdingID}", s.handleUpdateHolding)
				r.Delete("/{holdingID}", s.handleDeleteHolding)
				r.Post("/{holdingID}/refresh", s.handleRefreshHolding)
			})

			r.Route("/sync", func(r chi.Router) {
				r.Post("/run", s.handleRunSync)
				r.Get("/feedback", s.handleSyncFeedback)
			})

			r.Get("/snapshots", s.handleListSnapshots)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleGetSettings)
				r.Put("/alert-threshold", s.handleSetAlertThreshold)
			})

			r.Get("/stream", s.handleStream)
		})

		// Cross-owner trigger used by ops tooling
		r.Post("/jobs/price-sync", s.handleTriggerPriceSync)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.deps.Config.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
