package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/churchbooks-backend/internal/api/handlers"
	"github.com/eshaffer321/churchbooks-backend/internal/api/middleware"
	"github.com/eshaffer321/churchbooks-backend/internal/application/reconcile"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8085,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

var _ handlers.Reconciler = (*reconcile.Coordinator)(nil)

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	reconciler handlers.Reconciler
}

// NewServer creates a new API server. Reads go through repo; every write
// goes through reconciler so the statement and transaction sides stay linked.
func NewServer(cfg Config, repo storage.Repository, reconciler handlers.Reconciler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     cfg,
		router:     chi.NewRouter(),
		logger:     logger,
		repo:       repo,
		reconciler: reconciler,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.config.AllowedOrigins
	s.router.Use(middleware.CORS(corsConfig))

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logging(s.logger))
	s.router.Use(middleware.Recovery(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler()
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		statements := handlers.NewStatementsHandler(s.repo, s.reconciler)
		r.Route("/statements", func(r chi.Router) {
			r.Get("/", statements.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", statements.Get)
				r.Patch("/", statements.Update)
				r.Delete("/", statements.Delete)
				r.Get("/matches", statements.Matches)
				r.Post("/reconcile", statements.Reconcile)
				r.Post("/unreconcile", statements.Unreconcile)
				r.Put("/excluded", statements.SetExcluded)
			})
		})

		transactions := handlers.NewTransactionsHandler(s.repo, s.reconciler)
		r.Route("/transactions/{type}", func(r chi.Router) {
			r.Get("/", transactions.List)
			r.Patch("/{id}", transactions.Update)
			r.Delete("/{id}", transactions.Delete)
			r.Post("/{id}/unreconcile", transactions.Unreconcile)
		})

		statsHandler := handlers.NewStatsHandler(s.repo)
		r.Get("/stats", statsHandler.Get)

		auditHandler := handlers.NewAuditHandler(s.reconciler)
		r.Get("/audit", auditHandler.Get)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
