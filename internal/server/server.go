// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root — the one place where the whole
// dependency chain is assembled:
//
//	config.Config → sqlite.DB → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services, and nothing below the handler layer
// knows HTTP exists.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/minjae-dev/study-planner-api/internal/auth"
	"github.com/minjae-dev/study-planner-api/internal/config"
	"github.com/minjae-dev/study-planner-api/internal/handler"
	"github.com/minjae-dev/study-planner-api/internal/middleware"
	sqliteRepo "github.com/minjae-dev/study-planner-api/internal/repository/sqlite"
	"github.com/minjae-dev/study-planner-api/internal/service"
)

// Server owns the router, the listening socket, and the database
// connection. The connection is closed during graceful shutdown, after
// in-flight requests have drained.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the full application and returns a Server ready to Start.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.AccessTTL,
		cfg.RefreshTTL,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /                            → API index (JSON)
//	GET    /health                      → liveness probe
//	GET    /health/db                   → database probe
//	GET    /auth/google                 → redirect to Google consent
//	GET    /auth/google/callback        → OAuth callback, sets cookies
//	POST   /auth/refresh                → new access token from refresh cookie
//	POST   /auth/logout                 → clear token cookies
//	GET    /auth/me                     → current user           [auth]
//	GET    /api/subjects                → list subjects          [auth]
//	POST   /api/subjects                → create subject         [auth]
//	GET    /api/subjects/{id}           → get subject            [auth]
//	PUT    /api/subjects/{id}           → update subject         [auth]
//	DELETE /api/subjects/{id}           → delete subject         [auth]
//	GET    /api/subjects/{id}/sessions  → list study sessions    [auth]
//	POST   /api/subjects/{id}/sessions  → log study session      [auth]
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
// RequestID → RealIP → Recoverer → Logger → CORS, then per-group auth.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// The browser sends token cookies cross-origin from the frontend, so
	// CORS must both name the exact origin and allow credentials — the
	// wildcard origin is forbidden alongside credentials.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Wiring ===
	google := auth.NewGoogleProvider(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.CallbackURL())
	authSvc := service.NewAuthService(s.db.Users(), s.db.OAuthAccounts(), tokens, s.logger)
	studySvc := service.NewStudyService(s.db.Subjects(), s.db.StudySessions(), s.logger)

	authHandler := handler.NewAuthHandler(google, authSvc, s.cfg, s.logger)
	studyHandler := handler.NewStudyHandler(studySvc, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.cfg.AppEnv, s.logger)
	indexHandler := handler.NewIndexHandler()

	requireAuth := auth.RequireAuth(tokens)

	// === Routes ===
	s.router.Get("/", indexHandler.HandleIndex)
	s.router.Get("/health", healthHandler.HandleHealth)
	s.router.Get("/health/db", healthHandler.HandleHealthDB)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/subjects", studyHandler.HandleListSubjects)
		r.Post("/subjects", studyHandler.HandleCreateSubject)
		r.Get("/subjects/{id}", studyHandler.HandleGetSubject)
		r.Put("/subjects/{id}", studyHandler.HandleUpdateSubject)
		r.Delete("/subjects/{id}", studyHandler.HandleDeleteSubject)
		r.Get("/subjects/{id}/sessions", studyHandler.HandleListSessions)
		r.Post("/subjects/{id}/sessions", studyHandler.HandleLogSession)
	})

	// Unknown routes get the same JSON error shape as everything else.
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not_found","message":"Route not found"}`))
	})
}

// Router exposes the configured router, mainly for tests that want to
// drive the full middleware chain without a listening socket.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, and finally close the database (flushes the WAL and
// releases the file lock).
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("env", s.cfg.AppEnv),
			slog.String("database", s.cfg.DBPath),
			slog.String("frontend", s.cfg.FrontendURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
