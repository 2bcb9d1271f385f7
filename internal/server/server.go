// Package server wires the application together: database, services,
// handlers, middleware and routes. It is the composition root — every
// dependency is assembled here and nowhere else.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/palmmar/prommis/internal/auth"
	"github.com/palmmar/prommis/internal/config"
	"github.com/palmmar/prommis/internal/handler"
	"github.com/palmmar/prommis/internal/middleware"
	sqliteRepo "github.com/palmmar/prommis/internal/repository/sqlite"
	"github.com/palmmar/prommis/internal/seed"
	"github.com/palmmar/prommis/internal/service"
	"github.com/palmmar/prommis/internal/stats"
)

// Server owns the router, the database connection and the process
// lifecycle. The database is closed during graceful shutdown so the WAL is
// flushed and the file lock released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server: opens the database, runs migrations, optionally
// seeds demo data and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.SeedDemo {
		if err := seed.Demo(context.Background(), db, logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("seeding demo data: %w", err)
		}
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes assembles the dependency chain and binds it to routes.
//
// Middleware order: RequestID and RealIP first so everything downstream
// sees them, then Recoverer, then logging and metrics around the actual
// handlers.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)

	statsService := service.NewStatsService(s.db.StepEntries(), stats.Swedish{})
	stepService := service.NewStepService(s.db.StepEntries(), s.logger)
	groupService := service.NewGroupService(
		s.db.Groups(), s.db.Memberships(), s.db.Invitations(), statsService, s.logger)
	inviteService := service.NewInviteService(
		s.db.Groups(), s.db.Memberships(), s.db.Invitations(), s.logger)

	stepHandler := handler.NewStepHandler(stepService, s.logger)
	dashboardHandler := handler.NewDashboardHandler(stepService, statsService, s.logger)
	groupHandler := handler.NewGroupHandler(groupService, s.logger)
	inviteHandler := handler.NewInviteHandler(inviteService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/dashboard", dashboardHandler.HandleDashboard)

			r.Post("/steps", stepHandler.HandleCreate)
			r.Put("/steps/{id}", stepHandler.HandleUpdate)
			r.Delete("/steps/{id}", stepHandler.HandleDelete)

			r.Get("/groups", groupHandler.HandleList)
			r.Post("/groups", groupHandler.HandleCreate)
			r.Get("/groups/{id}", groupHandler.HandleDetails)
			r.Delete("/groups/{id}/members/{userId}", groupHandler.HandleRemoveMember)
			r.Post("/groups/{id}/transfer", groupHandler.HandleTransfer)
			r.Post("/groups/{id}/invites", inviteHandler.HandleCreate)

			r.Get("/invites/{token}", inviteHandler.HandlePreview)
			r.Post("/invites/{token}/accept", inviteHandler.HandleAccept)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(tokens))

			r.Get("/admin/groups", groupHandler.HandleListAll)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
