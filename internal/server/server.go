// Package server is the composition root: it builds the session manager and
// everything around it, and serves the local HTTP adapter.
//
// DEPENDENCY FLOW:
//
//	config.Config → storage.Store ─┐  (memory for ":memory:", sqlite otherwise)
//	              → GoogleProvider ┼→ session.Manager ← NatsPublisher (subscriber)
//	                               │        ↑
//	              → backend.Client ┴→ AuthService → handlers → chi router
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/auth"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/backend"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/config"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/events"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/handler"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/middleware"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/service"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/session"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage/memory"
	"github.com/RRiik-tech/HomeRenovationHub-sub001/internal/storage/sqlite"
)

// memoryStorePath selects the in-process store instead of a database file.
const memoryStorePath = ":memory:"

// Server owns the store, the optional NATS connection and the router.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	store    storage.Store
	closeDB  func() error // nil for the memory store
	sessions *session.Manager
	google   *auth.GoogleProvider // nil when OAuth is not configured
	events   *events.NatsPublisher
	detach   func()
}

// New wires every dependency. The returned Server must be closed, which
// Start does on its way out.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}

	if cfg.StorePath == memoryStorePath {
		logger.Warn("STORE_PATH is :memory:, the session will not survive a restart")
		s.store = memory.New()
	} else {
		db, err := sqlite.New(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening session store: %w", err)
		}
		s.store = db
		s.closeDB = db.Close
	}

	// a nil *GoogleProvider must not end up inside the interface
	var provider session.IdentityProvider
	if cfg.GoogleEnabled() {
		s.google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
		provider = s.google
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, sign-in routes are disabled")
	}

	s.sessions = session.New(context.Background(), s.store, provider, logger)

	if cfg.NatsURL != "" {
		pub, err := events.Connect(cfg.NatsURL, logger)
		if err != nil {
			// events are optional; the adapter works without them
			logger.Warn("NATS unavailable, session events will not be published",
				slog.String("url", cfg.NatsURL),
				slog.String("error", err.Error()),
			)
		} else {
			s.events = pub
			s.detach = pub.Attach(s.sessions)
		}
	}

	s.setupRoutes()
	return s, nil
}

// Sessions returns the manager this server wires.
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// GET  /api/session          → AuthState snapshot
// GET  /api/session/events   → SSE stream of transitions
// POST /api/session/refresh  → re-read user from backend
// GET  /api/me               → signed-in user (401 when anonymous)
// POST /auth/logout          → sign out
// GET  /auth/google/login    → redirect to Google       (when configured)
// GET  /auth/google/callback → finish sign-in           (when configured)
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	users := backend.New(s.config.BackendURL, nil, s.config.HTTPTimeout, s.logger)

	var identities service.IdentityExchanger
	if s.google != nil {
		identities = s.google
	}
	authService := service.NewAuthService(identities, users, s.sessions, s.logger)
	sessionHandler := handler.NewSessionHandler(s.sessions, authService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/session", sessionHandler.HandleSnapshot)
		r.Get("/session/events", sessionHandler.HandleEvents)
		r.Post("/session/refresh", sessionHandler.HandleRefresh)

		r.With(auth.RequireSession(s.sessions)).Get("/me", sessionHandler.HandleMe)
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/logout", sessionHandler.HandleLogout)

		if s.google != nil {
			authHandler := handler.NewAuthHandler(s.google, authService, s.logger)
			r.Get("/google/login", authHandler.HandleGoogleLogin)
			r.Get("/google/callback", authHandler.HandleGoogleCallback)
		}
	})
}

// Close releases the NATS connection and the store.
func (s *Server) Close() error {
	if s.detach != nil {
		s.detach()
	}
	if s.events != nil {
		s.events.Close()
	}
	if s.closeDB != nil {
		return s.closeDB()
	}
	return nil
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
//
// SSE streams never end on their own, so request contexts derive from a
// base context that is cancelled as soon as shutdown begins.
func (s *Server) Start() error {
	defer s.Close()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.config.StorePath),
			slog.Bool("signedIn", s.sessions.State().IsAuthenticated),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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
