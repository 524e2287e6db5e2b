// Package server wires handlers, middleware, and routes into an HTTP server.
//
// This is the composition root: the whole dependency chain — store →
// service → handlers — is assembled in New, and nothing below it reaches
// for configuration or globals.
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

	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/auth"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/config"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/handler"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/middleware"
	sqliteRepo "github.com/HashWarlock/ai16z-dev-rewards-poc/internal/repository/sqlite"
	"github.com/HashWarlock/ai16z-dev-rewards-poc/internal/service"
)

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the server from configuration.
//
// Providers are optional: a provider without credentials simply has no
// routes. Starting with neither is refused — the service would have no way
// to create an account.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if !cfg.GitHub.Enabled() && !cfg.Discord.Enabled() {
		return nil, fmt.Errorf("no OAuth provider configured: set GITHUB_* or DISCORD_* credentials")
	}

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

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the middleware stack and the route table.
//
// Route structure:
//
//	GET  /healthz                      → liveness + store reachability
//	GET  /api/auth/{provider}          → start the provider's OAuth flow
//	GET  /api/auth/{provider}/callback → complete it (OptionalAuth: links when a session exists)
//	POST /api/auth/logout              → clear the session cookie
//	GET  /api/user                     → the session's account (RequireAuth)
//	POST /api/wallet                   → bind a wallet address (RequireAuth)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	identities := service.NewIdentityService(s.db, s.logger)
	accounts := handler.NewAccountHandler(identities, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if s.config.GitHub.Enabled() {
				s.mountProvider(r, tokens, handler.NewAuthHandler(
					auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret),
					s.callbackURL(s.config.GitHub, "github"),
					tokens, identities, s.logger,
				), "github")
			}
			if s.config.Discord.Enabled() {
				s.mountProvider(r, tokens, handler.NewAuthHandler(
					auth.NewDiscordProvider(s.config.Discord.ClientID, s.config.Discord.ClientSecret),
					s.callbackURL(s.config.Discord, "discord"),
					tokens, identities, s.logger,
				), "discord")
			}

			r.Post("/logout", handler.HandleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/user", accounts.HandleMe)
			r.Post("/wallet", accounts.HandleBindWallet)
		})
	})

	return nil
}

// mountProvider registers one provider's login and callback routes. The
// callback runs behind OptionalAuth: anonymous callers log in, callers with
// a session link the new provider onto their account.
func (s *Server) mountProvider(r chi.Router, tokens *auth.TokenService, h *handler.AuthHandler, name string) {
	r.Get("/"+name, h.HandleLogin)
	r.With(auth.OptionalAuth(tokens)).Get("/"+name+"/callback", h.HandleCallback)
}

// callbackURL resolves the static callback URL for a provider, preferring an
// explicit per-provider setting, then PUBLIC_URL, then empty — in which case
// the handler derives it per request from forwarded headers.
func (s *Server) callbackURL(p config.OAuthProvider, name string) string {
	if p.CallbackURL != "" {
		return p.CallbackURL
	}
	if s.config.PublicURL != "" {
		return fmt.Sprintf("%s/api/auth/%s/callback", s.config.PublicURL, name)
	}
	return ""
}

// Handler exposes the assembled router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// shutdown path. Start closes the database itself.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully:
// stop accepting connections, drain in-flight requests, close the database.
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
			slog.Bool("github", s.config.GitHub.Enabled()),
			slog.Bool("discord", s.config.Discord.Enabled()),
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
