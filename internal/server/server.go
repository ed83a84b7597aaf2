package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/codi-gateway/internal/audit"
	"github.com/information-sharing-networks/codi-gateway/internal/config"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/events"
	"github.com/information-sharing-networks/codi-gateway/internal/logger"
	"github.com/information-sharing-networks/codi-gateway/internal/network"
	"github.com/information-sharing-networks/codi-gateway/internal/server/handlers"
	gatewaymiddleware "github.com/information-sharing-networks/codi-gateway/internal/server/middleware"
	"github.com/information-sharing-networks/codi-gateway/internal/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// Dependencies are the services built at startup and shared by the handlers.
type Dependencies struct {
	Registry  *environment.Registry
	Network   *network.Client
	Audit     audit.Store
	Publisher events.Publisher
	JWKSet    jwk.Set

	// Pool is nil when no database is configured.
	Pool *pgxpool.Pool
	// DB is pinged by the readiness check, nil when no database is configured.
	DB handlers.Pinger
}

type Server struct {
	config *config.ServerEnvironment
	logger *slog.Logger
	router *chi.Mux
	deps   Dependencies
}

func NewServer(cfg *config.ServerEnvironment, logger *slog.Logger, deps Dependencies) (*Server, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("an environment registry is required")
	}
	if deps.Network == nil {
		return nil, fmt.Errorf("a network client is required")
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewLogStore(logger)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.JWKSet == nil {
		set, err := deps.Registry.PublicJWKSet()
		if err != nil {
			return nil, fmt.Errorf("failed to create JWK set: %w", err)
		}
		deps.JWKSet = set
	}

	server := &Server{
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
		deps:   deps,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// Router returns the configured router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(gatewaymiddleware.SecurityHeaders(s.config.Environment))
	s.router.Use(gatewaymiddleware.RequestSizeLimit(s.config.MaxRequestSize))
}

func (s *Server) registerRoutes() {
	webhookHandler := handlers.NewWebhookHandler(s.deps.Registry, s.deps.Audit, s.deps.Publisher)
	paymentsHandler := handlers.NewPaymentsHandler(s.deps.Registry, s.deps.Network, s.deps.Audit)

	s.router.Route("/health", func(r chi.Router) {
		r.Get("/live", handlers.HandleHealth)
		r.Get("/ready", handlers.HandleReadiness(s.deps.DB))
	})
	s.router.Get("/version", handlers.HandleVersion(version.Get()))
	s.router.Get("/.well-known/jwks.json", handlers.HandleJWKS(s.deps.JWKSet))

	s.router.Route("/v1", func(r chi.Router) {
		// called by the network, authenticated by the notification signature
		r.Post("/webhook/{environment}", webhookHandler.HandleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(gatewaymiddleware.APIKey(s.config.ClientAPIKey))

			r.Post("/qr", paymentsHandler.HandleQR)
			r.Post("/push", paymentsHandler.HandlePush)
			r.Post("/consulta", paymentsHandler.HandleConsulta)
		})
	})
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Shutdown releases the event publisher and the database pool.
func (s *Server) Shutdown() {
	if err := s.deps.Publisher.Close(); err != nil {
		s.logger.Warn("event publisher close error", slog.String("error", err.Error()))
	}
	if s.deps.Pool != nil {
		s.deps.Pool.Close()
		s.logger.Info("database connection closed")
	}
}
