package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/information-sharing-networks/codi-gateway/internal/audit"
	"github.com/information-sharing-networks/codi-gateway/internal/config"
	"github.com/information-sharing-networks/codi-gateway/internal/database"
	"github.com/information-sharing-networks/codi-gateway/internal/delivery"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/events"
	"github.com/information-sharing-networks/codi-gateway/internal/logger"
	"github.com/information-sharing-networks/codi-gateway/internal/network"
	"github.com/information-sharing-networks/codi-gateway/internal/server"
	"github.com/information-sharing-networks/codi-gateway/internal/version"
	"github.com/spf13/cobra"
)

// CoDi payment gateway: sends signed payment requests to the network and validates the
// result notifications it delivers to the webhook.
func main() {
	cmd := &cobra.Command{
		Use:   "codi-gateway",
		Short: "CoDi payment gateway server",
		Long: `codi-gateway signs payment requests (QR, push, consulta) for the CoDi network and
validates the result notifications the network sends back to the webhook`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
	appLogger.Info("Configuration loaded", slog.Any("config", cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// credentials are decrypted and checked against the certificates here, a bad key stops startup
	registry, err := environment.NewRegistryFromConfig(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to load environments", slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, env := range registry.Environments() {
		appLogger.Info("environment ready", slog.Any("environment", env))
	}

	deps := server.Dependencies{
		Registry: registry,
		Network:  network.NewClient(delivery.NewClient(nil)),
		Audit:    audit.NewLogStore(appLogger),
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, database.PoolConfig{
			DatabaseURL:     cfg.DatabaseURL,
			MaxConnections:  cfg.DBMaxConnections,
			MinConnections:  cfg.DBMinConnections,
			MaxConnLifetime: cfg.DBMaxConnLifetime,
			MaxConnIdleTime: cfg.DBMaxConnIdleTime,
			ConnectTimeout:  cfg.DBConnectTimeout,
			PingTimeout:     cfg.DatabasePingTimeout,
		})
		if err != nil {
			appLogger.Error("Unable to connect to the database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Info("connected to PostgreSQL")

		if err := database.Migrate(ctx, pool, appLogger); err != nil {
			pool.Close()
			appLogger.Error("Failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// get the sqlc generated database queries
		queries := database.New(pool)

		deps.Pool = pool
		deps.DB = queries
		deps.Audit = audit.NewPostgresStore(queries)
	} else {
		appLogger.Warn("DATABASE_URL not set, audit records are written to the log")
	}

	publisher, err := events.New(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create event publisher", slog.String("error", err.Error()))
		os.Exit(1)
	}
	deps.Publisher = publisher

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	// configure the server
	server, err := server.NewServer(cfg, appLogger, deps)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer server.Shutdown()

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
