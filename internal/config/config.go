package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=1048576"`

	// callers of the qr, push and consulta routes must send this value in X-API-Key (disabled when empty)
	ClientAPIKey string `env:"CLIENT_API_KEY"`

	// network delivery settings - each attempt (primary and secondary) gets the full timeout
	DeliveryTimeout time.Duration `env:"DELIVERY_TIMEOUT,default=5s"`

	// webhook validation settings
	PipelineInstitutionChecks bool   `env:"PIPELINE_INSTITUTION_CHECKS,default=false"`
	InstitutionsPath          string `env:"INSTITUTIONS_PATH"`

	// database settings (the audit log is written to the log when DATABASE_URL is not set)
	DatabaseURL         string        `env:"DATABASE_URL"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS,default=4"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS,default=0"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME,default=60m"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME,default=30m"`
	DBConnectTimeout    time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	DatabasePingTimeout time.Duration `env:"DATABASE_PING_TIMEOUT,default=10s"`

	// accepted-result events
	EventsBackend string   `env:"EVENTS_BACKEND,default=none"`
	EventsSubject string   `env:"EVENTS_SUBJECT,default=codi.resultados"`
	NatsURL       string   `env:"NATS_URL"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS,separator=|"`

	// production credentials - optional, requests for the production environment fail when not configured
	ProdPrivateKeyPath           string `env:"PROD_PRIVATE_KEY_PATH"`
	ProdPrivateKeyPassphrase     string `env:"PROD_PRIVATE_KEY_PASSPHRASE"`
	ProdCertificatePath          string `env:"PROD_CERTIFICATE_PATH"`
	ProdNetworkCertificatePath   string `env:"PROD_NETWORK_CERTIFICATE_PATH"`
	ProdNetworkCertificateSerial string `env:"PROD_NETWORK_CERTIFICATE_SERIAL"`
	ProdAPIKey                   string `env:"PROD_API_KEY"`
	ProdPrimaryURL               string `env:"PROD_PRIMARY_URL"`
	ProdSecondaryURL             string `env:"PROD_SECONDARY_URL"`

	// non-production credentials - must be set by environment variables
	TestPrivateKeyPath           string `env:"TEST_PRIVATE_KEY_PATH,required=true"`
	TestPrivateKeyPassphrase     string `env:"TEST_PRIVATE_KEY_PASSPHRASE,required=true"`
	TestCertificatePath          string `env:"TEST_CERTIFICATE_PATH,required=true"`
	TestNetworkCertificatePath   string `env:"TEST_NETWORK_CERTIFICATE_PATH,required=true"`
	TestNetworkCertificateSerial string `env:"TEST_NETWORK_CERTIFICATE_SERIAL"`
	TestAPIKey                   string `env:"TEST_API_KEY,required=true"`
	TestPrimaryURL               string `env:"TEST_PRIMARY_URL,required=true"`
	TestSecondaryURL             string `env:"TEST_SECONDARY_URL,required=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validEventsBackends = map[string]bool{
	"none":  true,
	"nats":  true,
	"kafka": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values.
//
// A .env file in the working directory is loaded first if present. Variables already set in the
// process environment take precedence over the file.
func NewServerConfig() (*ServerEnvironment, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProductionConfigured reports whether the production credential set has been provided.
func (cfg *ServerEnvironment) ProductionConfigured() bool {
	return cfg.ProdPrivateKeyPath != ""
}

// LogValue implements slog.LogValuer. Secrets are not included.
func (cfg *ServerEnvironment) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.Duration("DELIVERY_TIMEOUT", cfg.DeliveryTimeout),
		slog.Bool("PIPELINE_INSTITUTION_CHECKS", cfg.PipelineInstitutionChecks),
		slog.String("INSTITUTIONS_PATH", cfg.InstitutionsPath),
		slog.Bool("DATABASE_URL_SET", cfg.DatabaseURL != ""),
		slog.Bool("CLIENT_API_KEY_SET", cfg.ClientAPIKey != ""),
		slog.String("EVENTS_BACKEND", cfg.EventsBackend),
		slog.Bool("PRODUCTION_CONFIGURED", cfg.ProductionConfigured()),
		slog.String("TEST_PRIMARY_URL", cfg.TestPrimaryURL),
		slog.String("TEST_SECONDARY_URL", cfg.TestSecondaryURL),
		slog.String("PROD_PRIMARY_URL", cfg.ProdPrimaryURL),
		slog.String("PROD_SECONDARY_URL", cfg.ProdSecondaryURL),
	)
}

// validateConfig checks for required env variables
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be greater than zero")
	}
	if cfg.MaxRequestSize < 1 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1")
	}

	// Validate database pool configuration
	if cfg.DBMaxConnections < 1 {
		return fmt.Errorf("DB_MAX_CONNECTIONS must be at least 1")
	}
	if cfg.DBMinConnections < 0 {
		return fmt.Errorf("DB_MIN_CONNECTIONS must be 0 or greater")
	}
	if cfg.DBMinConnections > cfg.DBMaxConnections {
		return fmt.Errorf("DB_MIN_CONNECTIONS (%d) cannot be greater than DB_MAX_CONNECTIONS (%d)",
			cfg.DBMinConnections, cfg.DBMaxConnections)
	}

	if cfg.PipelineInstitutionChecks && cfg.InstitutionsPath == "" {
		return fmt.Errorf("INSTITUTIONS_PATH is required when PIPELINE_INSTITUTION_CHECKS is enabled")
	}

	cfg.EventsBackend = strings.ToLower(cfg.EventsBackend)
	if !validEventsBackends[cfg.EventsBackend] {
		return fmt.Errorf("invalid EVENTS_BACKEND: %s", cfg.EventsBackend)
	}
	if cfg.EventsBackend == "nats" && cfg.NatsURL == "" {
		return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND is nats")
	}
	if cfg.EventsBackend == "kafka" && len(cfg.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_BACKEND is kafka")
	}

	// the production set is all or nothing
	if cfg.ProductionConfigured() {
		missing := []string{}
		for _, v := range []struct{ name, value string }{
			{"PROD_PRIVATE_KEY_PASSPHRASE", cfg.ProdPrivateKeyPassphrase},
			{"PROD_CERTIFICATE_PATH", cfg.ProdCertificatePath},
			{"PROD_NETWORK_CERTIFICATE_PATH", cfg.ProdNetworkCertificatePath},
			{"PROD_API_KEY", cfg.ProdAPIKey},
			{"PROD_PRIMARY_URL", cfg.ProdPrimaryURL},
			{"PROD_SECONDARY_URL", cfg.ProdSecondaryURL},
		} {
			if v.value == "" {
				missing = append(missing, v.name)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("PROD_PRIVATE_KEY_PATH is set but the production credential set is incomplete, missing: %s",
				strings.Join(missing, ", "))
		}
	}

	return nil
}
