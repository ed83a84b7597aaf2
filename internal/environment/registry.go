package environment

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/codi-gateway/internal/config"
)

// ErrNotConfigured is returned when production is requested but no production credentials were provided.
var ErrNotConfigured = errors.New("environment not configured")

// Registry holds the environments built at startup.
type Registry struct {
	environments map[Name]*Environment
}

// NewRegistry returns a registry of the given environments. Non-production is required.
func NewRegistry(envs ...*Environment) (*Registry, error) {
	r := &Registry{environments: make(map[Name]*Environment, len(envs))}
	for _, e := range envs {
		if e == nil {
			continue
		}
		if _, exists := r.environments[e.Name]; exists {
			return nil, fmt.Errorf("duplicate environment %s", e.Name)
		}
		r.environments[e.Name] = e
	}
	if _, ok := r.environments[NonProduction]; !ok {
		return nil, fmt.Errorf("the %s environment is required", NonProduction)
	}
	return r, nil
}

// Resolve returns the environment selected by a request flag.
func (r *Registry) Resolve(flag string) (*Environment, error) {
	name := ParseName(flag)
	e, ok := r.environments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return e, nil
}

// Environments returns the configured environments, non-production first.
func (r *Registry) Environments() []*Environment {
	var envs []*Environment
	for _, name := range []Name{NonProduction, Production} {
		if e, ok := r.environments[name]; ok {
			envs = append(envs, e)
		}
	}
	return envs
}

// NewRegistryFromConfig loads credentials and the institution registry named in cfg and builds the registry.
func NewRegistryFromConfig(cfg *config.ServerEnvironment, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var institutions map[Name]*Institutions
	if cfg.InstitutionsPath != "" {
		var err error
		institutions, err = LoadInstitutions(cfg.InstitutionsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load institutions: %w", err)
		}
		logger.Info("loaded institution registry",
			slog.String("path", cfg.InstitutionsPath),
			slog.Int("production", institutions[Production].Len()),
			slog.Int("non_production", institutions[NonProduction].Len()),
		)
	}

	build := func(name Name, paths CredentialPaths, endpoints Endpoints) (*Environment, error) {
		creds, err := LoadCredentials(paths)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return New(Options{
			Name:              name,
			Credentials:       creds,
			Endpoints:         endpoints,
			DeliveryTimeout:   cfg.DeliveryTimeout,
			Institutions:      institutions[name],
			InstitutionChecks: cfg.PipelineInstitutionChecks,
		}, logger)
	}

	nonProduction, err := build(NonProduction, CredentialPaths{
		PrivateKeyPath:           cfg.TestPrivateKeyPath,
		Passphrase:               cfg.TestPrivateKeyPassphrase,
		CertificatePath:          cfg.TestCertificatePath,
		NetworkCertificatePath:   cfg.TestNetworkCertificatePath,
		NetworkCertificateSerial: cfg.TestNetworkCertificateSerial,
		APIKey:                   cfg.TestAPIKey,
	}, Endpoints{Primary: cfg.TestPrimaryURL, Secondary: cfg.TestSecondaryURL})
	if err != nil {
		return nil, err
	}

	envs := []*Environment{nonProduction}

	if cfg.ProductionConfigured() {
		production, err := build(Production, CredentialPaths{
			PrivateKeyPath:           cfg.ProdPrivateKeyPath,
			Passphrase:               cfg.ProdPrivateKeyPassphrase,
			CertificatePath:          cfg.ProdCertificatePath,
			NetworkCertificatePath:   cfg.ProdNetworkCertificatePath,
			NetworkCertificateSerial: cfg.ProdNetworkCertificateSerial,
			APIKey:                   cfg.ProdAPIKey,
		}, Endpoints{Primary: cfg.ProdPrimaryURL, Secondary: cfg.ProdSecondaryURL})
		if err != nil {
			return nil, err
		}
		envs = append(envs, production)
	} else {
		logger.Warn("production credentials not configured, production requests will be rejected")
	}

	return NewRegistry(envs...)
}
