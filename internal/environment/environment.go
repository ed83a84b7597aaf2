// Package environment resolves the credentials, endpoints and institution registry used for a request.
//
// There are two environments: production and non-production. Each is built once at startup
// and is read-only afterwards. Requests select one with an explicit flag: "production" selects
// production, any other value (including none) selects non-production.
package environment

import (
	"crypto/x509"
	"fmt"
	"log/slog"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
)

// Name identifies an environment.
type Name string

const (
	Production    Name = "production"
	NonProduction Name = "non-production"
)

// ParseName maps a request flag to an environment name.
func ParseName(flag string) Name {
	if flag == string(Production) {
		return Production
	}
	return NonProduction
}

// Credentials is the key material of one environment.
type Credentials struct {
	// PrivateKeyPEM is the operator's passphrase-protected private key.
	PrivateKeyPEM []byte
	Passphrase    string

	// CertificatePEM is the operator's certificate issued by the network.
	CertificatePEM []byte

	// NetworkCertificatePEM is the certificate the network signs with.
	NetworkCertificatePEM []byte

	// NetworkCertificateSerial overrides the serial read from NetworkCertificatePEM when set.
	NetworkCertificateSerial string

	// APIKey is the merchant key sent in every payment request.
	APIKey string
}

// Endpoints are the network's redundant ingress points.
type Endpoints struct {
	Primary   string
	Secondary string
}

// Options configures New.
type Options struct {
	Name            Name
	Credentials     Credentials
	Endpoints       Endpoints
	DeliveryTimeout time.Duration

	// Institutions is the registry for this environment, may be nil.
	Institutions *Institutions

	// InstitutionChecks appends the institution and account type checks to the pipeline.
	InstitutionChecks bool
}

// Environment is the immutable, resolved configuration for one environment.
type Environment struct {
	Name            Name
	Endpoints       Endpoints
	APIKey          string
	DeliveryTimeout time.Duration

	// Signer signs outbound requests with the operator key.
	Signer *codi.Signer

	// NetworkVerifier verifies responses and notifications signed by the network.
	NetworkVerifier *codi.Verifier

	OperatorCertificate *x509.Certificate
	Trust               codi.Trust
	Institutions        *Institutions

	// Pipeline validates notifications delivered to this environment's webhook.
	Pipeline *codi.Pipeline
}

// New builds an environment. The private key is decrypted here so that a wrong passphrase
// or a key that does not match the operator certificate is reported at startup.
func New(opts Options, logger *slog.Logger) (*Environment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("environment", string(opts.Name)))

	if opts.Endpoints.Primary == "" || opts.Endpoints.Secondary == "" {
		return nil, fmt.Errorf("%s: primary and secondary endpoints are required", opts.Name)
	}
	if opts.DeliveryTimeout <= 0 {
		return nil, fmt.Errorf("%s: delivery timeout must be greater than zero", opts.Name)
	}
	if opts.InstitutionChecks && opts.Institutions == nil {
		return nil, fmt.Errorf("%s: institution checks enabled without an institution registry", opts.Name)
	}

	operatorCert, err := crypto.ParseCertificatePEM(opts.Credentials.CertificatePEM)
	if err != nil {
		return nil, fmt.Errorf("%s: operator certificate: %w", opts.Name, err)
	}

	networkVerifier, err := codi.NewVerifier(opts.Credentials.NetworkCertificatePEM)
	if err != nil {
		return nil, fmt.Errorf("%s: network certificate: %w", opts.Name, err)
	}

	signer := codi.NewSigner(opts.Credentials.PrivateKeyPEM, opts.Credentials.Passphrase, logger)
	publicKey, err := signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("%s: private key: %w", opts.Name, err)
	}
	if !publicKey.Equal(operatorCert.PublicKey) {
		return nil, fmt.Errorf("%s: private key does not match the operator certificate", opts.Name)
	}

	trust := codi.Trust{
		OperatorCertificateSerial: crypto.CertificateSerial(operatorCert),
		NetworkCertificateSerial:  opts.Credentials.NetworkCertificateSerial,
	}
	if trust.NetworkCertificateSerial == "" {
		trust.NetworkCertificateSerial = crypto.CertificateSerial(networkVerifier.Certificate())
	}

	checks := codi.DefaultChecks(trust)
	if opts.InstitutionChecks {
		checks = append(checks, codi.InstitutionChecks(opts.Institutions)...)
	}

	return &Environment{
		Name:                opts.Name,
		Endpoints:           opts.Endpoints,
		APIKey:              opts.Credentials.APIKey,
		DeliveryTimeout:     opts.DeliveryTimeout,
		Signer:              signer,
		NetworkVerifier:     networkVerifier,
		OperatorCertificate: operatorCert,
		Trust:               trust,
		Institutions:        opts.Institutions,
		Pipeline:            codi.NewPipeline(networkVerifier, checks, logger),
	}, nil
}

// LogValue implements slog.LogValuer.
func (e *Environment) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", string(e.Name)),
		slog.String("primary_url", e.Endpoints.Primary),
		slog.String("secondary_url", e.Endpoints.Secondary),
		slog.String("operator_certificate_serial", e.Trust.OperatorCertificateSerial),
		slog.String("network_certificate_serial", e.Trust.NetworkCertificateSerial),
		slog.Duration("delivery_timeout", e.DeliveryTimeout),
	)
}
