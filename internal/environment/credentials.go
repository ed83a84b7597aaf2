package environment

import (
	"fmt"

	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
)

// CredentialPaths locates the credential files of one environment.
type CredentialPaths struct {
	PrivateKeyPath           string
	Passphrase               string
	CertificatePath          string
	NetworkCertificatePath   string
	NetworkCertificateSerial string
	APIKey                   string
}

// LoadCredentials reads the key and certificate files.
func LoadCredentials(paths CredentialPaths) (Credentials, error) {
	keyPEM, err := crypto.ReadFile(paths.PrivateKeyPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("private key %s: %w", paths.PrivateKeyPath, err)
	}

	certPEM, err := crypto.ReadFile(paths.CertificatePath)
	if err != nil {
		return Credentials{}, fmt.Errorf("certificate %s: %w", paths.CertificatePath, err)
	}

	networkCertPEM, err := crypto.ReadFile(paths.NetworkCertificatePath)
	if err != nil {
		return Credentials{}, fmt.Errorf("network certificate %s: %w", paths.NetworkCertificatePath, err)
	}

	return Credentials{
		PrivateKeyPEM:            keyPEM,
		Passphrase:               paths.Passphrase,
		CertificatePEM:           certPEM,
		NetworkCertificatePEM:    networkCertPEM,
		NetworkCertificateSerial: paths.NetworkCertificateSerial,
		APIKey:                   paths.APIKey,
	}, nil
}
