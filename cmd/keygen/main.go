// keygen is a CLI tool for generating operator credentials for local testing:
// a passphrase-protected RSA private key, a self-signed certificate carrying the serial number
// the network would assign, and the public JWK set.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/information-sharing-networks/codi-gateway/internal/version"
	"github.com/spf13/cobra"
)

// file naming convention - name.key, name.pub.pem, name.crt and name.public.jwks
const (
	privateKeyFileNameFormat  = "%s.key"
	publicKeyFileNameFormat   = "%s.pub.pem"
	certificateFileNameFormat = "%s.crt"
	jwksFileNameFormat        = "%s.public.jwks"
)

// passphraseEnvVar is read when --passphrase is not given
const passphraseEnvVar = "KEYGEN_PASSPHRASE"

var (
	name       string
	outputDir  string
	rsaSize    int
	serial     string
	passphrase string
	validity   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Operator credential generator for CoDi testing",
		Long:              "Generate an encrypted RSA private key, a self-signed certificate and a public JWK set for local testing",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair and certificate",
		Long: `Generate a new RSA key pair and a self-signed certificate.

The private key is written as an encrypted PKCS#8 PEM file. The passphrase is taken from
--passphrase or the KEYGEN_PASSPHRASE environment variable.

Example:
  keygen generate --name operator --serial 30001000000500003416 --outputdir ./keys`,
		RunE: runGenerate,
	}

	generateCmd.Flags().StringVarP(&name, "name", "n", "", "File name prefix (e.g., operator) [required]")
	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated files [required]")
	generateCmd.Flags().StringVarP(&serial, "serial", "s", "", "Certificate serial number in decimal [required]")
	generateCmd.Flags().IntVar(&rsaSize, "size", 2048, "RSA key size in bits (2048 or 4096)")
	generateCmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "Private key passphrase (default: $"+passphraseEnvVar+")")
	generateCmd.Flags().DurationVar(&validity, "validity", 365*24*time.Hour, "Certificate validity")
	generateCmd.MarkFlagRequired("name")
	generateCmd.MarkFlagRequired("outputdir")
	generateCmd.MarkFlagRequired("serial")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if rsaSize != 2048 && rsaSize != 4096 {
		return fmt.Errorf("invalid RSA key size: %d (must be 2048 or 4096)", rsaSize)
	}

	serialNumber, ok := new(big.Int).SetString(serial, 10)
	if !ok || serialNumber.Sign() <= 0 {
		return fmt.Errorf("invalid serial: %s (must be a positive decimal number)", serial)
	}

	if passphrase == "" {
		passphrase = os.Getenv(passphraseEnvVar)
	}
	if passphrase == "" {
		return fmt.Errorf("a passphrase is required (--passphrase or %s)", passphraseEnvVar)
	}

	// make the directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Printf("Generating %d-bit RSA key pair: %s\n", rsaSize, name)

	privateKey, err := crypto.GenerateRSAKeyPair(rsaSize)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	keyFile := fmt.Sprintf(privateKeyFileNameFormat, name)
	if err := crypto.SaveEncryptedPrivateKeyToPEMFile(privateKey, passphrase, outputDir, keyFile); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	fmt.Printf("✓ Private key: %s\n", filepath.Join(outputDir, keyFile))

	publicFile := fmt.Sprintf(publicKeyFileNameFormat, name)
	if err := crypto.SavePublicKeyToPEMFile(&privateKey.PublicKey, outputDir, publicFile); err != nil {
		return fmt.Errorf("failed to save public key: %w", err)
	}
	fmt.Printf("✓ Public key:  %s\n", filepath.Join(outputDir, publicFile))

	der, err := crypto.CreateSelfSignedCertificate(privateKey, name, serialNumber, validity)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	certFile := fmt.Sprintf(certificateFileNameFormat, name)
	if err := crypto.SaveCertificateToPEMFile(der, outputDir, certFile); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	fmt.Printf("✓ Certificate: %s (serial: %s)\n", filepath.Join(outputDir, certFile), serialNumber.String())

	cert, err := crypto.ParseCertificatePEM(crypto.EncodeCertificatePEM(der))
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}
	set, err := crypto.NewPublicJWKSet(&privateKey.PublicKey, cert)
	if err != nil {
		return fmt.Errorf("failed to create JWK set: %w", err)
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JWK set: %w", err)
	}
	jwksPath := filepath.Join(outputDir, fmt.Sprintf(jwksFileNameFormat, name))
	if err := os.WriteFile(jwksPath, data, 0644); err != nil {
		return fmt.Errorf("failed to save JWK set: %w", err)
	}
	fmt.Printf("✓ Public JWKS: %s\n", jwksPath)

	return nil
}
