// this file contains functions to generate and load the operator's RSA key pair
//
// The network signs and verifies with RSA-PSS, so RSA is the only supported key type.
// Private keys are distributed as passphrase-protected PEM files, either
// PKCS#8 "ENCRYPTED PRIVATE KEY" (https://datatracker.ietf.org/doc/html/rfc5208)
// or the legacy OpenSSL "Proc-Type: 4,ENCRYPTED" form.

package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/youmark/pkcs8"
)

// GenerateRSAKeyPair generates a new RSA key pair with the specified bit size
// minimum key size is 2048 bits (4096 is recommended) - key size must be a multiple of 256
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, NewValidationError("key size must be at least 2048 bits")
	}

	if bits%256 != 0 {
		return nil, NewValidationError("key size should be a multiple of 256")
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate key pair")
	}

	return privateKey, nil
}

// EncryptPrivateKeyToPEM encodes an RSA private key as a passphrase-protected PKCS#8 PEM block
// (PBES2, PBKDF2-SHA256, AES-256-CBC).
func EncryptPrivateKeyToPEM(privateKey *rsa.PrivateKey, passphrase string) ([]byte, error) {
	if privateKey == nil {
		return nil, NewValidationError("private key is nil")
	}
	if passphrase == "" {
		return nil, NewValidationError("passphrase is required")
	}

	der, err := pkcs8.MarshalPrivateKey(privateKey, []byte(passphrase), pkcs8.DefaultOpts)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to encrypt private key")
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "ENCRYPTED PRIVATE KEY",
		Bytes: der,
	}), nil
}

// DecryptPrivateKey decodes a PEM encoded RSA private key, decrypting it with the passphrase when it is encrypted.
//
// Supported forms:
//   - ENCRYPTED PRIVATE KEY (PKCS#8 PBES2)
//   - RSA PRIVATE KEY / PRIVATE KEY with legacy PEM encryption headers
//   - unencrypted RSA PRIVATE KEY (PKCS#1) or PRIVATE KEY (PKCS#8)
//
// All failures are returned as key management errors.
func DecryptPrivateKey(pemData []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, NewKeyManagementError("no PEM block found in private key data")
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		privateKey, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, WrapKeyManagementError(err, "failed to decrypt private key")
		}
		return privateKey, nil
	}

	der := block.Bytes
	// legacy OpenSSL encryption (deprecated in x509 but still issued by the network)
	if x509.IsEncryptedPEMBlock(block) {
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(passphrase))
		if err != nil {
			return nil, WrapKeyManagementError(err, "failed to decrypt private key")
		}
	}

	return parseRSAPrivateKeyDER(der)
}

func parseRSAPrivateKeyDER(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse private key")
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, NewKeyManagementError(fmt.Sprintf("expected RSA private key, got %T", key))
	}
	return rsaKey, nil
}

// ReadFile reads a key or certificate file with access scoped to the file's directory.
func ReadFile(path string) ([]byte, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory %s: %w", filepath.Dir(path), err)
	}
	defer root.Close()

	data, err := root.ReadFile(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// SaveEncryptedPrivateKeyToPEMFile saves an RSA private key to a passphrase-protected PKCS#8 PEM file
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "private.pem")
func SaveEncryptedPrivateKeyToPEMFile(privateKey *rsa.PrivateKey, passphrase, baseDir, filename string) error {
	pemData, err := EncryptPrivateKeyToPEM(privateKey, passphrase)
	if err != nil {
		return err
	}
	return writeFile(baseDir, filename, pemData, 0600)
}

// SavePublicKeyToPEMFile saves an RSA public key to a PEM file in SubjectPublicKeyInfo format
func SavePublicKeyToPEMFile(publicKey *rsa.PublicKey, baseDir, filename string) error {
	pubBytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return WrapKeyManagementError(err, "failed to marshal public key")
	}

	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubBytes,
	})
	return writeFile(baseDir, filename, pemData, 0644)
}

func writeFile(baseDir, filename string, data []byte, perm os.FileMode) error {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
