// JWK (JSON Web Key) publication of the operator's public key
//
// Merchants and operators that receive forwarded results can fetch the signing key from
// /.well-known/jwks.json. The key carries alg PS512 (RSA-PSS with SHA-512, the network scheme)
// and the operator certificate in x5c.
// Reference: https://datatracker.ietf.org/doc/html/rfc7517 (JSON Web Key standard)

package crypto

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/cert"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// RSAPublicKeyToJWK converts a RSA public key to JWK format.
// When certs is not empty the certificates are added as the x5c chain (leaf first).
func RSAPublicKeyToJWK(publicKey *rsa.PublicKey, keyID string, certs ...*x509.Certificate) (jwk.Key, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("public key is nil")
	}
	if keyID == "" {
		return nil, fmt.Errorf("keyID is required")
	}

	// create the jwk key
	key, err := jwk.Import(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from RSA public key: %w", err)
	}

	// Set key ID
	if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}

	// Set algorithm
	if err := key.Set(jwk.AlgorithmKey, jwa.PS512()); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	// Set key usage
	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, fmt.Errorf("failed to set key usage: %w", err)
	}

	if len(certs) > 0 {
		var chain cert.Chain
		for _, c := range certs {
			if err := chain.AddString(base64.StdEncoding.EncodeToString(c.Raw)); err != nil {
				return nil, fmt.Errorf("failed to add certificate to chain: %w", err)
			}
		}
		if err := key.Set(jwk.X509CertChainKey, &chain); err != nil {
			return nil, fmt.Errorf("failed to set x5c: %w", err)
		}
	}

	return key, nil
}

// JWKToRSAPublicKey converts a JWK to an RSA public key using lestrrat-go/jwx
func JWKToRSAPublicKey(key jwk.Key) (*rsa.PublicKey, error) {
	if key == nil {
		return nil, fmt.Errorf("key is nil")
	}

	var raw any
	// Export to raw key
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to export RSA public key: %w", err)
	}

	rsaPublicKey, ok := raw.(*rsa.PublicKey)
	if !ok {
		alg, _ := key.Algorithm()
		return nil, fmt.Errorf("expected RSA public key but got key with algorithm %v and type %T", alg, raw)
	}

	return rsaPublicKey, nil
}

// GenerateKeyIDFromRSAKey generates a key ID from an RSA public key using SHA-256 thumbprint.
// Returns the first 16 characters of the hex-encoded thumbprint (RFC 7638)
func GenerateKeyIDFromRSAKey(publickey *rsa.PublicKey) (string, error) {
	if publickey == nil {
		return "", fmt.Errorf("public key is nil")
	}

	// Import to JWK to calculate thumbprint
	jwkKey, err := jwk.Import(publickey)
	if err != nil {
		return "", fmt.Errorf("failed to import key: %w", err)
	}

	thumbprint, err := jwkKey.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to generate thumbprint: %w", err)
	}

	return fmt.Sprintf("%x", thumbprint)[:16], nil
}

// NewPublicJWKSet builds a JWK set containing the RSA public key with its certificate chain.
func NewPublicJWKSet(publicKey *rsa.PublicKey, certs ...*x509.Certificate) (jwk.Set, error) {
	keyID, err := GenerateKeyIDFromRSAKey(publicKey)
	if err != nil {
		return nil, err
	}

	key, err := RSAPublicKeyToJWK(publicKey, keyID, certs...)
	if err != nil {
		return nil, err
	}

	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, fmt.Errorf("failed to add key to set: %w", err)
	}
	return set, nil
}
