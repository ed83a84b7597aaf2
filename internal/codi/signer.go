package codi

import (
	"crypto/rsa"
	"crypto/x509"
	"log/slog"
	"sync"

	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
)

// Signer signs canonical strings with the operator's passphrase-protected private key.
// The key is decrypted on first use and kept for the life of the Signer.
type Signer struct {
	logger *slog.Logger
	key    func() (*rsa.PrivateKey, error)
}

// NewSigner returns a Signer for an encrypted PEM private key.
// Decryption errors are reported by Sign, not here.
func NewSigner(keyPEM []byte, passphrase string, logger *slog.Logger) *Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Signer{
		logger: logger,
		key: sync.OnceValues(func() (*rsa.PrivateKey, error) {
			return crypto.DecryptPrivateKey(keyPEM, passphrase)
		}),
	}
}

// Sign returns the base64 RSA-PSS/SHA-512 signature of canonical.
//
// Errors are KEY_DECRYPTION_FAILED or SIGNING_FAILED; the underlying cause is logged.
func (s *Signer) Sign(canonical []byte) (string, error) {
	key, err := s.key()
	if err != nil {
		s.logger.Error("private key decryption failed", slog.String("error", err.Error()))
		return "", NewKeyDecryptionFailedError()
	}
	if key == nil {
		s.logger.Error("private key decryption returned no key")
		return "", NewKeyDecryptionFailedError()
	}

	signature, err := crypto.SignPSSBase64(key, canonical)
	if err != nil {
		s.logger.Error("signing failed", slog.String("error", err.Error()))
		return "", NewSigningFailedError()
	}
	return signature, nil
}

// SignEnvelope canonicalizes env and stores the signature in it.
func (s *Signer) SignEnvelope(env *Envelope) error {
	canonical, err := Canonicalize(env)
	if err != nil {
		return err
	}
	signature, err := s.Sign(canonical)
	if err != nil {
		return err
	}
	env.SetSignature(signature)
	return nil
}

// PublicKey returns the public half of the signing key.
func (s *Signer) PublicKey() (*rsa.PublicKey, error) {
	key, err := s.key()
	if err != nil {
		return nil, NewKeyDecryptionFailedError()
	}
	return &key.PublicKey, nil
}

// Verifier checks signatures against the public key of one certificate.
type Verifier struct {
	certificate *x509.Certificate
	publicKey   *rsa.PublicKey
}

// NewVerifier parses a PEM certificate. A malformed certificate or a non-RSA key is a VERIFICATION_FAILED error.
func NewVerifier(certificatePEM []byte) (*Verifier, error) {
	cert, err := crypto.ParseCertificatePEM(certificatePEM)
	if err != nil {
		return nil, WrapVerificationFailedError(err, "invalid certificate")
	}
	return NewVerifierFromCertificate(cert)
}

func NewVerifierFromCertificate(cert *x509.Certificate) (*Verifier, error) {
	publicKey, err := crypto.RSAPublicKeyFromCertificate(cert)
	if err != nil {
		return nil, WrapVerificationFailedError(err, "invalid certificate")
	}
	return &Verifier{certificate: cert, publicKey: publicKey}, nil
}

// Certificate returns the parsed certificate.
func (v *Verifier) Certificate() *x509.Certificate {
	return v.certificate
}

// Verify reports whether signatureB64 is a valid signature of canonical.
// A signature that does not match is (false, nil); malformed input is a VERIFICATION_FAILED error.
func (v *Verifier) Verify(canonical []byte, signatureB64 string) (bool, error) {
	ok, err := crypto.VerifyPSSBase64(v.publicKey, canonical, signatureB64)
	if err != nil {
		return false, WrapVerificationFailedError(err, "invalid signature")
	}
	return ok, nil
}

// VerifyEnvelope canonicalizes env and verifies its selloDigital.
func (v *Verifier) VerifyEnvelope(env *Envelope) (bool, error) {
	canonical, err := Canonicalize(env)
	if err != nil {
		return false, err
	}
	return v.Verify(canonical, env.Signature)
}

// Verify checks a base64 signature of canonical against the public key in a PEM certificate.
func Verify(canonical []byte, signatureB64 string, certificatePEM []byte) (bool, error) {
	v, err := NewVerifier(certificatePEM)
	if err != nil {
		return false, err
	}
	return v.Verify(canonical, signatureB64)
}
