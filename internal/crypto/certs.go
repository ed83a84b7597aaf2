package crypto

// certs.go - X.509 certificate handling for the operator and network certificates.
//
// The network identifies certificates by serial number: the webhook carries the serial of the
// operator's certificate (certComercioEnvio) and of the network's signing certificate (certBdeMSello).

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"time"
)

// ParseCertificatePEM parses the first CERTIFICATE block in PEM encoded data.
func ParseCertificatePEM(pemData []byte) (*x509.Certificate, error) {
	certs, err := ParseCertificateChain(pemData)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// ParseCertificateChain parses one or more X.509 certificates from PEM-encoded data.
// The certificates are returned in the order they appear in the PEM data.
//
// Non-certificate blocks are skipped.
func ParseCertificateChain(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate

	rest := pemData
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, WrapCertificateError(err, "failed to parse certificate")
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, NewCertificateError("no certificates found in PEM data")
	}

	return certs, nil
}

// ReadCertificateFromPEMFile reads and parses the first certificate in a PEM file.
func ReadCertificateFromPEMFile(path string) (*x509.Certificate, error) {
	pemData, err := ReadFile(path)
	if err != nil {
		return nil, WrapCertificateError(err, "failed to read certificate")
	}
	return ParseCertificatePEM(pemData)
}

// RSAPublicKeyFromCertificate returns the certificate's public key, which must be RSA.
func RSAPublicKeyFromCertificate(cert *x509.Certificate) (*rsa.PublicKey, error) {
	if cert == nil {
		return nil, NewCertificateError("certificate is nil")
	}
	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, NewCertificateError("certificate does not contain an RSA public key")
	}
	return publicKey, nil
}

// CertificateSerial returns the certificate serial number in the decimal form used on the wire.
func CertificateSerial(cert *x509.Certificate) string {
	if cert == nil || cert.SerialNumber == nil {
		return ""
	}
	return cert.SerialNumber.String()
}

// CreateSelfSignedCertificate creates a self-signed certificate for the key and returns it DER encoded.
// Used for local testing; production certificates are issued by the network.
func CreateSelfSignedCertificate(privateKey *rsa.PrivateKey, commonName string, serial *big.Int, validity time.Duration) ([]byte, error) {
	if privateKey == nil {
		return nil, NewValidationError("private key is nil")
	}
	if serial == nil || serial.Sign() <= 0 {
		return nil, NewValidationError("serial number must be positive")
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, WrapCertificateError(err, "failed to create certificate")
	}
	return der, nil
}

// EncodeCertificatePEM encodes a DER certificate as a PEM CERTIFICATE block.
func EncodeCertificatePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: der,
	})
}

// SaveCertificateToPEMFile writes a DER certificate to a PEM file.
func SaveCertificateToPEMFile(der []byte, baseDir, filename string) error {
	return writeFile(baseDir, filename, EncodeCertificatePEM(der), 0644)
}
