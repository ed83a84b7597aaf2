// pss.go implements the network's signature scheme: RSASSA-PSS with SHA-512 and a salt
// as long as the digest (64 bytes). Signatures travel base64 (standard encoding) in the
// selloDigital field.

package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"strings"
)

var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA512,
}

// SignPSS signs data with RSA-PSS/SHA-512 and returns the raw signature.
func SignPSS(privateKey *rsa.PrivateKey, data []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, NewValidationError("private key is nil")
	}

	digest := sha512.Sum512(data)
	signature, err := rsa.SignPSS(rand.Reader, privateKey, crypto.SHA512, digest[:], pssOptions)
	if err != nil {
		return nil, WrapInternalError(err, "failed to sign data")
	}
	return signature, nil
}

// SignPSSBase64 signs data and returns the signature in standard base64 encoding.
func SignPSSBase64(privateKey *rsa.PrivateKey, data []byte) (string, error) {
	signature, err := SignPSS(privateKey, data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(signature), nil
}

// VerifyPSS reports whether signature is a valid RSA-PSS/SHA-512 signature of data.
//
// A signature that does not match returns false with a nil error.
// An error is returned only when the inputs can not be evaluated (nil key).
func VerifyPSS(publicKey *rsa.PublicKey, data, signature []byte) (bool, error) {
	if publicKey == nil {
		return false, NewValidationError("public key is nil")
	}

	digest := sha512.Sum512(data)
	err := rsa.VerifyPSS(publicKey, crypto.SHA512, digest[:], signature, pssOptions)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, rsa.ErrVerification) {
		return false, nil
	}
	return false, WrapSignatureError(err, "failed to verify signature")
}

// VerifyPSSBase64 decodes a base64 signature and verifies it.
// Malformed base64 is an error; a well-formed signature that does not match is (false, nil).
func VerifyPSSBase64(publicKey *rsa.PublicKey, data []byte, signatureB64 string) (bool, error) {
	signatureB64 = strings.TrimSpace(signatureB64)
	if signatureB64 == "" {
		return false, NewSignatureError("signature is empty")
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, WrapSignatureError(err, "failed to decode signature")
	}
	return VerifyPSS(publicKey, data, signature)
}
