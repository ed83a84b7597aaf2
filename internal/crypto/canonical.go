// canonical.go provides RFC 8785 canonical JSON (gowebpki/jcs).
//
// This form is NOT what the network signs - network signatures are computed over the
// order-preserving text produced by codi.Canonicalize. RFC 8785 is used where a key-order
// independent fingerprint of a payload is needed (e.g. the audit log payload checksum),
// so two notifications carrying the same data hash to the same value.
package crypto

import (
	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	return jcs.Transform(jsonData)
}

// Checksum returns the SHA-256 hex checksum of the RFC 8785 form of jsonData.
func Checksum(jsonData []byte) (string, error) {
	canonical, err := CanonicalizeJSON(jsonData)
	if err != nil {
		return "", WrapValidationError(err, "failed to canonicalize JSON")
	}
	return Hash(canonical)
}
