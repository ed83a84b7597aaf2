package environment

import (
	"fmt"

	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// PublicJWKSet returns the operator public keys of all environments with their certificates.
// Environments that share a key appear once.
func (r *Registry) PublicJWKSet() (jwk.Set, error) {
	set := jwk.NewSet()
	seen := map[string]bool{}

	for _, e := range r.Environments() {
		publicKey, err := e.Signer.PublicKey()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		keyID, err := crypto.GenerateKeyIDFromRSAKey(publicKey)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		if seen[keyID] {
			continue
		}
		seen[keyID] = true

		key, err := crypto.RSAPublicKeyToJWK(publicKey, keyID, e.OperatorCertificate)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("%s: failed to add key to set: %w", e.Name, err)
		}
	}
	return set, nil
}
