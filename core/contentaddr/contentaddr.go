// Package contentaddr computes the integrity fingerprint that binds a dataset
// payload to its storage location. The digest is over the exact serialized
// bytes handed to the publisher, so whitespace or key-order differences change
// the address.
package contentaddr

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"
)

// Digest returns the keccak-256 digest of payload as 0x-prefixed lowercase hex
func Digest(payload []byte) string {
	return crypto.Keccak256Hash(payload).Hex()
}

// Canonical produces the single JSON serialization used for both hashing and
// publishing, keeping the content hash bound 1:1 to the published bytes.
func Canonical(v interface{}) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, xerrors.Errorf("serialize payload: %w", err)
	}
	return payload, nil
}
