package fingerprint

import (
	"crypto/sha256"
	"fmt"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

// Size is the length of a fingerprint in hex characters.
const Size = sha256.Size * 2

var canonicalEncoder = value.Encoder{FormatNumber: value.CanonicalNumber}

// Encode serializes a canonical value: compact JSON, members in stored
// order, no HTML escaping, numbers in one normal form. Non-finite or
// out-of-range numbers are an error.
func Encode(v value.Value) ([]byte, error) {
	data, err := canonicalEncoder.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: cannot serialize canonical form: %w", err)
	}
	return data, nil
}

// Digest hashes a canonical value with SHA-256 and returns lowercase hex.
func Digest(v value.Value) (string, error) {
	data, err := Encode(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Fingerprint canonicalizes d and returns its digest.
func Fingerprint(d *descriptor.Descriptor, opts ...Option) (string, error) {
	canonical, err := Canonicalize(d, opts...)
	if err != nil {
		return "", err
	}
	return Digest(canonical)
}
