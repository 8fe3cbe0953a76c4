package bytecode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest is the SHA-256 of a canonical CBOR encoding.
type Digest [32]byte

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses the hex form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("bytecode: parse digest: %w", err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("bytecode: parse digest: want %d bytes, got %d", len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// DigestOf hashes the canonical encoding of v.
func DigestOf(v interface{}) (Digest, error) {
	data, err := MarshalValue(v)
	if err != nil {
		return Digest{}, err
	}
	return sha256.Sum256(data), nil
}

// MethodDigest hashes a single method. Two methods with equal fields hash
// equal regardless of how they were produced.
func MethodDigest(m *Method) (Digest, error) {
	return DigestOf(m)
}

// MethodsDigest hashes an ordered method set.
func MethodsDigest(ms []*Method) (Digest, error) {
	return DigestOf(ms)
}

// ClassDigest hashes a class.
func ClassDigest(c *Class) (Digest, error) {
	return DigestOf(c)
}
