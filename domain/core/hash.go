package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// RowHash is the fingerprint of one parsed row, used by duplicate detection.
type RowHash Hash

// NewRowHash fingerprints a row by joining its rendered cells with an
// unlikely delimiter before hashing. Cells must already be rendered to
// their canonical string form by the caller.
func NewRowHash(cells []string) RowHash {
	joined := strings.Join(cells, "\x1f")
	return RowHash(NewHash([]byte(joined)))
}

func (h RowHash) String() string { return Hash(h).String() }
