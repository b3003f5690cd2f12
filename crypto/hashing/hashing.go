// Package hashing provides the digest used to link blocks together.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256 implements crypto.Hash using the SHA-256 algorithm.
type Sha256 struct{}

// Hash returns the SHA-256 digest of message.
func (Sha256) Hash(message []byte) []byte {
	digest := sha256.Sum256(message)
	return digest[:]
}

// Hex returns the lowercase hex encoded SHA-256 digest of data.
// This is the string form stored in every block hash field.
func Hex(data []byte) string {
	return hex.EncodeToString(Sha256{}.Hash(data))
}
