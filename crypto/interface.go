// Package crypto contains the cryptographic interfaces used by the ledger.
// They are a simpler version of similar interfaces found in the standard
// library, such as hash.Hash and crypto.Signer.
//
// These interfaces are meant to sign or hash small chunks of bytes. Working
// with []byte directly can be simpler. However, be careful to not use chunks
// of bytes larger than a few megabytes, as that could significantly increase
// the memory and cpu overhead.
package crypto

// KeyPair is common to any public key cryptography algorithm.
type KeyPair interface {
	Public() []byte
	Private() []byte
}

// Signer represents a public key cryptography algorithm to sign and verify
// messages.
type Signer interface {
	KeyPair

	Sign(message []byte) ([]byte, error)
	Verify(message, signature []byte) error
}

// Hash represents cryptographic hash algorithms.
type Hash interface {
	Hash(message []byte) []byte
}
