package hashing

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHex(t *testing.T) {
	// well known SHA-256 vectors
	qt.Assert(t, Hex(nil), qt.Equals,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	qt.Assert(t, Hex([]byte("hello")), qt.Equals,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")

	// same input, same digest
	qt.Assert(t, Hex([]byte("hello")), qt.Equals, Hex([]byte("hello")))
	qt.Assert(t, Hex([]byte("hello")) == Hex([]byte("hello ")), qt.IsFalse)
}
