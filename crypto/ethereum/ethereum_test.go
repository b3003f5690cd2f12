package ethereum

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestSignVerify(t *testing.T) {
	signer := NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)

	message := []byte(`{"action":"create","data":{"vin":"VF1RFB00557775685"}}`)
	sig, err := signer.Sign(message)
	qt.Assert(t, err, qt.IsNil)

	valid, err := signer.Verify(message, sig)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsTrue)

	// tampering with the payload must break the signature
	valid, err = signer.Verify([]byte(`{"action":"delete","data":{"vin":"VF1RFB00557775685"}}`), sig)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, valid, qt.IsFalse)
}

func TestVerifySender(t *testing.T) {
	signer := NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)

	verifier := NewSignKeys()
	verifier.AddAuthKey(signer.Address())

	message := []byte("ownership change")
	sig, err := signer.Sign(message)
	qt.Assert(t, err, qt.IsNil)

	authorized, addr, err := verifier.VerifySender(message, sig)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, authorized, qt.IsTrue)
	qt.Assert(t, addr, qt.Equals, signer.Address())

	// a signature from an unknown key recovers fine but is not authorized
	stranger := NewSignKeys()
	qt.Assert(t, stranger.Generate(), qt.IsNil)
	sig, err = stranger.Sign(message)
	qt.Assert(t, err, qt.IsNil)
	authorized, _, err = verifier.VerifySender(message, sig)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, authorized, qt.IsFalse)
}

func TestAddrFromPublicKey(t *testing.T) {
	signer := NewSignKeys()
	qt.Assert(t, signer.Generate(), qt.IsNil)

	pubHex, privHex := signer.HexString()
	qt.Assert(t, len(pubHex), qt.Equals, PubKeyLength)

	pub2, err := PubKeyFromPrivateKey(privHex)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, pub2, qt.Equals, pubHex)

	addr, err := AddrFromPublicKey(pubHex)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, addr, qt.Equals, signer.Address())
}
