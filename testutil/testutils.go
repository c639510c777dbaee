package testutil

import (
	"crypto/rand"
	"testing"

	"github.com/flashbots/attested-channel/crypto"
)

// GenerateChannelKeyPair generates an X25519 key pair, failing the test on
// error.
func GenerateChannelKeyPair(t *testing.T) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generating key pair: %v", err)
	}
	return pub, priv
}

// NewChannelCipherPair derives the shared channel key from two fresh key
// pairs and returns one cipher for each end.
func NewChannelCipherPair(t *testing.T) (responder, initiator *crypto.ChannelCipher) {
	t.Helper()
	pubA, privA := GenerateChannelKeyPair(t)
	pubB, privB := GenerateChannelKeyPair(t)

	cipherA, err := crypto.NewChannelCipher(crypto.DeriveSharedKey(privA, pubB))
	if err != nil {
		t.Fatalf("creating responder cipher: %v", err)
	}
	cipherB, err := crypto.NewChannelCipher(crypto.DeriveSharedKey(privB, pubA))
	if err != nil {
		t.Fatalf("creating initiator cipher: %v", err)
	}
	return cipherA, cipherB
}

// RandomBytes generates length random bytes, failing the test on error.
func RandomBytes(t *testing.T, length int) []byte {
	t.Helper()
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("reading random bytes: %v", err)
	}
	return buf
}
