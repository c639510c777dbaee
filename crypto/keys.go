package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the size in bytes of private keys, public keys and shared
// keys. Everything in the channel protocol is X25519/ChaCha20-sized.
const KeySize = 32

// PublicKey is an X25519 public point. Public keys are freely shared and
// appear on the wire only inside attestation documents.
type PublicKey [KeySize]byte

// NewPublicKeyFromBytes creates a PublicKey from a byte slice.
func NewPublicKeyFromBytes(data []byte) (PublicKey, error) {
	var pk PublicKey
	if len(data) != KeySize {
		return pk, fmt.Errorf("invalid public key size: got %d, want %d", len(data), KeySize)
	}
	copy(pk[:], data)
	return pk, nil
}

// NewPublicKeyFromString creates a PublicKey from a hex-encoded string.
func NewPublicKeyFromString(data string) (PublicKey, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return PublicKey{}, fmt.Errorf("invalid hex: %w", err)
	}
	return NewPublicKeyFromBytes(rawBytes)
}

// Bytes returns a copy of the public key bytes.
func (pk PublicKey) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, pk[:])
	return out
}

// String returns the hex-encoded public key. Safe to log.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// PrivateKey is an X25519 private scalar. It is exclusively owned by the
// node holding it and must never be serialized over the wire.
type PrivateKey [KeySize]byte

// NewPrivateKeyFromBytes creates a PrivateKey from a byte slice.
func NewPrivateKeyFromBytes(data []byte) (PrivateKey, error) {
	var sk PrivateKey
	if len(data) != KeySize {
		return sk, fmt.Errorf("invalid private key size: got %d, want %d", len(data), KeySize)
	}
	copy(sk[:], data)
	return sk, nil
}

// Bytes returns a copy of the private key bytes. This exposes sensitive
// key material and should only be used for local persistence.
func (sk PrivateKey) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, sk[:])
	return out
}

// PublicKey derives the public point corresponding to this private scalar.
func (sk PrivateKey) PublicKey() PublicKey {
	var pk PublicKey
	curve25519.ScalarBaseMult((*[KeySize]byte)(&pk), (*[KeySize]byte)(&sk))
	return pk
}

// GenerateKeyPair generates a new X25519 key pair for channel key agreement.
func GenerateKeyPair() (PublicKey, PrivateKey, error) {
	var sk PrivateKey
	if _, err := rand.Read(sk[:]); err != nil {
		return PublicKey{}, sk, fmt.Errorf("generating private key: %w", err)
	}
	return sk.PublicKey(), sk, nil
}

// SharedKey is a Diffie-Hellman shared secret used as the symmetric channel
// key. It is derived once per (local private key, peer public key) pair and
// must never be logged or reused across unrelated peers.
//
// Security: the channel protocol uses the raw X25519 output directly as
// the AEAD key. Raw curve output is not guaranteed uniformly random and
// carries no domain separation; see DeriveSessionKey for the hardened,
// wire-incompatible alternative.
type SharedKey [KeySize]byte

// Bytes returns a copy of the shared key bytes.
func (sk SharedKey) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, sk[:])
	return out
}
