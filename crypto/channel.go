package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

const (
	// NonceSize is the AEAD nonce size in bytes.
	NonceSize = chacha20poly1305.NonceSize

	// Overhead is the AEAD authentication tag size in bytes.
	Overhead = chacha20poly1305.Overhead
)

// sessionKeyInfo is the HKDF context string for DeriveSessionKey.
const sessionKeyInfo = "attested-channel/session-key/v1"

// DeriveSharedKey performs X25519 key agreement and returns the raw shared
// secret, which the channel protocol uses directly as the AEAD key.
//
// The function is total over 32-byte inputs: a malformed or low-order peer
// point is not rejected here, and an all-zero result is passed through. A
// key derived from a garbage peer point simply fails to authenticate
// ciphertexts downstream.
func DeriveSharedKey(privateKey PrivateKey, peerPublicKey PublicKey) SharedKey {
	var shared SharedKey
	//nolint:staticcheck // ScalarMult, unlike X25519, does not error on
	// low-order inputs, which the total-function contract requires.
	curve25519.ScalarMult((*[KeySize]byte)(&shared), (*[KeySize]byte)(&privateKey), (*[KeySize]byte)(&peerPublicKey))
	return shared
}

// DeriveSessionKey performs X25519 key agreement and stretches the shared
// point through HKDF-SHA256 with a fixed context string.
//
// This is NOT wire compatible with peers that use the raw shared secret as
// the channel key. Both ends must opt in.
func DeriveSessionKey(privateKey PrivateKey, peerPublicKey PublicKey, info []byte) (SharedKey, error) {
	raw := DeriveSharedKey(privateKey, peerPublicKey)

	kdf := hkdf.New(sha256.New, raw[:], nil, append([]byte(sessionKeyInfo), info...))
	var session SharedKey
	if _, err := kdf.Read(session[:]); err != nil {
		return SharedKey{}, fmt.Errorf("deriving session key: %w", err)
	}
	return session, nil
}

// ChannelCipher wraps ChaCha20-Poly1305 under a fixed channel key. It is
// stateless and safe for concurrent use; nonce uniqueness is the caller's
// responsibility.
type ChannelCipher struct {
	aead cipher.AEAD
}

// NewChannelCipher creates a cipher for the given channel key.
func NewChannelCipher(key SharedKey) (*ChannelCipher, error) {
	aead, err := chacha20poly1305.New(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}
	return &ChannelCipher{aead: aead}, nil
}

// Seal encrypts and authenticates plaintext, binding the associated data.
// Returns ciphertext with the authentication tag appended.
func (c *ChannelCipher) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size: got %d, want %d", len(nonce), NonceSize)
	}
	return c.aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open authenticates and decrypts ciphertext produced by Seal. Any tag
// mismatch, truncation or associated data mismatch fails closed: an error
// is returned and no partial plaintext is ever released.
func (c *ChannelCipher) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size: got %d, want %d", len(nonce), NonceSize)
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("authenticated decryption failed: %w", err)
	}
	return plaintext, nil
}

// NewNonce generates a fresh random nonce from a cryptographically secure
// source. Nonces must be unique per (key, message).
func NewNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("generating nonce: %w", err)
	}
	return nonce, nil
}
