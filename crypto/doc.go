// Package crypto provides the cryptographic primitives for the attested
// channel protocol.
//
// Two concerns live here:
//
//   - Key agreement: X25519 Diffie-Hellman between a local private key and
//     a peer public key, producing the 32-byte channel key. By default the
//     raw shared secret is used directly as the AEAD key. DeriveSessionKey
//     offers an opt-in HKDF stage; both ends must enable it.
//
//   - Authenticated encryption: ChaCha20-Poly1305 with a 96-bit nonce and
//     associated data, wrapped in ChannelCipher.
//
// Keys are fixed-size value types. Private key material never leaves the
// process except through an explicit file write in cmd/common; SharedKey
// values must never be logged.
package crypto
