// Package client implements the initiator side of the attested channel.
//
// An initiator derives the channel key from its own private key and the
// responder's public key, then sends a single encrypted Deliver request or
// a plaintext Compute request per connection. NewAttestedInitiator encodes
// the trust policy of the whole system: the peer public key must come out
// of a fully verified attestation document.
package client
