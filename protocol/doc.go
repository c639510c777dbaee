// Package protocol defines the wire format of the attested channel.
//
// A connection carries exactly one request frame and one response. The
// request is read to end-of-stream under a size cap; byte 0 is the type
// tag:
//
//	tag 0 (Deliver): bytes 1..12 are the AEAD nonce, the rest is
//	ciphertext with the authentication tag appended. Associated data is
//	the single byte 0x00.
//	tag 1 (Compute): no body.
//	anything else:  answered with RespUnknown.
//
// The response is a human-readable string with no length prefix; the
// responder closing its write side delimits it. The response strings are
// part of the wire format and must not change, typo included.
package protocol
