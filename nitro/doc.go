// Package nitro verifies AWS Nitro Enclave attestation documents and
// extracts the attested channel public key.
//
// An attestation document is a COSE_Sign1 envelope whose CBOR payload
// carries the enclave's PCR measurements, its leaf certificate, the CA
// bundle, a hardware-claimed timestamp and an attested public key. The
// Verifier treats the document as untrusted input and releases the public
// key only after every gate passes:
//
//  1. Envelope and payload parse (missing required fields are hard errors)
//  2. Image identity: SHA-256 over PCR0/1/2/16 must match the expected ID
//  3. COSE signature against the leaf certificate's key
//  4. Certificate chain walk (signature, issuer/subject, validity window)
//     judged at the document's own timestamp, not the local clock
//  5. Root pinning: the chain must terminate in a byte-identical copy of
//     the single trusted root; no system trust store is consulted
//
// There is no partial-trust state: verification either yields the attested
// public key or an error. Freshness of an otherwise valid document is the
// caller's policy; Result carries the document timestamp for that purpose.
//
// The package also provides document sources: an HTTP Fetcher for remote
// enclaves, an NSMProvider for code running inside an enclave, and a
// StaticProvider for tests and development.
package nitro
