// Package testutil provides generators for synthetic attestation material:
// P-384 certificate chains, COSE-signed attestation documents and channel
// key pairs. Everything here is for tests only; the generated chains are
// rooted in throwaway self-signed roots.
package testutil
