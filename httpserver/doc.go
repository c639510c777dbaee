// Package httpserver serves the enclave's attestation document over HTTP.
//
// The only domain route is GET /attestation/raw, which returns a freshly
// generated document from the configured provider. Documents are never
// cached, so every verifier gets a current timestamp. The server carries
// the usual operational surface: health endpoints, drain/undrain for load
// balancers, optional pprof and an optional metrics listener.
package httpserver
