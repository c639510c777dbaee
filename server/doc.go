// Package server implements the responder side of the attested channel: a
// TCP listener that owns the channel cipher, accepts one request frame per
// connection and keeps the last successfully delivered payload.
//
// Connections are served concurrently; the only shared state is the
// payload store, which has last-writer-wins semantics across connections.
// Each connection gets a read deadline and a request size cap before the
// end-of-stream read, since the wire format has no length prefix.
package server
