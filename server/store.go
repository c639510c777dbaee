package server

import "sync"

// PayloadStore holds the most recently delivered plaintext, owned by the
// responder.
//
// Writers win in completion order: a Compute always reads the most
// recently completed Deliver. Concurrent Deliver/Compute pairs across
// connections race, and either order is a valid outcome.
type PayloadStore struct {
	mu        sync.Mutex
	payload   []byte
	delivered bool
}

// Set replaces the stored payload. Called only after authenticated
// decryption succeeds; a failed Deliver never mutates the store.
func (s *PayloadStore) Set(payload []byte) {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = buf
	s.delivered = true
}

// Bytes returns a copy of the stored payload and whether anything has been
// delivered yet.
func (s *PayloadStore) Bytes() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.delivered {
		return nil, false
	}
	out := make([]byte, len(s.payload))
	copy(out, s.payload)
	return out, true
}

// Sum returns the wraparound byte sum of the first two payload bytes. The
// second return is false when nothing has been delivered yet or the
// payload is shorter than two bytes.
func (s *PayloadStore) Sum() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.delivered || len(s.payload) < 2 {
		return 0, false
	}
	return s.payload[0] + s.payload[1], true
}
