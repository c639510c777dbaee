package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/flashbots/attested-channel/crypto"
)

// Frame type tags.
const (
	TagDeliver byte = 0
	TagCompute byte = 1
)

// Fixed response strings.
const (
	RespDeliverOK = "Data write suceeded!"
	RespUnknown   = "Unknown msg"

	// RespNoPayload answers a Compute request arriving before any
	// successful Deliver.
	RespNoPayload = "Error: no payload delivered"
)

// AAD is the associated data bound into every Deliver ciphertext.
var AAD = []byte{0x00}

// minDeliverSize is one tag byte, the nonce and at least an AEAD tag.
const minDeliverSize = 1 + crypto.NonceSize + crypto.Overhead

var (
	ErrEmptyFrame    = errors.New("empty request frame")
	ErrFrameTooLarge = errors.New("request frame exceeds size limit")
)

// Frame is a decoded request. For Deliver frames, Nonce and Ciphertext are
// populated; other tags carry no body. Unknown tags are preserved so the
// responder can answer RespUnknown instead of dropping the connection.
type Frame struct {
	Tag        byte
	Nonce      [crypto.NonceSize]byte
	Ciphertext []byte
}

// EncodeDeliver serializes a Deliver frame: tag, nonce, ciphertext.
func EncodeDeliver(nonce [crypto.NonceSize]byte, ciphertext []byte) []byte {
	frame := make([]byte, 0, 1+crypto.NonceSize+len(ciphertext))
	frame = append(frame, TagDeliver)
	frame = append(frame, nonce[:]...)
	frame = append(frame, ciphertext...)
	return frame
}

// EncodeCompute serializes a Compute frame: the bare tag byte.
func EncodeCompute() []byte {
	return []byte{TagCompute}
}

// ReadFrame reads one request frame to end-of-stream, enforcing the size
// cap. The protocol has no length prefix, so the cap is the only bound on
// memory; the caller is responsible for the read deadline.
func ReadFrame(r io.Reader, maxSize int64) (*Frame, error) {
	buf, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	if int64(len(buf)) > maxSize {
		return nil, ErrFrameTooLarge
	}
	if len(buf) == 0 {
		return nil, ErrEmptyFrame
	}

	frame := &Frame{Tag: buf[0]}
	if frame.Tag == TagDeliver {
		if len(buf) < minDeliverSize {
			return nil, fmt.Errorf("truncated deliver frame: %d bytes, need at least %d", len(buf), minDeliverSize)
		}
		copy(frame.Nonce[:], buf[1:1+crypto.NonceSize])
		frame.Ciphertext = buf[1+crypto.NonceSize:]
	}
	return frame, nil
}
