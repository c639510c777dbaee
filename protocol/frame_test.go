package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/attested-channel/crypto"
)

func TestDeliverRoundTrip(t *testing.T) {
	var nonce [crypto.NonceSize]byte
	for i := range nonce {
		nonce[i] = byte(i)
	}
	ciphertext := bytes.Repeat([]byte{0xab}, 40)

	encoded := EncodeDeliver(nonce, ciphertext)
	require.Equal(t, TagDeliver, encoded[0])

	frame, err := ReadFrame(bytes.NewReader(encoded), 1<<16)
	require.NoError(t, err)
	require.Equal(t, TagDeliver, frame.Tag)
	require.Equal(t, nonce, frame.Nonce)
	require.Equal(t, ciphertext, frame.Ciphertext)
}

func TestComputeFrame(t *testing.T) {
	frame, err := ReadFrame(bytes.NewReader(EncodeCompute()), 1<<16)
	require.NoError(t, err)
	require.Equal(t, TagCompute, frame.Tag)
	require.Empty(t, frame.Ciphertext)
}

func TestUnknownTagPassesThrough(t *testing.T) {
	frame, err := ReadFrame(bytes.NewReader([]byte{7, 1, 2, 3}), 1<<16)
	require.NoError(t, err)
	require.Equal(t, byte(7), frame.Tag)
}

func TestTruncatedDeliver(t *testing.T) {
	// Tag plus nonce but no room for an AEAD tag.
	short := make([]byte, 1+crypto.NonceSize+crypto.Overhead-1)
	_, err := ReadFrame(bytes.NewReader(short), 1<<16)
	require.ErrorContains(t, err, "truncated deliver frame")
}

func TestEmptyFrame(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), 1<<16)
	require.ErrorIs(t, err, ErrEmptyFrame)
}

func TestFrameSizeCap(t *testing.T) {
	oversized := make([]byte, 100)
	oversized[0] = TagDeliver
	_, err := ReadFrame(bytes.NewReader(oversized), 99)
	require.ErrorIs(t, err, ErrFrameTooLarge)

	// Exactly at the cap is fine.
	_, err = ReadFrame(bytes.NewReader(oversized), 100)
	require.NoError(t, err)
}
