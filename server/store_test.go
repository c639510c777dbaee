package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPayloadStoreEmpty(t *testing.T) {
	store := &PayloadStore{}

	_, ok := store.Bytes()
	require.False(t, ok)
	_, ok = store.Sum()
	require.False(t, ok)
}

func TestPayloadStoreSum(t *testing.T) {
	store := &PayloadStore{}

	store.Set([]byte{12, 43})
	sum, ok := store.Sum()
	require.True(t, ok)
	require.Equal(t, byte(55), sum)

	// Wraparound byte arithmetic.
	store.Set([]byte{200, 100})
	sum, ok = store.Sum()
	require.True(t, ok)
	require.Equal(t, byte(44), sum)

	// Last writer wins.
	store.Set([]byte{1, 2, 99, 99})
	sum, ok = store.Sum()
	require.True(t, ok)
	require.Equal(t, byte(3), sum)
}

func TestPayloadStoreShortPayload(t *testing.T) {
	store := &PayloadStore{}

	// A delivered payload shorter than two bytes is stored but cannot be
	// summed.
	store.Set([]byte{7})
	payload, ok := store.Bytes()
	require.True(t, ok)
	require.Equal(t, []byte{7}, payload)

	_, ok = store.Sum()
	require.False(t, ok)
}

func TestPayloadStoreCopies(t *testing.T) {
	store := &PayloadStore{}

	input := []byte{1, 2}
	store.Set(input)
	input[0] = 9

	payload, ok := store.Bytes()
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, payload)

	payload[1] = 9
	again, _ := store.Bytes()
	require.Equal(t, []byte{1, 2}, again)
}
