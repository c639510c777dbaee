package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) (*ChannelCipher, SharedKey) {
	t.Helper()
	pubA, _, err := GenerateKeyPair()
	require.NoError(t, err)
	_, privB, err := GenerateKeyPair()
	require.NoError(t, err)

	key := DeriveSharedKey(privB, pubA)
	cipher, err := NewChannelCipher(key)
	require.NoError(t, err)
	return cipher, key
}

func TestSealOpenRoundTrip(t *testing.T) {
	cipher, _ := newTestCipher(t)
	aad := []byte{0x00}

	for _, plaintext := range [][]byte{
		{},
		{12, 43},
		[]byte("hello world"),
		make([]byte, 4096),
	} {
		nonce, err := NewNonce()
		require.NoError(t, err)

		ciphertext, err := cipher.Seal(nonce[:], plaintext, aad)
		require.NoError(t, err)
		require.Len(t, ciphertext, len(plaintext)+Overhead)

		opened, err := cipher.Open(nonce[:], ciphertext, aad)
		require.NoError(t, err)
		require.Equal(t, plaintext, opened)
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	cipher, _ := newTestCipher(t)
	aad := []byte{0x00}

	nonce, err := NewNonce()
	require.NoError(t, err)
	ciphertext, err := cipher.Seal(nonce[:], []byte("attested payload"), aad)
	require.NoError(t, err)

	// Flipping any single bit of the ciphertext or tag must fail closed.
	for i := range ciphertext {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(ciphertext))
			copy(tampered, ciphertext)
			tampered[i] ^= 1 << bit

			_, err := cipher.Open(nonce[:], tampered, aad)
			require.Error(t, err, "bit %d of byte %d", bit, i)
		}
	}
}

func TestOpenRejectsAADMismatch(t *testing.T) {
	cipher, _ := newTestCipher(t)

	nonce, err := NewNonce()
	require.NoError(t, err)
	ciphertext, err := cipher.Seal(nonce[:], []byte("payload"), []byte{0x00})
	require.NoError(t, err)

	_, err = cipher.Open(nonce[:], ciphertext, []byte{0x01})
	require.Error(t, err)
	_, err = cipher.Open(nonce[:], ciphertext, nil)
	require.Error(t, err)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	cipher, _ := newTestCipher(t)
	other, _ := newTestCipher(t)

	nonce, err := NewNonce()
	require.NoError(t, err)
	ciphertext, err := cipher.Seal(nonce[:], []byte("payload"), []byte{0x00})
	require.NoError(t, err)

	_, err = other.Open(nonce[:], ciphertext, []byte{0x00})
	require.Error(t, err)
}

func TestOpenRejectsTruncation(t *testing.T) {
	cipher, _ := newTestCipher(t)

	nonce, err := NewNonce()
	require.NoError(t, err)
	ciphertext, err := cipher.Seal(nonce[:], []byte("payload"), []byte{0x00})
	require.NoError(t, err)

	for _, n := range []int{0, 1, Overhead - 1, len(ciphertext) - 1} {
		_, err := cipher.Open(nonce[:], ciphertext[:n], []byte{0x00})
		require.Error(t, err, "truncated to %d bytes", n)
	}
}

func TestSealRejectsBadNonce(t *testing.T) {
	cipher, _ := newTestCipher(t)

	_, err := cipher.Seal(make([]byte, NonceSize-1), []byte("p"), nil)
	require.Error(t, err)
	_, err = cipher.Open(make([]byte, NonceSize+1), []byte("c"), nil)
	require.Error(t, err)
}
