package nitro_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/attested-channel/nitro"
	"github.com/flashbots/attested-channel/testutil"
)

func TestComputeImageIDDeterministic(t *testing.T) {
	pcr0 := testutil.DeterministicPCR(0x10)
	pcr1 := testutil.DeterministicPCR(0x20)
	pcr2 := testutil.DeterministicPCR(0x30)
	pcr16 := make([]byte, 48)

	first := nitro.ComputeImageID(pcr0, pcr1, pcr2, pcr16)
	second := nitro.ComputeImageID(pcr0, pcr1, pcr2, pcr16)
	require.Equal(t, first, second)
	require.Len(t, first, hex.EncodedLen(sha256.Size))

	// Independent recomputation: BE32(0x10007) followed by the four PCRs.
	h := sha256.New()
	h.Write([]byte{0x00, 0x01, 0x00, 0x07})
	h.Write(pcr0)
	h.Write(pcr1)
	h.Write(pcr2)
	h.Write(pcr16)
	require.Equal(t, hex.EncodeToString(h.Sum(nil)), first)
}

func TestComputeImageIDSingleByteEdits(t *testing.T) {
	base := [][]byte{
		testutil.DeterministicPCR(0x10),
		testutil.DeterministicPCR(0x20),
		testutil.DeterministicPCR(0x30),
		make([]byte, 48),
	}
	baseline := nitro.ComputeImageID(base[0], base[1], base[2], base[3])

	// Changing any single byte of any input changes the digest.
	for reg := 0; reg < 4; reg++ {
		for i := 0; i < 48; i += 7 {
			edited := make([][]byte, 4)
			for j := range base {
				edited[j] = append([]byte(nil), base[j]...)
			}
			edited[reg][i] ^= 0xff

			require.NotEqual(t, baseline,
				nitro.ComputeImageID(edited[0], edited[1], edited[2], edited[3]),
				"register %d byte %d", reg, i)
		}
	}
}
