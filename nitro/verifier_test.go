package nitro_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flashbots/attested-channel/nitro"
	"github.com/flashbots/attested-channel/testutil"
)

var testTime = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

// expectedImageID computes the image identity a verifier should expect for
// a generated document.
func expectedImageID(t *testing.T, doc *testutil.TestDocument) string {
	t.Helper()
	pcr16, ok := doc.PCRs[16]
	if !ok {
		pcr16 = make([]byte, 48)
	}
	return nitro.ComputeImageID(doc.PCRs[0], doc.PCRs[1], doc.PCRs[2], pcr16)
}

func newTestVerifier(t *testing.T, rootPEM []byte, imageID string) *nitro.Verifier {
	t.Helper()
	root, err := nitro.ParseRootPEM(rootPEM)
	require.NoError(t, err)
	verifier, err := nitro.NewVerifier(nitro.VerifierConfig{
		Root:            root,
		ExpectedImageID: imageID,
	})
	require.NoError(t, err)
	return verifier
}

func TestVerifyValidDocument(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain)
	verifier := newTestVerifier(t, chain.RootPEM, expectedImageID(t, doc))

	result, err := verifier.Verify(doc.Raw)
	require.NoError(t, err)
	require.Equal(t, doc.PublicKey, result.PublicKey)
	require.Equal(t, expectedImageID(t, doc), result.ImageID)
	require.Equal(t, doc.Timestamp.Truncate(time.Second).Unix(), result.Timestamp.Unix())
	require.NotNil(t, result.Document)
}

func TestVerifyValidDocumentWithPCR16(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain,
		testutil.WithPCR(16, testutil.DeterministicPCR(0x77)))
	verifier := newTestVerifier(t, chain.RootPEM, expectedImageID(t, doc))

	result, err := verifier.Verify(doc.Raw)
	require.NoError(t, err)
	require.Equal(t, doc.PublicKey, result.PublicKey)
}

func TestVerifyImageIDMismatch(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain)
	wantID := expectedImageID(t, doc)
	verifier := newTestVerifier(t, chain.RootPEM, wantID)

	// Same document with one byte of PCR1 flipped.
	flipped := append([]byte(nil), doc.PCRs[1]...)
	flipped[17] ^= 0x01
	tampered := testutil.NewTestDocument(t, chain, testutil.WithPCR(1, flipped))

	_, err := verifier.Verify(tampered.Raw)
	require.ErrorIs(t, err, nitro.ErrImageIDMismatch)
	// The error names both digests for diagnosability.
	require.Contains(t, err.Error(), wantID)
	require.Contains(t, err.Error(), expectedImageID(t, tampered))
}

func TestVerifyMissingRequiredPCR(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain, testutil.WithoutPCR(0))
	verifier := newTestVerifier(t, chain.RootPEM, "irrelevant")

	_, err := verifier.Verify(doc.Raw)
	require.ErrorContains(t, err, "pcr0 not found")
}

func TestVerifyTamperedCOSESignature(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain)
	verifier := newTestVerifier(t, chain.RootPEM, expectedImageID(t, doc))

	// The signature byte string is the last field of the envelope.
	tampered := append([]byte(nil), doc.Raw...)
	tampered[len(tampered)-1] ^= 0x01

	_, err := verifier.Verify(tampered)
	require.ErrorIs(t, err, nitro.ErrCOSESignature)
}

func TestVerifyChainSignature(t *testing.T) {
	legit := testutil.NewTestChain(t, testTime)
	other := testutil.NewTestChain(t, testTime)

	// Leaf from one chain presented with another chain's CA bundle: the
	// COSE signature still verifies against the leaf, but the first chain
	// link cannot.
	mixed := &testutil.TestChain{
		Root:     other.Root,
		Leaf:     legit.Leaf,
		LeafKey:  legit.LeafKey,
		RootPEM:  other.RootPEM,
		CABundle: other.CABundle,
	}
	doc := testutil.NewTestDocument(t, mixed)
	verifier := newTestVerifier(t, other.RootPEM, expectedImageID(t, doc))

	_, err := verifier.Verify(doc.Raw)
	require.ErrorIs(t, err, nitro.ErrChainSignature)
}

func TestVerifyCertificateValidityWindow(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	verifier := func(doc *testutil.TestDocument) error {
		_, err := newTestVerifier(t, chain.RootPEM, expectedImageID(t, doc)).Verify(doc.Raw)
		return err
	}

	// Attestation timestamp before every certificate's notBefore.
	early := testutil.NewTestDocument(t, chain,
		testutil.WithTimestamp(testTime.Add(-48*time.Hour)))
	require.ErrorIs(t, verifier(early), nitro.ErrCertValidity)

	// And after notAfter.
	late := testutil.NewTestDocument(t, chain,
		testutil.WithTimestamp(testTime.Add(48*time.Hour)))
	require.ErrorIs(t, verifier(late), nitro.ErrCertValidity)

	// Inside the window everything passes.
	inside := testutil.NewTestDocument(t, chain, testutil.WithTimestamp(testTime))
	require.NoError(t, verifier(inside))
}

func TestVerifyRootMismatch(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	otherChain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain)

	// Pinning a different root rejects an otherwise self-consistent chain.
	verifier := newTestVerifier(t, otherChain.RootPEM, expectedImageID(t, doc))
	_, err := verifier.Verify(doc.Raw)
	require.ErrorIs(t, err, nitro.ErrRootMismatch)
}

func TestVerifyMissingPublicKey(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	doc := testutil.NewTestDocument(t, chain, testutil.WithPublicKey(nil))
	verifier := newTestVerifier(t, chain.RootPEM, "irrelevant")

	_, err := verifier.Verify(doc.Raw)
	require.ErrorContains(t, err, "public key not found")
}

func TestVerifyGarbageInput(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	verifier := newTestVerifier(t, chain.RootPEM, "irrelevant")

	for _, input := range [][]byte{
		nil,
		{},
		{0x00},
		[]byte("definitely not cbor"),
	} {
		_, err := verifier.Verify(input)
		require.Error(t, err)
	}

	// A truncated but otherwise valid document must also fail to parse.
	doc := testutil.NewTestDocument(t, chain)
	_, err := verifier.Verify(doc.Raw[:len(doc.Raw)/2])
	require.Error(t, err)
}

func TestNewVerifierValidation(t *testing.T) {
	chain := testutil.NewTestChain(t, testTime)
	root, err := nitro.ParseRootPEM(chain.RootPEM)
	require.NoError(t, err)

	_, err = nitro.NewVerifier(nitro.VerifierConfig{Root: nil, ExpectedImageID: "x"})
	require.Error(t, err)
	_, err = nitro.NewVerifier(nitro.VerifierConfig{Root: root})
	require.Error(t, err)

	_, err = nitro.ParseRootPEM([]byte("not pem"))
	require.Error(t, err)
}
