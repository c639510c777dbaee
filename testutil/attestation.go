package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha512"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const pcrSize = 48

// TestChain is a synthetic three-certificate chain (root → intermediate →
// leaf) in the shape Nitro attestation documents carry.
type TestChain struct {
	Root         *x509.Certificate
	Intermediate *x509.Certificate
	Leaf         *x509.Certificate

	// RootPEM is the PEM encoding of Root, in the form verifiers pin.
	RootPEM []byte

	// CABundle is [root, intermediate] in transmitted (root-first) order.
	CABundle [][]byte

	// LeafKey signs COSE envelopes for documents built on this chain.
	LeafKey *ecdsa.PrivateKey
}

// GenerateTestChain creates a P-384 chain whose certificates are all valid
// in the given window.
func GenerateTestChain(t *testing.T, notBefore, notAfter time.Time) *TestChain {
	t.Helper()

	rootKey := generateP384Key(t)
	intermediateKey := generateP384Key(t)
	leafKey := generateP384Key(t)

	rootTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-root-ca"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	root := createCertificate(t, rootTemplate, rootTemplate, &rootKey.PublicKey, rootKey)

	intermediateTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(2),
		Subject:               pkix.Name{CommonName: "test-intermediate-ca"},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	intermediate := createCertificate(t, intermediateTemplate, root, &intermediateKey.PublicKey, rootKey)

	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "test-enclave"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	leaf := createCertificate(t, leafTemplate, intermediate, &leafKey.PublicKey, intermediateKey)

	return &TestChain{
		Root:         root,
		Intermediate: intermediate,
		Leaf:         leaf,
		RootPEM:      pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: root.Raw}),
		CABundle:     [][]byte{root.Raw, intermediate.Raw},
		LeafKey:      leafKey,
	}
}

// NewTestChain creates a chain valid for ±24h around the given time.
func NewTestChain(t *testing.T, around time.Time) *TestChain {
	t.Helper()
	return GenerateTestChain(t, around.Add(-24*time.Hour), around.Add(24*time.Hour))
}

func generateP384Key(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generating P-384 key: %v", err)
	}
	return key
}

func createCertificate(t *testing.T, template, parent *x509.Certificate, pub *ecdsa.PublicKey, signer *ecdsa.PrivateKey) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, template, parent, pub, signer)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parsing created certificate: %v", err)
	}
	return cert
}

// TestDocument is a generated attestation document plus the inputs that
// went into it, so tests can compute expected values independently.
type TestDocument struct {
	Raw       []byte
	PCRs      map[uint][]byte
	PublicKey []byte
	Timestamp time.Time
}

type documentParams struct {
	moduleID  string
	timestamp time.Time
	pcrs      map[uint][]byte
	publicKey []byte
	userData  []byte
}

// DocumentOption customizes a generated document.
type DocumentOption func(*documentParams)

// WithTimestamp sets the document's hardware-claimed time.
func WithTimestamp(ts time.Time) DocumentOption {
	return func(p *documentParams) {
		p.timestamp = ts
	}
}

// WithPCR sets the measurement at the given index.
func WithPCR(index uint, value []byte) DocumentOption {
	return func(p *documentParams) {
		p.pcrs[index] = value
	}
}

// WithoutPCR removes the measurement at the given index.
func WithoutPCR(index uint) DocumentOption {
	return func(p *documentParams) {
		delete(p.pcrs, index)
	}
}

// WithPublicKey sets the attested public key embedded in the document.
func WithPublicKey(pk []byte) DocumentOption {
	return func(p *documentParams) {
		p.publicKey = pk
	}
}

// WithUserData sets the document's user_data field.
func WithUserData(data []byte) DocumentOption {
	return func(p *documentParams) {
		p.userData = data
	}
}

// DeterministicPCR returns a 48-byte measurement filled from the seed.
func DeterministicPCR(seed byte) []byte {
	pcr := make([]byte, pcrSize)
	for i := range pcr {
		pcr[i] = seed + byte(i)
	}
	return pcr
}

// testPayload mirrors the attestation document payload layout.
type testPayload struct {
	ModuleID    string          `cbor:"module_id"`
	Digest      string          `cbor:"digest"`
	Timestamp   uint64          `cbor:"timestamp"`
	PCRs        map[uint][]byte `cbor:"pcrs"`
	Certificate []byte          `cbor:"certificate"`
	CABundle    [][]byte        `cbor:"cabundle"`
	PublicKey   []byte          `cbor:"public_key"`
	UserData    []byte          `cbor:"user_data,omitempty"`
	Nonce       []byte          `cbor:"nonce,omitempty"`
}

type coseEnvelope struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[interface{}]interface{}
	Payload     []byte
	Signature   []byte
}

// NewTestDocument builds a COSE-signed attestation document on the given
// chain. Defaults: PCR0/1/2 deterministic measurements, no PCR16, a fixed
// timestamp inside the chain's validity window and a recognizable public
// key.
func NewTestDocument(t *testing.T, chain *TestChain, opts ...DocumentOption) *TestDocument {
	t.Helper()

	params := &documentParams{
		moduleID:  "i-0123456789abcdef0-enc0123456789abcdef",
		timestamp: chain.Leaf.NotBefore.Add(time.Hour),
		pcrs: map[uint][]byte{
			0: DeterministicPCR(0x10),
			1: DeterministicPCR(0x20),
			2: DeterministicPCR(0x30),
		},
		publicKey: DeterministicPCR(0x40)[:32],
	}
	for _, opt := range opts {
		opt(params)
	}

	payload, err := cbor.Marshal(&testPayload{
		ModuleID:    params.moduleID,
		Digest:      "SHA384",
		Timestamp:   uint64(params.timestamp.UnixMilli()),
		PCRs:        params.pcrs,
		Certificate: chain.Leaf.Raw,
		CABundle:    chain.CABundle,
		PublicKey:   params.publicKey,
		UserData:    params.userData,
	})
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}

	raw := signCOSE(t, payload, chain.LeafKey)

	return &TestDocument{
		Raw:       raw,
		PCRs:      params.pcrs,
		PublicKey: params.publicKey,
		Timestamp: params.timestamp,
	}
}

// signCOSE wraps a payload in a COSE_Sign1 envelope signed with ES384.
func signCOSE(t *testing.T, payload []byte, key *ecdsa.PrivateKey) []byte {
	t.Helper()

	protected, err := cbor.Marshal(map[int]int{1: -35}) // alg: ES384
	if err != nil {
		t.Fatalf("encoding protected header: %v", err)
	}

	sigStructure, err := cbor.Marshal([]interface{}{
		"Signature1",
		protected,
		[]byte{},
		payload,
	})
	if err != nil {
		t.Fatalf("encoding Sig_structure: %v", err)
	}

	digest := sha512.Sum384(sigStructure)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	signature := make([]byte, 96)
	r.FillBytes(signature[:48])
	s.FillBytes(signature[48:])

	raw, err := cbor.Marshal(&coseEnvelope{
		Protected:   protected,
		Unprotected: map[interface{}]interface{}{},
		Payload:     payload,
		Signature:   signature,
	})
	if err != nil {
		t.Fatalf("encoding COSE envelope: %v", err)
	}
	return raw
}
