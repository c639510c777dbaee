package nitro

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

// Verification failures are definitive security-relevant rejections, never
// downgraded to warnings. They are distinguishable with errors.Is so
// callers and tests can tell the gates apart.
var (
	ErrImageIDMismatch = errors.New("image_id mismatch")
	ErrCOSESignature   = errors.New("cose signature verification failed")
	ErrChainSignature  = errors.New("certificate signature verification failed")
	ErrIssuerMismatch  = errors.New("certificate issuer and subject verification failed")
	ErrCertValidity    = errors.New("certificate timestamp expired/not valid")
	ErrRootMismatch    = errors.New("root certificate mismatch")
)

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Root is the single trusted root certificate. Chains are pinned to
	// it byte-for-byte; no system trust store is ever consulted.
	Root *x509.Certificate

	// ExpectedImageID is the hex-encoded image identity digest the
	// document's PCR measurements must reproduce.
	ExpectedImageID string
}

// Verifier validates attestation documents against a pinned root and an
// expected image identity. It is stateless and safe for concurrent use.
type Verifier struct {
	cfg VerifierConfig
}

// Result is the output of a successful verification.
type Result struct {
	// PublicKey is the attested public key embedded in the document. It is
	// only released after every verification gate has passed.
	PublicKey []byte

	// ImageID is the image identity recomputed from the document's PCRs.
	ImageID string

	// Timestamp is the document's hardware-claimed time. Replay of an old
	// but otherwise valid document is the caller's policy to enforce.
	Timestamp time.Time

	// Document is the fully verified payload.
	Document *Document
}

// NewVerifier creates a verifier for the given pinned root and expected
// image identity.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if cfg.Root == nil {
		return nil, errors.New("trusted root certificate cannot be nil")
	}
	if cfg.ExpectedImageID == "" {
		return nil, errors.New("expected image id cannot be empty")
	}
	return &Verifier{cfg: cfg}, nil
}

// ParseRootPEM parses a PEM-encoded trusted root certificate.
func ParseRootPEM(pemBytes []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("no certificate PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing root certificate: %w", err)
	}
	return cert, nil
}

// Verify runs the full attestation verification pipeline over a raw
// document and returns the attested public key on success.
//
// Every step is a hard gate; any failure aborts verification with no
// partial trust. Certificate validity is judged at the document's own
// timestamp, not the verifier's clock, so a document is accepted or
// rejected on its self-consistency alone.
func (v *Verifier) Verify(docBytes []byte) (*Result, error) {
	envelope, err := parseCOSESign1(docBytes)
	if err != nil {
		return nil, err
	}

	doc, err := parseDocument(envelope.Payload)
	if err != nil {
		return nil, err
	}

	// Identity gate. Comparing digests leaks nothing sensitive, but the
	// attested key is still withheld until every later gate passes.
	imageID, err := doc.ImageID()
	if err != nil {
		return nil, err
	}
	if imageID != v.cfg.ExpectedImageID {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrImageIDMismatch, v.cfg.ExpectedImageID, imageID)
	}

	leaf, err := x509.ParseCertificate(doc.Certificate)
	if err != nil {
		return nil, fmt.Errorf("parsing leaf certificate: %w", err)
	}
	leafKey, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("leaf certificate has unsupported key type %T", leaf.PublicKey)
	}
	if err := envelope.verifySignature(leafKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCOSESignature, err)
	}

	// The document claims milliseconds; certificate validity is judged in
	// seconds.
	attestationTime := time.Unix(int64(doc.Timestamp)/1000, 0)

	chain, err := buildChain(leaf, doc.CABundle)
	if err != nil {
		return nil, err
	}
	if err := verifyChain(chain, v.cfg.Root, attestationTime); err != nil {
		return nil, err
	}

	return &Result{
		PublicKey: doc.PublicKey,
		ImageID:   imageID,
		Timestamp: attestationTime,
		Document:  doc,
	}, nil
}
