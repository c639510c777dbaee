package nitro

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// coseSign1 is a COSE_Sign1 structure (RFC 9052 §4.2): a CBOR array of the
// serialized protected header, the unprotected header map, the payload and
// the signature.
type coseSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// coseSign1Tag is the CBOR tag prefix for a tagged COSE_Sign1 (tag 18).
// The Nitro Security Module emits untagged envelopes; both are accepted.
const coseSign1Tag = 0xd2

func parseCOSESign1(data []byte) (*coseSign1, error) {
	if len(data) > 0 && data[0] == coseSign1Tag {
		data = data[1:]
	}

	var envelope coseSign1
	if err := cbor.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding COSE envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return nil, errors.New("COSE envelope has empty payload")
	}
	if len(envelope.Signature) == 0 {
		return nil, errors.New("COSE envelope has empty signature")
	}
	return &envelope, nil
}

// sigStructure returns the deterministic CBOR encoding of the Sig_structure
// for this envelope with empty external AAD (RFC 9052 §4.4).
func (c *coseSign1) sigStructure() ([]byte, error) {
	structure := []interface{}{
		"Signature1",
		c.Protected,
		[]byte{},
		c.Payload,
	}
	encoded, err := cbor.Marshal(structure)
	if err != nil {
		return nil, fmt.Errorf("encoding Sig_structure: %w", err)
	}
	return encoded, nil
}

// verifySignature checks the envelope signature against an ECDSA public
// key. The signature is raw r‖s with each component padded to the curve
// size; the digest is matched to the curve per RFC 9053 §2.1.
func (c *coseSign1) verifySignature(publicKey *ecdsa.PublicKey) error {
	toSign, err := c.sigStructure()
	if err != nil {
		return err
	}

	var digest hash.Hash
	switch publicKey.Curve {
	case elliptic.P256():
		digest = sha256.New()
	case elliptic.P384():
		digest = sha512.New384()
	case elliptic.P521():
		digest = sha512.New()
	default:
		return fmt.Errorf("unsupported signing curve %q", publicKey.Curve.Params().Name)
	}
	digest.Write(toSign)

	componentSize := (publicKey.Curve.Params().BitSize + 7) / 8
	if len(c.Signature) != 2*componentSize {
		return fmt.Errorf("invalid signature size: got %d, want %d", len(c.Signature), 2*componentSize)
	}

	r := new(big.Int).SetBytes(c.Signature[:componentSize])
	s := new(big.Int).SetBytes(c.Signature[componentSize:])
	if !ecdsa.Verify(publicKey, digest.Sum(nil), r, s) {
		return errors.New("signature does not match")
	}
	return nil
}
