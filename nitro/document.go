package nitro

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// pcrSize is the size in bytes of a single PCR measurement digest.
const pcrSize = 48

// Document is the decoded payload of an attestation document, as specified
// in the AWS Nitro Enclaves user guide. It is untrusted until Verifier.Verify
// has passed every gate.
type Document struct {
	ModuleID    string          `cbor:"module_id"`
	Digest      string          `cbor:"digest"`
	Timestamp   uint64          `cbor:"timestamp"` // milliseconds since epoch
	PCRs        map[uint][]byte `cbor:"pcrs"`
	Certificate []byte          `cbor:"certificate"` // leaf, DER
	CABundle    [][]byte        `cbor:"cabundle"`    // root..leaf-adjacent, DER
	PublicKey   []byte          `cbor:"public_key"`
	UserData    []byte          `cbor:"user_data"`
	Nonce       []byte          `cbor:"nonce"`
}

// parseDocument decodes a document payload and checks that every field the
// verification pipeline depends on is present.
func parseDocument(payload []byte) (*Document, error) {
	var doc Document
	if err := cbor.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decoding attestation payload: %w", err)
	}

	if doc.PCRs == nil {
		return nil, errors.New("pcrs key not found in attestation doc")
	}
	if len(doc.Certificate) == 0 {
		return nil, errors.New("certificate key not found in attestation doc")
	}
	if len(doc.CABundle) == 0 {
		return nil, errors.New("cabundle key not found in attestation doc")
	}
	if doc.Timestamp == 0 {
		return nil, errors.New("timestamp not found in attestation doc")
	}
	if len(doc.PublicKey) == 0 {
		return nil, errors.New("public key not found in attestation doc")
	}

	return &doc, nil
}

// pcr returns the measurement at the given index, or an error if absent.
func (d *Document) pcr(index uint) ([]byte, error) {
	value, ok := d.PCRs[index]
	if !ok {
		return nil, fmt.Errorf("pcr%d not found", index)
	}
	return value, nil
}

// pcrOptional returns the measurement at the given index, defaulting to 48
// zero bytes if absent.
func (d *Document) pcrOptional(index uint) []byte {
	if value, ok := d.PCRs[index]; ok {
		return value
	}
	return make([]byte, pcrSize)
}
