package nitro

import (
	"errors"
	"fmt"

	"github.com/hf/nsm"
	"github.com/hf/nsm/request"
)

// NSMProvider requests attestation documents from the Nitro Security
// Module device. It only works inside a running Nitro enclave.
type NSMProvider struct {
	// PublicKey is embedded in every document's public_key field. This is
	// the channel public key that verifiers will extract.
	PublicKey []byte
}

// Attest requests a freshly signed document from the NSM device.
func (p *NSMProvider) Attest(userData []byte) ([]byte, error) {
	sess, err := nsm.OpenDefaultSession()
	if err != nil {
		return nil, fmt.Errorf("opening NSM session: %w", err)
	}
	defer sess.Close()

	res, err := sess.Send(&request.Attestation{
		PublicKey: p.PublicKey,
		UserData:  userData,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting attestation from NSM: %w", err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("NSM device error: %s", res.Error)
	}
	if res.Attestation == nil || res.Attestation.Document == nil {
		return nil, errors.New("NSM returned empty attestation document")
	}
	return res.Attestation.Document, nil
}
