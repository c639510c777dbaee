package nitro

// Provider produces raw attestation documents on the enclave side.
type Provider interface {
	// Attest returns a fresh signed attestation document. userData is
	// embedded verbatim in the document's user_data field and may be nil.
	Attest(userData []byte) ([]byte, error)
}

// StaticProvider serves a fixed document. It exists for tests and for
// development outside enclave hardware; the document it serves will only
// verify against a matching synthetic root.
type StaticProvider struct {
	Document []byte
}

// Attest returns a copy of the configured document, ignoring userData.
func (p *StaticProvider) Attest(_ []byte) ([]byte, error) {
	doc := make([]byte, len(p.Document))
	copy(doc, p.Document)
	return doc, nil
}
