package nitro

import (
	"bytes"
	"crypto/x509"
	"fmt"
	"time"
)

// buildChain parses the CA bundle and orders the full chain with the leaf
// at index 0. The bundle is transmitted root-first, so it is reversed: the
// result is [leaf, intermediate_n, ..., intermediate_1, root].
func buildChain(leaf *x509.Certificate, cabundle [][]byte) ([]*x509.Certificate, error) {
	chain := make([]*x509.Certificate, 0, len(cabundle)+1)
	chain = append(chain, leaf)

	for i := len(cabundle) - 1; i >= 0; i-- {
		cert, err := x509.ParseCertificate(cabundle[i])
		if err != nil {
			return nil, fmt.Errorf("parsing cabundle certificate %d: %w", i, err)
		}
		chain = append(chain, cert)
	}
	return chain, nil
}

// verifyChain walks the chain from the leaf toward the root. For each
// adjacent pair it checks the signature, the issuer/subject relation and
// that the attestation timestamp falls within the child's validity window.
// The walk never skips a link. Finally the last certificate is pinned
// byte-for-byte against the trusted root.
func verifyChain(chain []*x509.Certificate, root *x509.Certificate, attestationTime time.Time) error {
	for i := 0; i+1 < len(chain); i++ {
		child, issuer := chain[i], chain[i+1]

		if err := child.CheckSignatureFrom(issuer); err != nil {
			return fmt.Errorf("%w: chain link %d: %v", ErrChainSignature, i, err)
		}
		if !bytes.Equal(child.RawIssuer, issuer.RawSubject) {
			return fmt.Errorf("%w: chain link %d: issuer %q, parent subject %q",
				ErrIssuerMismatch, i, child.Issuer, issuer.Subject)
		}
		if attestationTime.Before(child.NotBefore) || attestationTime.After(child.NotAfter) {
			return fmt.Errorf("%w: chain link %d: attestation time %s outside [%s, %s]",
				ErrCertValidity, i, attestationTime.UTC().Format(time.RFC3339),
				child.NotBefore.UTC().Format(time.RFC3339), child.NotAfter.UTC().Format(time.RFC3339))
		}
	}

	// Pinning, not trust-store validation: the final certificate must be
	// byte-identical to the configured root.
	if !bytes.Equal(chain[len(chain)-1].Raw, root.Raw) {
		return fmt.Errorf("%w: chain terminates in %q", ErrRootMismatch, chain[len(chain)-1].Subject)
	}
	return nil
}
