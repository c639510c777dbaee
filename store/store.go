// Package store persists attestation verification outcomes for audit.
// Recording is best-effort operational logging; it never gates
// verification itself.
package store

import (
	"context"
	"time"
)

// Outcome classifies a verification attempt.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// VerificationRecord is one verification attempt.
type VerificationRecord struct {
	// ImageID is the expected image identity the verifier was configured
	// with.
	ImageID string

	// PublicKeyHex is the hex-encoded attested public key, empty on
	// failure.
	PublicKeyHex string

	// DocTimestamp is the document's hardware-claimed time, zero when the
	// document never parsed far enough to have one.
	DocTimestamp time.Time

	// VerifiedAt is when the verifier ran.
	VerifiedAt time.Time

	// Outcome is OutcomeSuccess or OutcomeFailure.
	Outcome string

	// Reason holds the verification error on failure.
	Reason string
}

// Store records verification outcomes.
type Store interface {
	// Record appends one verification record.
	Record(ctx context.Context, rec VerificationRecord) error

	// List returns the most recent records, newest first, up to limit.
	List(ctx context.Context, limit int) ([]VerificationRecord, error)

	// Close releases the store's resources.
	Close() error
}
