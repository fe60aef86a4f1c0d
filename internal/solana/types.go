package solana

import "errors"

// Commitment is the bank state level a query is evaluated at.
type Commitment string

// Commitment levels.
const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

var (
	// ErrBlockHeightExceeded is returned when the chain passes a submission's expiry height.
	ErrBlockHeightExceeded = errors.New("block height exceeded")

	// ErrClientClosed is returned by a closed client.
	ErrClientClosed = errors.New("client closed")
)

// SendOptions configures sendTransaction.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment Commitment
	// MaxRetries is forwarded to the node; nil leaves the node default.
	MaxRetries *uint
}

// SignatureStatus from getSignatureStatuses.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once rooted
	Err                interface{}
	ConfirmationStatus Commitment
}

// IsConfirmed reports whether the status is at least confirmed.
func (s *SignatureStatus) IsConfirmed() bool {
	if s == nil {
		return false
	}
	return s.ConfirmationStatus == CommitmentConfirmed || s.ConfirmationStatus == CommitmentFinalized
}

// SimulationResult from simulateTransaction.
type SimulationResult struct {
	Slot          int64
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}
