package engine

import (
	"time"

	"solana-tx-engine/internal/solana"
)

// Status is the terminal state of a submission.
type Status string

// Submission states.
const (
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
	StatusFailed    Status = "failed"
)

// Outcome is the result of one submission.
type Outcome struct {
	Status    Status
	Signature string
	Record    *solana.Transaction // set when confirmed or failed on chain
	Reason    string              // on-chain error for failed submissions
	Latency   time.Duration       // first send to confirmation
}

// Landed reports whether the transaction settled without an on-chain error.
func (o Outcome) Landed() bool {
	return o.Status == StatusConfirmed
}
