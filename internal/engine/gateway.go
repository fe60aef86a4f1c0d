package engine

import (
	"context"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/solana"
)

// Gateway is the network capability the engine drives.
// *solana.Gateway implements it.
type Gateway interface {
	URL() string

	// SendRaw submits wire bytes.
	SendRaw(ctx context.Context, raw []byte, opts solana.SendOptions) (string, error)

	// Simulate runs the transaction without landing it.
	Simulate(ctx context.Context, raw []byte) (*solana.SimulationResult, error)

	// ConfirmSignal resolves nil on a confirmed notification and fails with
	// solana.ErrBlockHeightExceeded once the chain passes effectiveExpiry.
	ConfirmSignal(ctx context.Context, signature string, effectiveExpiry uint64) error

	// PollStatus returns the recent status of a signature, nil if unknown.
	PollStatus(ctx context.Context, signature string) (*solana.SignatureStatus, error)

	// FetchRecord returns the settled transaction, nil if not yet available.
	FetchRecord(ctx context.Context, signature string) (*solana.Transaction, error)

	// LatestBlockhashLease returns a fresh lease.
	LatestBlockhashLease(ctx context.Context) (domain.BlockhashLease, error)
}

var _ Gateway = (*solana.Gateway)(nil)
