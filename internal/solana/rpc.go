package solana

import (
	"context"

	"solana-tx-engine/internal/domain"
)

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// SendTransaction submits a signed transaction and returns its signature.
	SendTransaction(ctx context.Context, raw []byte, opts SendOptions) (string, error)

	// SimulateTransaction simulates a signed transaction against the latest bank.
	SimulateTransaction(ctx context.Context, raw []byte) (*SimulationResult, error)

	// GetSignatureStatuses returns the status of each signature; nil entries are unknown.
	GetSignatureStatuses(ctx context.Context, signatures []string, searchHistory bool) ([]*SignatureStatus, error)

	// GetTransaction retrieves a settled transaction by signature.
	// Returns nil if not found.
	GetTransaction(ctx context.Context, signature string, commitment Commitment) (*Transaction, error)

	// GetLatestBlockhash returns a fresh blockhash and its validity bound.
	GetLatestBlockhash(ctx context.Context, commitment Commitment) (domain.BlockhashLease, error)

	// GetBlockHeight returns the current block height.
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)
}

// Transaction represents a settled Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	Fee               uint64 // lamports
	LogMessages       []string
	InnerInstructions []InnerInstructionSet
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
	LoadedWritable    []string
	LoadedReadonly    []string
}

// TransactionMessage contains the transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction is an instruction with account indexes into the transaction's keys.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string // base58
	StackHeight    *int
}

// InnerInstructionSet holds the CPI instructions emitted by one top-level instruction.
type InnerInstructionSet struct {
	Index        int
	Instructions []CompiledInstruction
}

// TokenBalance is an SPL token balance snapshot.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw units
	Decimals     int
}

// Failed reports whether the transaction settled with an on-chain error.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// AccountKeys returns static keys followed by loaded writable and readonly addresses,
// the order instruction indexes refer to.
func (t *Transaction) AccountKeys() []string {
	var keys []string
	if t.Message != nil {
		keys = append(keys, t.Message.AccountKeys...)
	}
	if t.Meta != nil {
		keys = append(keys, t.Meta.LoadedWritable...)
		keys = append(keys, t.Meta.LoadedReadonly...)
	}
	return keys
}

// TokenDecimals returns the decimals recorded for mint in the token balances.
func (t *Transaction) TokenDecimals(mint string) (int, bool) {
	if t.Meta == nil {
		return 0, false
	}
	for _, balances := range [][]TokenBalance{t.Meta.PreTokenBalances, t.Meta.PostTokenBalances} {
		for _, b := range balances {
			if b.Mint == mint {
				return b.Decimals, true
			}
		}
	}
	return 0, false
}
