package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/engine"
	solrpc "solana-tx-engine/internal/solana"
)

const bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

// signedTxn returns a base64 signed transaction, its signature and the payer.
func signedTxn(t *testing.T) (string, string, solana.PublicKey) {
	t.Helper()

	payer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	memo := solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	ix := solana.NewInstruction(memo, solana.AccountMetaSlice{
		solana.Meta(payer.PublicKey()).SIGNER().WRITE(),
	}, []byte("swap"))

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		solana.MustHashFromBase58("4sGjMW1sUnHzSxGspuhpqLDx6wiyjNtZAMdL4VZHirAn"),
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw), tx.Signatures[0].String(), payer.PublicKey()
}

func testMessage(t *testing.T) (*Message, string) {
	t.Helper()
	txn, sig, wallet := signedTxn(t)
	return &Message{
		Client:       "client-1",
		Vault:        "vault-1",
		Wallet:       wallet.String(),
		BaseMint:     bonkMint,
		QuoteMint:    domain.SOLMint,
		SwapFees:     0.001,
		BaseDecimal:  5,
		QuoteDecimal: 9,
		Txn:          txn,
	}, sig
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls int
	out   engine.Outcome
	err   error
	panic bool
}

func (f *fakeExecutor) Execute(_ context.Context, env *domain.TransactionEnvelope, _, _ engine.Gateway) (engine.Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.panic {
		panic("executor exploded")
	}
	if f.err != nil {
		return engine.Outcome{}, f.err
	}
	out := f.out
	out.Signature = env.Signature
	return out, nil
}

type fakePrices struct {
	mu     sync.Mutex
	tokens map[string]int
}

func newFakePrices() *fakePrices {
	return &fakePrices{tokens: make(map[string]int)}
}

func (f *fakePrices) EnsureSubscribed(token string, decimals int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tokens[token]; ok {
		return false
	}
	f.tokens[token] = decimals
	return true
}

type fakeParser struct {
	res          *domain.SwapResult
	err          error
	recordCalls  int
	pollingCalls int
}

func (f *fakeParser) Parse(context.Context, string, domain.TradeContext) (*domain.SwapResult, error) {
	f.pollingCalls++
	return f.res, f.err
}

func (f *fakeParser) ParseRecord(context.Context, *solrpc.Transaction, domain.TradeContext) (*domain.SwapResult, error) {
	f.recordCalls++
	return f.res, f.err
}

var errBoom = errors.New("boom")

func landed() engine.Outcome {
	return engine.Outcome{
		Status:  engine.StatusConfirmed,
		Record:  &solrpc.Transaction{Meta: &solrpc.TransactionMeta{Fee: 5000}},
		Latency: 1500 * time.Millisecond,
	}
}

func fixedNow() time.Time {
	return time.UnixMilli(1_700_000_000_000)
}
