package ingestion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/engine"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/storage"
	"solana-tx-engine/internal/storage/memory"
)

func swapResult() *domain.SwapResult {
	return &domain.SwapResult{
		AmountIn:        1_000_000,
		AmountOut:       0.05,
		AmountInUSD:     10,
		AmountOutUSD:    10.5,
		TransactionFee:  0.000005,
		PnL:             0.4993,
		BaseTokenPrice:  0.00001,
		QuoteTokenPrice: 210,
	}
}

func TestProcessor_Process(t *testing.T) {
	msg, sig := testMessage(t)
	exec := &fakeExecutor{out: landed()}
	prices := newFakePrices()
	parser := &fakeParser{res: swapResult()}
	store := memory.NewMetricsStore()
	subs := memory.NewSubscriptionStore()

	p := NewProcessor(ProcessorOptions{
		Executor:      exec,
		Prices:        prices,
		Subscriptions: subs,
		Parser:        parser,
		Metrics:       store,
		Now:           fixedNow,
	})

	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, engine.StatusConfirmed, res.Outcome.Status)
	assert.Equal(t, sig, res.Outcome.Signature)
	require.NotNil(t, res.Metrics)
	assert.Equal(t, 1, parser.recordCalls, "record from the engine is parsed directly")
	assert.Equal(t, 0, parser.pollingCalls)

	// Both legs subscribed and persisted.
	assert.Equal(t, map[string]int{bonkMint: 5, domain.SOLMint: 9}, prices.tokens)
	persisted, err := subs.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	stored, err := store.GetBySignature(context.Background(), "client-1", sig)
	require.NoError(t, err)
	assert.Equal(t, "vault-1", stored.VaultPubkey)
	assert.Equal(t, msg.Wallet, stored.TradePubkey)
	assert.InDelta(t, 0.01, stored.SwapFee, 1e-12)
	assert.Equal(t, int64(1500), stored.TxnLandTimeMs)
	assert.Equal(t, fixedNow().UnixMilli(), stored.CreatedAt)
}

func TestProcessor_PollsWhenNoRecord(t *testing.T) {
	msg, _ := testMessage(t)
	out := landed()
	out.Record = nil
	parser := &fakeParser{res: swapResult()}

	p := NewProcessor(ProcessorOptions{Executor: &fakeExecutor{out: out}, Parser: parser})
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, 1, parser.pollingCalls)
	assert.NotNil(t, res.Swap)
}

func TestProcessor_NotLanded(t *testing.T) {
	for _, status := range []engine.Status{engine.StatusExpired, engine.StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			msg, _ := testMessage(t)
			parser := &fakeParser{res: swapResult()}
			store := memory.NewMetricsStore()

			p := NewProcessor(ProcessorOptions{
				Executor: &fakeExecutor{out: engine.Outcome{Status: status}},
				Parser:   parser,
				Metrics:  store,
			})
			res, err := p.Process(context.Background(), msg)
			require.NoError(t, err)

			assert.Equal(t, status, res.Outcome.Status)
			assert.Nil(t, res.Metrics)
			assert.Equal(t, 0, parser.recordCalls+parser.pollingCalls)

			stored, _ := store.ListByClient(context.Background(), "client-1")
			assert.Empty(t, stored)
		})
	}
}

func TestProcessor_ParseFailureKeepsOutcome(t *testing.T) {
	msg, _ := testMessage(t)
	store := memory.NewMetricsStore()

	p := NewProcessor(ProcessorOptions{
		Executor: &fakeExecutor{out: landed()},
		Parser:   &fakeParser{err: errBoom},
		Metrics:  store,
	})
	res, err := p.Process(context.Background(), msg)
	require.NoError(t, err)

	assert.True(t, res.Outcome.Landed())
	assert.Nil(t, res.Swap)
	stored, _ := store.ListByClient(context.Background(), "client-1")
	assert.Empty(t, stored)
}

func TestProcessor_DuplicateMetricsTolerated(t *testing.T) {
	msg, _ := testMessage(t)
	store := memory.NewMetricsStore()
	p := NewProcessor(ProcessorOptions{
		Executor: &fakeExecutor{out: landed()},
		Parser:   &fakeParser{res: swapResult()},
		Metrics:  store,
	})

	_, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	_, err = p.Process(context.Background(), msg)
	require.NoError(t, err)

	stored, _ := store.ListByClient(context.Background(), "client-1")
	assert.Len(t, stored, 1)
}

func TestProcessor_ExecuteError(t *testing.T) {
	msg, _ := testMessage(t)
	p := NewProcessor(ProcessorOptions{Executor: &fakeExecutor{err: engine.ErrSimulationFailed}})

	_, err := p.Process(context.Background(), msg)
	assert.ErrorIs(t, err, engine.ErrSimulationFailed)
}

func TestProcessor_InvalidEnvelope(t *testing.T) {
	msg, _ := testMessage(t)
	msg.Txn = "AAAA"
	exec := &fakeExecutor{out: landed()}

	_, err := NewProcessor(ProcessorOptions{Executor: exec}).Process(context.Background(), msg)
	assert.ErrorIs(t, err, domain.ErrInvalidEnvelope)
	assert.Equal(t, 0, exec.calls)
}

func TestProcessor_HandleMessage(t *testing.T) {
	msg, _ := testMessage(t)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	counter := observability.DefaultMetrics.MessagesProcessed.WithLabelValues("test", string(engine.StatusConfirmed))
	before := testutil.ToFloat64(counter)

	p := NewProcessor(ProcessorOptions{Executor: &fakeExecutor{out: landed()}})
	require.NoError(t, p.HandleMessage(context.Background(), "test", data))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestProcessor_HandleMessageRecoversPanic(t *testing.T) {
	msg, _ := testMessage(t)
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	p := NewProcessor(ProcessorOptions{Executor: &fakeExecutor{panic: true}})
	err = p.HandleMessage(context.Background(), "test", data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executor exploded")
}

func TestProcessor_HandleMessageInvalid(t *testing.T) {
	exec := &fakeExecutor{}
	p := NewProcessor(ProcessorOptions{Executor: exec})

	err := p.HandleMessage(context.Background(), "test", []byte(`{"client":""}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, 0, exec.calls)
}

func TestRestoreSubscriptions(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSubscriptionStore()
	require.NoError(t, store.Upsert(ctx, storage.Subscription{Token: bonkMint, Decimals: 5}))
	require.NoError(t, store.Upsert(ctx, storage.Subscription{Token: domain.SOLMint, Decimals: 9}))

	prices := newFakePrices()
	prices.EnsureSubscribed(domain.SOLMint, 9)

	n, err := RestoreSubscriptions(ctx, store, prices)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 5, prices.tokens[bonkMint])
}
