package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/storage"
)

func testMetrics(clientID, signature string, createdAt int64) *domain.TransactionMetrics {
	return &domain.TransactionMetrics{
		MetricsID:       clientID + "-" + signature,
		ClientID:        clientID,
		BaseMint:        "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		QuoteMint:       domain.SOLMint,
		Signature:       signature,
		AmountIn:        20,
		AmountOut:       19.5,
		TxnFee:          0.000005,
		SwapFee:         0.02,
		TxnPnL:          -0.5,
		TxnLandTimeMs:   1200,
		BaseTokenPrice:  0.00002,
		QuoteTokenPrice: 150,
		CreatedAt:       createdAt,
	}
}

func TestMetricsStore_InsertAndList(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetricsStore(conn)

	require.NoError(t, store.Insert(ctx, testMetrics("client1", "sig2", 2000)))
	require.NoError(t, store.Insert(ctx, testMetrics("client1", "sig1", 1000)))

	got, err := store.ListByClient(ctx, "client1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "sig1", got[0].Signature)
	assert.InDelta(t, -0.5, got[0].TxnPnL, 1e-9)
	assert.Equal(t, int64(1200), got[0].TxnLandTimeMs)

	one, err := store.GetBySignature(ctx, "client1", "sig2")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), one.CreatedAt)
}

func TestMetricsStore_Duplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMetricsStore(conn)

	m := testMetrics("client1", "sig1", 1000)
	require.NoError(t, store.Insert(ctx, m))
	assert.ErrorIs(t, store.Insert(ctx, m), storage.ErrDuplicateKey)
}

func TestMetricsStore_NotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewMetricsStore(conn).GetBySignature(context.Background(), "client1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
