package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/storage"
	"solana-tx-engine/internal/storage/memory"
)

type failingStore struct {
	*memory.MetricsStore
	err error
}

func (f *failingStore) Insert(context.Context, *domain.TransactionMetrics) error {
	return f.err
}

func TestMultiStore_FanOut(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewMetricsStore()
	mirror := memory.NewMetricsStore()
	multi := storage.NewMultiStore(primary, mirror, nil)

	m := &domain.TransactionMetrics{ClientID: "c1", Signature: "s1", AmountIn: 3}
	require.NoError(t, multi.Insert(ctx, m))

	_, err := primary.GetBySignature(ctx, "c1", "s1")
	assert.NoError(t, err)
	_, err = mirror.GetBySignature(ctx, "c1", "s1")
	assert.NoError(t, err)

	got, err := multi.ListByClient(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMultiStore_PrimaryDuplicate(t *testing.T) {
	ctx := context.Background()
	primary := memory.NewMetricsStore()
	mirror := memory.NewMetricsStore()
	m := &domain.TransactionMetrics{ClientID: "c1", Signature: "s1"}
	require.NoError(t, primary.Insert(ctx, m))

	multi := storage.NewMultiStore(primary, mirror)
	err := multi.Insert(ctx, m)
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// The mirror still receives the record.
	_, err = mirror.GetBySignature(ctx, "c1", "s1")
	assert.NoError(t, err)
}

func TestMultiStore_MirrorFailure(t *testing.T) {
	ctx := context.Background()
	mirrorErr := errors.New("clickhouse down")
	multi := storage.NewMultiStore(memory.NewMetricsStore(), &failingStore{err: mirrorErr})

	err := multi.Insert(ctx, &domain.TransactionMetrics{ClientID: "c1", Signature: "s1"})
	assert.ErrorIs(t, err, mirrorErr)
}

func TestMultiStore_MirrorDuplicateIgnored(t *testing.T) {
	ctx := context.Background()
	multi := storage.NewMultiStore(memory.NewMetricsStore(), &failingStore{err: storage.ErrDuplicateKey})

	assert.NoError(t, multi.Insert(ctx, &domain.TransactionMetrics{ClientID: "c1", Signature: "s1"}))
}

func TestMultiStore_Nil(t *testing.T) {
	multi := storage.NewMultiStore(memory.NewMetricsStore())
	assert.ErrorIs(t, multi.Insert(context.Background(), nil), storage.ErrInvalidInput)
}
