package metrics

import (
	"context"
	"errors"
	"fmt"

	"solana-tx-engine/internal/domain"
)

// ErrNoTrades is returned when a client has no stored metrics.
var ErrNoTrades = errors.New("no trades available for aggregation")

// MetricsReader lists stored metrics of a client.
type MetricsReader interface {
	ListByClient(ctx context.Context, clientID string) ([]*domain.TransactionMetrics, error)
}

// Aggregator computes client summaries from stored metrics.
type Aggregator struct {
	store MetricsReader
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(store MetricsReader) *Aggregator {
	return &Aggregator{store: store}
}

// Summarize loads every metrics record of clientID and computes its summary.
// Returns ErrNoTrades if the client has none.
func (a *Aggregator) Summarize(ctx context.Context, clientID string) (*domain.ClientSummary, error) {
	records, err := a.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoTrades
	}
	return computeSummary(clientID, records), nil
}
