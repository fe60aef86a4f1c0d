package storage

import (
	"context"

	"solana-tx-engine/internal/domain"
)

// MetricsStore provides access to the transactions table.
type MetricsStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if (client_id, signature) exists.
	Insert(ctx context.Context, m *domain.TransactionMetrics) error

	// GetBySignature retrieves a record by client and signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, clientID, signature string) (*domain.TransactionMetrics, error)

	// ListByClient retrieves all records of a client, ordered by created_at ASC, signature ASC.
	ListByClient(ctx context.Context, clientID string) ([]*domain.TransactionMetrics, error)
}

// Subscription is a token whose live price stream should be restored on restart.
type Subscription struct {
	Token    string
	Decimals int
}

// SubscriptionStore persists the set of subscribed price tokens.
type SubscriptionStore interface {
	// Upsert records token as subscribed. Existing rows are left unchanged.
	Upsert(ctx context.Context, sub Subscription) error

	// List returns all stored subscriptions, ordered by token.
	List(ctx context.Context) ([]Subscription, error)
}
