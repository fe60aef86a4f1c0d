package postgres

import (
	"context"
	"fmt"

	"solana-tx-engine/internal/storage"
)

// SubscriptionStore implements storage.SubscriptionStore using the
// price_subscriptions table.
type SubscriptionStore struct {
	pool *Pool
}

// NewSubscriptionStore creates a new PostgreSQL subscription store.
func NewSubscriptionStore(pool *Pool) *SubscriptionStore {
	return &SubscriptionStore{pool: pool}
}

var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)

// Upsert records a subscription. Existing rows are left unchanged.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub storage.Subscription) error {
	if sub.Token == "" || sub.Decimals < 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO price_subscriptions (token, decimals, subscribed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token) DO NOTHING
	`, sub.Token, sub.Decimals)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// List returns all subscriptions ordered by token.
func (s *SubscriptionStore) List(ctx context.Context) ([]storage.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token, decimals FROM price_subscriptions ORDER BY token
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []storage.Subscription
	for rows.Next() {
		var sub storage.Subscription
		if err := rows.Scan(&sub.Token, &sub.Decimals); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}
