package memory

import (
	"context"
	"sort"
	"sync"

	"solana-tx-engine/internal/storage"
)

// SubscriptionStore is an in-memory implementation of storage.SubscriptionStore.
type SubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]int
}

// NewSubscriptionStore creates a new in-memory subscription store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{
		subs: make(map[string]int),
	}
}

// Upsert records a subscription. The first stored decimals win.
func (s *SubscriptionStore) Upsert(_ context.Context, sub storage.Subscription) error {
	if sub.Token == "" || sub.Decimals < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subs[sub.Token]; !exists {
		s.subs[sub.Token] = sub.Decimals
	}
	return nil
}

// List returns all subscriptions ordered by token.
func (s *SubscriptionStore) List(_ context.Context) ([]storage.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.Subscription, 0, len(s.subs))
	for token, decimals := range s.subs {
		result = append(result, storage.Subscription{Token: token, Decimals: decimals})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Token < result[j].Token
	})

	return result, nil
}

var _ storage.SubscriptionStore = (*SubscriptionStore)(nil)
