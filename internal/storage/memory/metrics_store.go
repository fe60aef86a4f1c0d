package memory

import (
	"context"
	"sort"
	"sync"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/storage"
)

type metricsKey struct {
	clientID  string
	signature string
}

// MetricsStore is an in-memory implementation of storage.MetricsStore.
type MetricsStore struct {
	mu   sync.RWMutex
	data map[metricsKey]*domain.TransactionMetrics
}

// NewMetricsStore creates a new in-memory metrics store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{
		data: make(map[metricsKey]*domain.TransactionMetrics),
	}
}

// Insert adds a new record. Returns ErrDuplicateKey if (client_id, signature) exists.
func (s *MetricsStore) Insert(_ context.Context, m *domain.TransactionMetrics) error {
	if m == nil || m.ClientID == "" || m.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := metricsKey{clientID: m.ClientID, signature: m.Signature}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *m
	s.data[key] = &copy
	return nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *MetricsStore) GetBySignature(_ context.Context, clientID, signature string) (*domain.TransactionMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[metricsKey{clientID: clientID, signature: signature}]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *m
	return &copy, nil
}

// ListByClient retrieves all records of a client, ordered by created_at ASC, signature ASC.
func (s *MetricsStore) ListByClient(_ context.Context, clientID string) ([]*domain.TransactionMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionMetrics
	for key, m := range s.data {
		if key.clientID == clientID {
			copy := *m
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Signature < result[j].Signature
	})

	return result, nil
}

var _ storage.MetricsStore = (*MetricsStore)(nil)
