package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"solana-tx-engine/internal/domain"
)

// MultiStore writes every record to a primary store and a set of mirrors.
// Reads are served by the primary only.
type MultiStore struct {
	primary MetricsStore
	mirrors []MetricsStore
}

// NewMultiStore creates a MultiStore. A nil mirror is skipped.
func NewMultiStore(primary MetricsStore, mirrors ...MetricsStore) *MultiStore {
	m := &MultiStore{primary: primary}
	for _, s := range mirrors {
		if s != nil {
			m.mirrors = append(m.mirrors, s)
		}
	}
	return m
}

// Insert writes m to all stores concurrently.
// ErrDuplicateKey from a mirror is ignored; from the primary it is returned.
func (s *MultiStore) Insert(ctx context.Context, m *domain.TransactionMetrics) error {
	if m == nil {
		return ErrInvalidInput
	}

	var primaryErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		primaryErr = s.primary.Insert(gctx, m)
		if errors.Is(primaryErr, ErrDuplicateKey) {
			return nil
		}
		return primaryErr
	})
	for i, mirror := range s.mirrors {
		g.Go(func() error {
			if err := mirror.Insert(gctx, m); err != nil && !errors.Is(err, ErrDuplicateKey) {
				return fmt.Errorf("mirror %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return primaryErr
}

// GetBySignature reads from the primary store.
func (s *MultiStore) GetBySignature(ctx context.Context, clientID, signature string) (*domain.TransactionMetrics, error) {
	return s.primary.GetBySignature(ctx, clientID, signature)
}

// ListByClient reads from the primary store.
func (s *MultiStore) ListByClient(ctx context.Context, clientID string) ([]*domain.TransactionMetrics, error) {
	return s.primary.ListByClient(ctx, clientID)
}
