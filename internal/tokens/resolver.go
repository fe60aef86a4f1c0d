// Package tokens resolves mint decimals and converts between raw and decimal amounts.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"solana-tx-engine/internal/domain"
)

// ErrMintNotFound is returned when a mint account does not exist on chain.
var ErrMintNotFound = errors.New("mint account not found")

// DecimalsCache is a shared decimals cache layer.
type DecimalsCache interface {
	// GetDecimals returns ok=false on a miss.
	GetDecimals(ctx context.Context, mint string) (decimals int, ok bool, err error)
	SetDecimals(ctx context.Context, mint string, decimals int) error
}

// MintSource reads mint decimals from the chain.
type MintSource interface {
	MintDecimals(ctx context.Context, mint string) (int, error)
}

// Resolver resolves mint decimals through an in-process map, an optional
// shared cache and finally the chain. Safe for concurrent use.
type Resolver struct {
	mu     sync.RWMutex
	local  map[string]int
	shared DecimalsCache
	chain  MintSource
	logger *zap.Logger
}

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithSharedCache adds a shared cache layer between the local map and the chain.
func WithSharedCache(c DecimalsCache) ResolverOption {
	return func(r *Resolver) {
		r.shared = c
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver reading unknown mints from chain.
func NewResolver(chain MintSource, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		local:  make(map[string]int),
		chain:  chain,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("tokens")
	return r
}

// Decimals returns the decimals of mint.
func (r *Resolver) Decimals(ctx context.Context, mint string) (int, error) {
	if d, ok := domain.KnownDecimals(mint); ok {
		return d, nil
	}

	r.mu.RLock()
	d, ok := r.local[mint]
	r.mu.RUnlock()
	if ok {
		return d, nil
	}

	if r.shared != nil {
		d, ok, err := r.shared.GetDecimals(ctx, mint)
		if err != nil {
			r.logger.Warn("shared decimals cache read failed", zap.String("mint", mint), zap.Error(err))
		} else if ok {
			r.remember(mint, d)
			return d, nil
		}
	}

	if r.chain == nil {
		return 0, fmt.Errorf("decimals %s: no chain source", mint)
	}
	d, err := r.chain.MintDecimals(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("decimals %s: %w", mint, err)
	}

	r.remember(mint, d)
	if r.shared != nil {
		if err := r.shared.SetDecimals(ctx, mint, d); err != nil {
			r.logger.Warn("shared decimals cache write failed", zap.String("mint", mint), zap.Error(err))
		}
	}
	r.logger.Debug("resolved decimals from chain", zap.String("mint", mint), zap.Int("decimals", d))
	return d, nil
}

func (r *Resolver) remember(mint string, d int) {
	r.mu.Lock()
	r.local[mint] = d
	r.mu.Unlock()
}
