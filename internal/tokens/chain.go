package tokens

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/program/token"
)

// ChainSource reads SPL mint accounts over RPC.
type ChainSource struct {
	client *client.Client
}

// NewChainSource creates a mint reader for the RPC endpoint.
func NewChainSource(endpoint string) *ChainSource {
	return &ChainSource{client: client.NewClient(endpoint)}
}

// MintDecimals implements MintSource.
func (s *ChainSource) MintDecimals(ctx context.Context, mint string) (int, error) {
	info, err := s.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("get account info: %w", err)
	}
	if len(info.Data) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
	}

	data := info.Data
	if len(data) > token.MintAccountSize {
		// Token-2022 mints append extensions after the base layout.
		data = data[:token.MintAccountSize]
	}
	account, err := token.MintAccountFromData(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint account: %w", err)
	}
	return int(account.Decimals), nil
}
