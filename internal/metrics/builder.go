// Package metrics builds per-trade transaction metrics and per-client summaries.
package metrics

import (
	"time"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/idhash"
)

// Build assembles the persisted metrics of one landed swap.
// The swap fee is the trade's fee fraction of the input USD amount.
func Build(res *domain.SwapResult, trade domain.TradeContext, signature string, landTime time.Duration, now time.Time) *domain.TransactionMetrics {
	return &domain.TransactionMetrics{
		MetricsID:       idhash.ComputeMetricsID(trade.ClientID, trade.Vault, signature),
		ClientID:        trade.ClientID,
		VaultPubkey:     trade.Vault,
		TradePubkey:     trade.Wallet,
		BaseMint:        trade.BaseMint,
		QuoteMint:       trade.QuoteMint,
		Signature:       signature,
		AmountIn:        res.AmountInUSD,
		AmountOut:       res.AmountOutUSD,
		TxnFee:          res.TransactionFee,
		SwapFee:         trade.SwapFees * res.AmountInUSD,
		TxnPnL:          res.PnL,
		TxnLandTimeMs:   landTime.Milliseconds(),
		BaseTokenPrice:  res.BaseTokenPrice,
		QuoteTokenPrice: res.QuoteTokenPrice,
		CreatedAt:       now.UnixMilli(),
	}
}
