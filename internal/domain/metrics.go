package domain

// TransactionMetrics is the persisted record of one landed swap.
// Corresponds to the transactions table in PostgreSQL.
type TransactionMetrics struct {
	MetricsID string // deterministic hash of client_id|signature

	ClientID    string
	VaultPubkey string
	TradePubkey string // wallet that signed the trade
	BaseMint    string
	QuoteMint   string
	Signature   string

	AmountIn        float64 // USD
	AmountOut       float64 // USD
	TxnFee          float64 // SOL
	SwapFee         float64 // USD, swap_fees * amount_in
	TxnPnL          float64 // USD
	TxnLandTimeMs   int64   // send to confirmation
	BaseTokenPrice  float64 // USD per base token
	QuoteTokenPrice float64 // USD per quote token

	CreatedAt int64 // record creation timestamp (ms)
}

// ClientSummary aggregates the stored metrics of one client.
type ClientSummary struct {
	ClientID string

	// Counts
	TotalTrades int
	Wins        int
	Losses      int
	WinRate     float64
	TotalMints  int // distinct base mints traded

	// Totals (USD unless noted)
	Volume       float64 // sum of AmountIn
	Received     float64 // sum of AmountOut
	TotalTxnFees float64 // SOL
	TotalSwapFee float64
	TotalPnL     float64

	// PnL distribution
	PnLMean   float64
	PnLMedian float64
	PnLP10    float64
	PnLP90    float64
	PnLMin    float64
	PnLMax    float64
	PnLStddev float64

	// Order dependent (by CreatedAt)
	MaxDrawdown          float64
	MaxConsecutiveLosses int

	// Landing
	LandTimeMeanMs float64
	LandTimeP90Ms  float64
}
