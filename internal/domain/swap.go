package domain

// RouteHop is one leg of a multi-hop trade route, as reported by the quote service.
// Amounts are raw token units.
type RouteHop struct {
	AMMKey     string
	Label      string
	InputMint  string
	OutputMint string
	InAmount   float64
	OutAmount  float64
	FeeAmount  float64
	FeeMint    string
}

// SwapLeg is one side of an executed swap, decimal adjusted.
type SwapLeg struct {
	Mint     string
	Amount   float64 // decimal adjusted
	Decimals int
	USD      float64 // embedded valuation, 0 when unknown
}

// SwapSummary is the in/out legs extracted from a settled swap.
type SwapSummary struct {
	In     SwapLeg
	Out    SwapLeg
	Events int // number of swap events seen
}

// SwapResult is the realized outcome of a settled swap.
type SwapResult struct {
	AmountIn          float64
	AmountOut         float64
	AmountInUSD       float64
	AmountOutUSD      float64
	TransactionFee    float64 // SOL
	TransactionFeeUSD float64
	PnL               float64 // AmountOutUSD - TotalSpent
	TotalSpent        float64 // TransactionFeeUSD + AmountInUSD
	BaseTokenPrice    float64
	QuoteTokenPrice   float64
}
