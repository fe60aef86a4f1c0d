package pricing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/jupiter"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/swap"
	"solana-tx-engine/internal/tokens"
)

// Default oracle settings.
const (
	DefaultQuoteAttempts = 6
	DefaultPriceAttempts = 6
	DefaultAttemptDelay  = 100 * time.Millisecond
)

// Lookup sources reported to metrics.
const (
	sourceCache    = "cache"
	sourceQuote    = "quote"
	sourcePriceAPI = "price_api"
	sourceNone     = "none"
)

// QuoteSource prices tokens through the quote and price APIs.
type QuoteSource interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
	Price(ctx context.Context, mint string) (float64, error)
}

// DecimalsSource resolves mint decimals.
type DecimalsSource interface {
	Decimals(ctx context.Context, mint string) (int, error)
}

// OracleOptions configures Oracle.
type OracleOptions struct {
	QuoteAttempts int
	PriceAttempts int
	AttemptDelay  time.Duration
	Logger        *zap.Logger
}

// Oracle resolves USD prices: live cache first, then a one-unit quote
// into USDC, then the price API, then 0.
type Oracle struct {
	cache    *Cache
	quotes   QuoteSource
	decimals DecimalsSource
	opts     OracleOptions
	logger   *zap.Logger
}

// NewOracle creates a price oracle.
func NewOracle(cache *Cache, quotes QuoteSource, decimals DecimalsSource, opts OracleOptions) *Oracle {
	if opts.QuoteAttempts <= 0 {
		opts.QuoteAttempts = DefaultQuoteAttempts
	}
	if opts.PriceAttempts <= 0 {
		opts.PriceAttempts = DefaultPriceAttempts
	}
	if opts.AttemptDelay <= 0 {
		opts.AttemptDelay = DefaultAttemptDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		cache:    cache,
		quotes:   quotes,
		decimals: decimals,
		opts:     opts,
		logger:   logger.Named("oracle"),
	}
}

// Price returns the USD price of mint. The trade's base and quote decimals
// are used for the quote amount before asking the decimals resolver.
// Only context cancellation is returned as an error; an unknown price is 0.
func (o *Oracle) Price(ctx context.Context, mint string, trade domain.TradeContext) (float64, error) {
	if p, ok := o.cache.Get(mint); ok && p > 0 {
		observability.RecordOracleLookup(sourceCache)
		return p, nil
	}
	log := o.logger.With(zap.String("mint", mint))

	if price, ok := o.quotePrice(ctx, mint, trade, log); ok {
		observability.RecordOracleLookup(sourceQuote)
		return price, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	log.Info("falling back to price API")
	return o.apiPrice(ctx, mint, log)
}

// NativePrice returns the USD price of SOL.
func (o *Oracle) NativePrice(ctx context.Context) (float64, error) {
	if p, ok := o.cache.Get(domain.SOLMint); ok && p > 0 {
		observability.RecordOracleLookup(sourceCache)
		return p, nil
	}
	return o.apiPrice(ctx, domain.SOLMint, o.logger.With(zap.String("mint", domain.SOLMint)))
}

func (o *Oracle) quotePrice(ctx context.Context, mint string, trade domain.TradeContext, log *zap.Logger) (float64, bool) {
	if mint == domain.USDCMint {
		return 1, true
	}

	decimals, ok := trade.DecimalsFor(mint)
	if !ok {
		d, err := o.decimals.Decimals(ctx, mint)
		if err != nil {
			log.Warn("decimals lookup failed", zap.Error(err))
			return 0, false
		}
		decimals = d
	}
	amount, err := tokens.ToUnits(1, decimals)
	if err != nil || amount == 0 {
		log.Warn("cannot size quote amount", zap.Int("decimals", decimals), zap.Error(err))
		return 0, false
	}

	req := jupiter.PriceQuote(mint, amount)
	for attempt := 1; attempt <= o.opts.QuoteAttempts; attempt++ {
		if attempt > 1 && !o.wait(ctx) {
			return 0, false
		}
		quote, err := o.quotes.Quote(ctx, req)
		if err != nil {
			log.Warn("quote attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		out, err := quote.OutAmountUnits()
		if err != nil {
			log.Warn("quote attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		price := out.Shift(-domain.USDCDecimals).InexactFloat64()
		if pct, err := routeFeePct(quote); err != nil {
			log.Debug("token price from quote", zap.Float64("price", price), zap.NamedError("route_fee_err", err))
		} else {
			log.Debug("token price from quote", zap.Float64("price", price), zap.Float64("route_fee_pct", pct))
		}
		return price, true
	}
	return 0, false
}

// routeFeePct returns the percentage of the input charged across the quoted route.
func routeFeePct(quote *jupiter.QuoteResponse) (float64, error) {
	return swap.AllocateFee(100, quote.Route())
}

func (o *Oracle) apiPrice(ctx context.Context, mint string, log *zap.Logger) (float64, error) {
	for attempt := 1; attempt <= o.opts.PriceAttempts; attempt++ {
		if attempt > 1 && !o.wait(ctx) {
			return 0, ctx.Err()
		}
		price, err := o.quotes.Price(ctx, mint)
		if err != nil {
			log.Warn("price API attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		observability.RecordOracleLookup(sourcePriceAPI)
		return price, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	observability.RecordOracleLookup(sourceNone)
	return 0, nil
}

// wait sleeps between attempts; it reports false if ctx ended first.
func (o *Oracle) wait(ctx context.Context) bool {
	t := time.NewTimer(o.opts.AttemptDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
