package swap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/solana"
	"solana-tx-engine/internal/tokens"
)

// Default parser settings.
const (
	DefaultFetchAttempts = 10
	DefaultFetchInterval = 1 * time.Second
)

// RecordSource reads settled transactions. A nil record means not yet visible.
type RecordSource interface {
	FetchRecord(ctx context.Context, signature string) (*solana.Transaction, error)
}

// PriceOracle prices tokens in USD.
type PriceOracle interface {
	Price(ctx context.Context, mint string, trade domain.TradeContext) (float64, error)
	NativePrice(ctx context.Context) (float64, error)
}

// DecimalsSource resolves mint decimals.
type DecimalsSource interface {
	Decimals(ctx context.Context, mint string) (int, error)
}

// ParserOptions configures Parser.
type ParserOptions struct {
	FetchAttempts int
	FetchInterval time.Duration
	Logger        *zap.Logger
}

// Parser turns settled swap transactions into SwapResults.
type Parser struct {
	records  RecordSource
	oracle   PriceOracle
	decimals DecimalsSource
	opts     ParserOptions
	logger   *zap.Logger
}

// NewParser creates a swap parser.
func NewParser(records RecordSource, oracle PriceOracle, decimals DecimalsSource, opts ParserOptions) *Parser {
	if opts.FetchAttempts <= 0 {
		opts.FetchAttempts = DefaultFetchAttempts
	}
	if opts.FetchInterval <= 0 {
		opts.FetchInterval = DefaultFetchInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		records:  records,
		oracle:   oracle,
		decimals: decimals,
		opts:     opts,
		logger:   logger.Named("swap"),
	}
}

// Parse polls for the settled record of signature and parses it.
// A record that never appears yields ErrRecordUnavailable; every later
// failure is wrapped in ErrNotParsed.
func (p *Parser) Parse(ctx context.Context, signature string, trade domain.TradeContext) (*domain.SwapResult, error) {
	record, err := p.awaitRecord(ctx, signature)
	if err != nil {
		return nil, err
	}
	return p.ParseRecord(ctx, record, trade)
}

func (p *Parser) awaitRecord(ctx context.Context, signature string) (*solana.Transaction, error) {
	log := p.logger.With(zap.String("signature", signature))
	timer := time.NewTimer(p.opts.FetchInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.opts.FetchAttempts; attempt++ {
		if attempt > 1 {
			timer.Reset(p.opts.FetchInterval)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		record, err := p.records.FetchRecord(ctx, signature)
		if err != nil {
			log.Warn("fetch settled record failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if record != nil {
			return record, nil
		}
		log.Debug("settled record not visible yet, retrying", zap.Int("attempt", attempt))
	}

	observability.RecordSwapParse("unavailable")
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrRecordUnavailable, signature, p.opts.FetchAttempts)
}

// ParseRecord derives a SwapResult from a settled record.
func (p *Parser) ParseRecord(ctx context.Context, record *solana.Transaction, trade domain.TradeContext) (res *domain.SwapResult, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			observability.RecordSwapParse("not_parsed")
			err = fmt.Errorf("%w: %w", ErrNotParsed, err)
			return
		}
		observability.RecordSwapParse("parsed")
		p.logger.Debug("swap parsed", zap.String("signature", record.Signature), zap.Duration("took", time.Since(start)))
	}()

	if record == nil || record.Meta == nil {
		return nil, fmt.Errorf("record has no meta")
	}

	summary, err := p.Summarize(ctx, record)
	if err != nil {
		return nil, err
	}

	amountInUSD, err := p.legUSD(ctx, summary.In, trade)
	if err != nil {
		return nil, err
	}
	amountOutUSD, err := p.legUSD(ctx, summary.Out, trade)
	if err != nil {
		return nil, err
	}

	res = &domain.SwapResult{
		AmountIn:     summary.In.Amount,
		AmountOut:    summary.Out.Amount,
		AmountInUSD:  amountInUSD,
		AmountOutUSD: amountOutUSD,
	}

	inPrice := unitPrice(amountInUSD, summary.In.Amount)
	outPrice := unitPrice(amountOutUSD, summary.Out.Amount)
	if summary.In.Mint == trade.BaseMint {
		res.BaseTokenPrice, res.QuoteTokenPrice = inPrice, outPrice
	} else {
		res.BaseTokenPrice, res.QuoteTokenPrice = outPrice, inPrice
	}

	res.TransactionFee = tokens.FromUnits(record.Meta.Fee, domain.SOLDecimals)
	solPrice, err := p.oracle.NativePrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("native price: %w", err)
	}
	res.TransactionFeeUSD = res.TransactionFee * solPrice

	res.TotalSpent = res.TransactionFeeUSD + res.AmountInUSD
	res.PnL = res.AmountOutUSD - res.TotalSpent
	return res, nil
}

// Summarize extracts the decimal adjusted swap legs of record with their
// embedded USD valuation. When either leg is a USD stable both legs are
// valued at the stable amount.
func (p *Parser) Summarize(ctx context.Context, record *solana.Transaction) (*domain.SwapSummary, error) {
	raw, err := ExtractSwap(record)
	if err != nil {
		return nil, err
	}

	in, err := p.leg(ctx, record, raw.InMint, raw.InAmount)
	if err != nil {
		return nil, err
	}
	out, err := p.leg(ctx, record, raw.OutMint, raw.OutAmount)
	if err != nil {
		return nil, err
	}

	switch {
	case domain.IsUSDStable(in.Mint):
		in.USD, out.USD = in.Amount, in.Amount
	case domain.IsUSDStable(out.Mint):
		in.USD, out.USD = out.Amount, out.Amount
	}
	return &domain.SwapSummary{In: in, Out: out, Events: raw.Events}, nil
}

func (p *Parser) leg(ctx context.Context, record *solana.Transaction, mint string, units uint64) (domain.SwapLeg, error) {
	decimals, ok := domain.KnownDecimals(mint)
	if !ok {
		decimals, ok = record.TokenDecimals(mint)
	}
	if !ok {
		d, err := p.decimals.Decimals(ctx, mint)
		if err != nil {
			return domain.SwapLeg{}, fmt.Errorf("decimals of %s: %w", mint, err)
		}
		decimals = d
	}
	return domain.SwapLeg{
		Mint:     mint,
		Amount:   tokens.FromUnits(units, decimals),
		Decimals: decimals,
	}, nil
}

// legUSD prefers the embedded valuation and otherwise prices the leg through the oracle.
func (p *Parser) legUSD(ctx context.Context, leg domain.SwapLeg, trade domain.TradeContext) (float64, error) {
	if leg.USD != 0 {
		return leg.USD, nil
	}
	price, err := p.oracle.Price(ctx, leg.Mint, trade)
	if err != nil {
		return 0, fmt.Errorf("price of %s: %w", leg.Mint, err)
	}
	return leg.Amount * price, nil
}

func unitPrice(usd, amount float64) float64 {
	if amount == 0 {
		return 0
	}
	return usd / amount
}
