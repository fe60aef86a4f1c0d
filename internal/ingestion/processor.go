package ingestion

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/engine"
	"solana-tx-engine/internal/metrics"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/solana"
	"solana-tx-engine/internal/storage"
)

// Executor submits a transaction and classifies its settled outcome.
// *engine.Engine implements it.
type Executor interface {
	Execute(ctx context.Context, env *domain.TransactionEnvelope, primary, fast engine.Gateway) (engine.Outcome, error)
}

// PriceSubscriber keeps live price streams open. *pricing.SubscriptionManager implements it.
type PriceSubscriber interface {
	EnsureSubscribed(token string, decimals int) bool
}

// SwapParser derives swap results. *swap.Parser implements it.
type SwapParser interface {
	Parse(ctx context.Context, signature string, trade domain.TradeContext) (*domain.SwapResult, error)
	ParseRecord(ctx context.Context, record *solana.Transaction, trade domain.TradeContext) (*domain.SwapResult, error)
}

// ProcessorOptions contains the dependencies of a Processor.
type ProcessorOptions struct {
	Executor Executor
	Primary  engine.Gateway
	Fast     engine.Gateway // optional

	Prices        PriceSubscriber           // optional
	Subscriptions storage.SubscriptionStore // optional, persists subscribed tokens
	Parser        SwapParser                // optional, no metrics without it
	Metrics       storage.MetricsStore      // optional

	Logger *zap.Logger
	Now    func() time.Time
}

// Processor runs one inbound transaction through the pipeline:
// subscribe prices, execute, parse the swap, persist metrics.
type Processor struct {
	opts   ProcessorOptions
	logger *zap.Logger
}

// Result is the outcome of processing one message.
type Result struct {
	Outcome engine.Outcome
	Swap    *domain.SwapResult         // set when the swap was parsed
	Metrics *domain.TransactionMetrics // set when metrics were built
}

// NewProcessor creates a processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{opts: opts, logger: logger.Named("ingestion")}
}

// Submit executes a bare transaction without trade context.
func (p *Processor) Submit(ctx context.Context, env *domain.TransactionEnvelope) (engine.Outcome, error) {
	return p.opts.Executor.Execute(ctx, env, p.opts.Primary, p.opts.Fast)
}

// Process executes the message's transaction and, once landed, parses the
// swap and stores its metrics. Parse and store failures are logged and
// reported on the result; only submission errors are returned.
func (p *Processor) Process(ctx context.Context, msg *Message) (*Result, error) {
	env, err := domain.DecodeEnvelopeBase64(msg.Txn)
	if err != nil {
		return nil, err
	}
	trade := msg.TradeContext()
	log := p.logger.With(
		zap.String("request_id", trade.RequestID),
		zap.String("client", trade.ClientID),
		zap.String("signature", env.Signature),
	)

	p.subscribe(ctx, trade, log)

	out, err := p.Submit(ctx, env)
	if err != nil {
		return nil, err
	}
	res := &Result{Outcome: out}
	if !out.Landed() || p.opts.Parser == nil {
		return res, nil
	}

	var swapRes *domain.SwapResult
	if out.Record != nil {
		swapRes, err = p.opts.Parser.ParseRecord(ctx, out.Record, trade)
	} else {
		swapRes, err = p.opts.Parser.Parse(ctx, out.Signature, trade)
	}
	if err != nil {
		log.Error("swap not parsed", zap.Error(err))
		return res, nil
	}
	res.Swap = swapRes
	res.Metrics = metrics.Build(swapRes, trade, out.Signature, out.Latency, p.opts.Now())

	if p.opts.Metrics != nil {
		if err := p.opts.Metrics.Insert(ctx, res.Metrics); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				log.Info("metrics already stored")
			} else {
				log.Error("store metrics failed", zap.Error(err))
			}
		}
	}

	log.Info("swap processed",
		zap.Float64("amount_in_usd", swapRes.AmountInUSD),
		zap.Float64("amount_out_usd", swapRes.AmountOutUSD),
		zap.Float64("pnl", swapRes.PnL),
		zap.Duration("land_time", out.Latency))
	return res, nil
}

func (p *Processor) subscribe(ctx context.Context, trade domain.TradeContext, log *zap.Logger) {
	if p.opts.Prices == nil {
		return
	}
	legs := []storage.Subscription{
		{Token: trade.BaseMint, Decimals: trade.BaseDecimals},
		{Token: trade.QuoteMint, Decimals: trade.QuoteDecimals},
	}
	for _, leg := range legs {
		if !p.opts.Prices.EnsureSubscribed(leg.Token, leg.Decimals) {
			continue
		}
		if p.opts.Subscriptions == nil {
			continue
		}
		if err := p.opts.Subscriptions.Upsert(ctx, leg); err != nil {
			log.Warn("persist subscription failed", zap.String("token", leg.Token), zap.Error(err))
		}
	}
}

// HandleMessage decodes and processes a raw message. Panics are recovered
// and returned as errors so one bad message cannot stop a consumer.
func (p *Processor) HandleMessage(ctx context.Context, source string, data []byte) (err error) {
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing message",
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			status = "error"
		}
		observability.RecordMessage(source, status, time.Since(start).Seconds())
	}()

	msg, err := DecodeMessage(data)
	if err != nil {
		return err
	}

	res, err := p.Process(ctx, msg)
	if err != nil {
		return err
	}
	status = string(res.Outcome.Status)
	return nil
}

// RestoreSubscriptions reopens the price streams recorded in store.
// It returns the number of streams started.
func RestoreSubscriptions(ctx context.Context, store storage.SubscriptionStore, prices PriceSubscriber) (int, error) {
	subs, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscriptions: %w", err)
	}
	started := 0
	for _, sub := range subs {
		if prices.EnsureSubscribed(sub.Token, sub.Decimals) {
			started++
		}
	}
	return started, nil
}
