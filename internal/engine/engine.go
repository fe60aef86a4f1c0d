// Package engine lands signed transactions before their blockhash expires.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/solana"
)

// Default configuration values.
const (
	DefaultResendInterval        = 500 * time.Millisecond
	DefaultStatusPollInterval    = 500 * time.Millisecond
	DefaultRecordRetries         = 5
	DefaultRecordInitialInterval = 500 * time.Millisecond
	DefaultRecordMaxInterval     = 10 * time.Second
)

// errRecordPending marks a record fetch that returned nothing yet.
var errRecordPending = errors.New("record not yet available")

// Options configures Engine.
type Options struct {
	ResendInterval        time.Duration
	StatusPollInterval    time.Duration
	RecordRetries         int
	RecordInitialInterval time.Duration
	RecordMaxInterval     time.Duration
	Logger                *zap.Logger
}

// Engine submits transactions and waits for their confirmation.
// Safe for concurrent use; each submission owns its own cancellation scope.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// New creates an engine, filling unset options with defaults.
func New(opts Options) *Engine {
	if opts.ResendInterval <= 0 {
		opts.ResendInterval = DefaultResendInterval
	}
	if opts.StatusPollInterval <= 0 {
		opts.StatusPollInterval = DefaultStatusPollInterval
	}
	if opts.RecordRetries <= 0 {
		opts.RecordRetries = DefaultRecordRetries
	}
	if opts.RecordInitialInterval <= 0 {
		opts.RecordInitialInterval = DefaultRecordInitialInterval
	}
	if opts.RecordMaxInterval <= 0 {
		opts.RecordMaxInterval = DefaultRecordMaxInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger.Named("engine")}
}

type raceResult struct {
	source string
	err    error
}

// SubmitAndConfirm sends env, resends it until the submission settles, and
// races a push confirmation against status polling. fast is used for sending
// and confirming when non-nil; the settled record is always read from primary.
//
// An expired lease yields an Expired outcome with a nil error. Send rejection,
// confirmation failures and a missing record are returned as errors.
func (e *Engine) SubmitAndConfirm(ctx context.Context, env *domain.TransactionEnvelope, lease domain.BlockhashLease, primary, fast Gateway) (Outcome, error) {
	sender := primary
	if fast != nil {
		sender = fast
	}
	log := e.logger.With(zap.String("signature", env.Signature), zap.String("gateway", sender.URL()))

	start := time.Now()
	sig, err := sender.SendRaw(ctx, env.Raw, solana.SendOptions{})
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrSendRejected, err)
	}
	if sig != "" && sig != env.Signature {
		log.Warn("gateway reported a different signature", zap.String("reported", sig))
	}
	sig = env.Signature

	winner, err := e.race(ctx, env, sig, lease.EffectiveExpiry(), sender, log)
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, solana.ErrBlockHeightExceeded) {
			log.Warn("transaction expired before confirmation",
				zap.Uint64("effective_expiry", lease.EffectiveExpiry()), zap.Duration("elapsed", latency))
			observability.RecordSubmission(string(StatusExpired), latency.Seconds())
			return Outcome{Status: StatusExpired, Signature: sig, Latency: latency}, nil
		}
		return Outcome{}, fmt.Errorf("confirm %s: %w", sig, err)
	}
	observability.RecordConfirmWinner(winner)
	log.Info("transaction confirmed", zap.String("via", winner), zap.Duration("latency", latency))

	record, err := e.fetchRecord(ctx, primary, sig)
	if err != nil {
		return Outcome{}, err
	}

	observability.RecordSubmission(string(StatusConfirmed), latency.Seconds())
	return Outcome{
		Status:    StatusConfirmed,
		Signature: sig,
		Record:    record,
		Latency:   latency,
	}, nil
}

// race runs the resend loop and both confirmation signals in one scope and
// returns the first settled result. Every goroutine has exited on return.
func (e *Engine) race(ctx context.Context, env *domain.TransactionEnvelope, sig string, expiry uint64, sender Gateway, log *zap.Logger) (string, error) {
	scope, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.resendLoop(scope, sender, env.Raw, log)
	}()

	results := make(chan raceResult, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results <- raceResult{source: "signal", err: sender.ConfirmSignal(scope, sig, expiry)}
	}()
	go func() {
		defer wg.Done()
		results <- raceResult{source: "poll", err: e.pollStatus(scope, sender, sig, log)}
	}()

	first := <-results
	return first.source, first.err
}

// resendLoop resends raw with preflight skipped until ctx is done.
// Failures are logged and swallowed.
func (e *Engine) resendLoop(ctx context.Context, gw Gateway, raw []byte, log *zap.Logger) {
	ticker := time.NewTicker(e.opts.ResendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, err := gw.SendRaw(ctx, raw, solana.SendOptions{SkipPreflight: true})
		if ctx.Err() != nil {
			return
		}
		observability.RecordResend(err)
		if err != nil {
			log.Warn("failed to resend transaction", zap.Error(err))
		}
	}
}

// pollStatus polls the signature status until it is confirmed or ctx is done.
func (e *Engine) pollStatus(ctx context.Context, gw Gateway, sig string, log *zap.Logger) error {
	ticker := time.NewTicker(e.opts.StatusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := gw.PollStatus(ctx, sig)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug("signature status poll failed", zap.Error(err))
			continue
		}
		if status.IsConfirmed() {
			return nil
		}
	}
}

// fetchRecord reads the settled transaction from gw, retrying with
// exponential backoff while the node has not caught up.
func (e *Engine) fetchRecord(ctx context.Context, gw Gateway, sig string) (*solana.Transaction, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.opts.RecordInitialInterval
	b.MaxInterval = e.opts.RecordMaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.opts.RecordRetries)), ctx)

	var record *solana.Transaction
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		tx, err := gw.FetchRecord(ctx, sig)
		if err != nil {
			e.logger.Debug("fetch record failed", zap.String("signature", sig), zap.Error(err))
			return err
		}
		if tx == nil {
			return errRecordPending
		}
		record = tx
		return nil
	}, policy)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrRecordNotFound, sig, attempts, err)
	}
	return record, nil
}
