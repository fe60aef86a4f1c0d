package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/observability"
)

// ExplorerURL returns the public explorer link of a signature.
func ExplorerURL(signature string) string {
	return "https://solscan.io/tx/" + signature
}

// Execute fetches a fresh lease from primary, simulates env, submits it and
// classifies the settled record. A simulation error aborts before any send.
func (e *Engine) Execute(ctx context.Context, env *domain.TransactionEnvelope, primary, fast Gateway) (Outcome, error) {
	lease, err := primary.LatestBlockhashLease(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("latest blockhash: %w", err)
	}

	if err := e.simulate(ctx, primary, env); err != nil {
		return Outcome{}, err
	}

	out, err := e.SubmitAndConfirm(ctx, env, lease, primary, fast)
	if err != nil {
		return Outcome{}, err
	}
	return e.classify(out), nil
}

// ExecuteBatch submits envs concurrently under one shared lease.
// Simulation is skipped. Outcomes are returned in input order; a failed
// submission leaves its slot zero and its error is returned after all finish.
func (e *Engine) ExecuteBatch(ctx context.Context, envs []*domain.TransactionEnvelope, primary, fast Gateway) ([]Outcome, error) {
	if len(envs) == 0 {
		return nil, nil
	}

	lease, err := primary.LatestBlockhashLease(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest blockhash: %w", err)
	}

	outcomes := make([]Outcome, len(envs))
	var g errgroup.Group
	for i, env := range envs {
		g.Go(func() error {
			out, err := e.SubmitAndConfirm(ctx, env, lease, primary, fast)
			if err != nil {
				return fmt.Errorf("batch item %d: %w", i, err)
			}
			outcomes[i] = e.classify(out)
			return nil
		})
	}
	err = g.Wait()

	e.logger.Info("batch processed", zap.Int("transactions", len(envs)), zap.Error(err))
	return outcomes, err
}

func (e *Engine) simulate(ctx context.Context, gw Gateway, env *domain.TransactionEnvelope) error {
	sim, err := gw.Simulate(ctx, env.Raw)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}
	if sim.Err != nil {
		e.logger.Error("simulation error",
			zap.String("signature", env.Signature),
			zap.String("err", describe(sim.Err)),
			zap.Strings("logs", sim.Logs))
		return &SimulationError{Err: sim.Err, Logs: sim.Logs}
	}
	return nil
}

// classify turns a confirmed outcome whose record carries an on-chain error into a failure.
func (e *Engine) classify(out Outcome) Outcome {
	log := e.logger.With(zap.String("signature", out.Signature))

	switch {
	case out.Status == StatusExpired:
		log.Error("transaction not confirmed")
	case out.Record != nil && out.Record.Failed():
		out.Status = StatusFailed
		out.Reason = describe(out.Record.Meta.Err)
		observability.RecordSubmission(string(StatusFailed), out.Latency.Seconds())
		log.Error("transaction failed", zap.String("reason", out.Reason), zap.String("explorer", ExplorerURL(out.Signature)))
	default:
		observability.MarkSubmissionSuccess(time.Now().Unix())
		log.Info("transaction landed", zap.String("explorer", ExplorerURL(out.Signature)))
	}
	return out
}
