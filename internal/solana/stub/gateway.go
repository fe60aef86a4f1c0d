package stub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/solana"
)

// ErrSendRejected is returned by SendRaw when RejectSend is set.
var ErrSendRejected = errors.New("send rejected")

// Gateway is an in-memory network gateway for tests.
// Hooks left nil fall back to the stored fields.
type Gateway struct {
	Name string

	mu         sync.Mutex
	Records    map[string]*solana.Transaction
	Statuses   map[string]*solana.SignatureStatus
	Lease      domain.BlockhashLease
	Simulation *solana.SimulationResult
	RejectSend bool

	// RecordMisses is how many FetchRecord calls return nil before the record appears.
	RecordMisses int

	ConfirmFunc func(ctx context.Context, signature string, effectiveExpiry uint64) error
	SendFunc    func(ctx context.Context, raw []byte, opts solana.SendOptions) (string, error)

	Sends        atomic.Int32
	Resends      atomic.Int32
	StatusPolls  atomic.Int32
	RecordFetch  atomic.Int32
	ConfirmCalls atomic.Int32
}

// NewGateway creates an empty stub gateway.
func NewGateway(name string) *Gateway {
	return &Gateway{
		Name:     name,
		Records:  make(map[string]*solana.Transaction),
		Statuses: make(map[string]*solana.SignatureStatus),
		Lease:    domain.BlockhashLease{Blockhash: "stubhash", LastValidBlockHeight: 1000},
	}
}

// URL returns the gateway name.
func (g *Gateway) URL() string {
	return g.Name
}

// SendRaw records the send. Sends with SkipPreflight count as resends.
func (g *Gateway) SendRaw(ctx context.Context, raw []byte, opts solana.SendOptions) (string, error) {
	if opts.SkipPreflight {
		g.Resends.Add(1)
	} else {
		g.Sends.Add(1)
	}
	if g.SendFunc != nil {
		return g.SendFunc(ctx, raw, opts)
	}
	if g.RejectSend {
		return "", ErrSendRejected
	}
	return "", nil
}

// Simulate returns the configured simulation result.
func (g *Gateway) Simulate(_ context.Context, _ []byte) (*solana.SimulationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Simulation != nil {
		return g.Simulation, nil
	}
	return &solana.SimulationResult{}, nil
}

// ConfirmSignal delegates to ConfirmFunc or blocks until ctx is done.
func (g *Gateway) ConfirmSignal(ctx context.Context, signature string, effectiveExpiry uint64) error {
	g.ConfirmCalls.Add(1)
	if g.ConfirmFunc != nil {
		return g.ConfirmFunc(ctx, signature, effectiveExpiry)
	}
	<-ctx.Done()
	return ctx.Err()
}

// PollStatus returns the stored status of signature.
func (g *Gateway) PollStatus(_ context.Context, signature string) (*solana.SignatureStatus, error) {
	g.StatusPolls.Add(1)

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Statuses[signature], nil
}

// FetchRecord returns the stored record once RecordMisses is exhausted.
func (g *Gateway) FetchRecord(_ context.Context, signature string) (*solana.Transaction, error) {
	g.RecordFetch.Add(1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.RecordMisses > 0 {
		g.RecordMisses--
		return nil, nil
	}
	return g.Records[signature], nil
}

// LatestBlockhashLease returns the stored lease.
func (g *Gateway) LatestBlockhashLease(_ context.Context) (domain.BlockhashLease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Lease, nil
}

// SetStatus stores a signature status.
func (g *Gateway) SetStatus(signature string, status *solana.SignatureStatus) {
	g.mu.Lock()
	g.Statuses[signature] = status
	g.mu.Unlock()
}

// AddRecord stores a settled transaction.
func (g *Gateway) AddRecord(tx *solana.Transaction) {
	g.mu.Lock()
	g.Records[tx.Signature] = tx
	g.mu.Unlock()
}
