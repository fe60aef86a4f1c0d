package solana

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"solana-tx-engine/internal/domain"
)

// DefaultBlockHeightInterval is how often ConfirmSignal checks the block height.
const DefaultBlockHeightInterval = 2 * time.Second

// wsDialTimeout bounds a shared WebSocket dial, which runs under its own context.
const wsDialTimeout = 10 * time.Second

// Gateway is a long-lived handle to one RPC endpoint: JSON-RPC over HTTP
// plus a lazily dialed WebSocket for signature subscriptions.
type Gateway struct {
	url    string
	wsURL  string
	rpc    RPCClient
	logger *zap.Logger

	wsConfig            WSClientConfig
	blockHeightInterval time.Duration

	wsMu      sync.Mutex
	ws        WSClient
	wsRetryAt time.Time // no redial before this after a failed dial
	wsDial    singleflight.Group
}

// GatewayOption configures Gateway.
type GatewayOption func(*Gateway)

// WithWSEndpoint overrides the WebSocket endpoint derived from the HTTP URL.
func WithWSEndpoint(url string) GatewayOption {
	return func(g *Gateway) {
		g.wsURL = url
	}
}

// WithWSConfig sets the WebSocket client configuration.
func WithWSConfig(cfg WSClientConfig) GatewayOption {
	return func(g *Gateway) {
		g.wsConfig = cfg
	}
}

// WithBlockHeightInterval sets the block height polling interval of ConfirmSignal.
func WithBlockHeightInterval(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.blockHeightInterval = d
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(l *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = l
	}
}

// WithWSClient sets a pre-built WebSocket client.
func WithWSClient(ws WSClient) GatewayOption {
	return func(g *Gateway) {
		g.ws = ws
	}
}

// NewGateway creates a gateway over an RPC client.
func NewGateway(url string, rpc RPCClient, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		url:                 url,
		wsURL:               WSEndpointFor(url),
		rpc:                 rpc,
		logger:              zap.NewNop(),
		wsConfig:            DefaultWSConfig(),
		blockHeightInterval: DefaultBlockHeightInterval,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("gateway", url))
	if g.wsConfig.Logger == nil {
		g.wsConfig.Logger = g.logger
	}
	return g
}

// URL returns the HTTP endpoint of the gateway.
func (g *Gateway) URL() string {
	return g.url
}

// SendRaw submits wire bytes and returns the signature reported by the node.
func (g *Gateway) SendRaw(ctx context.Context, raw []byte, opts SendOptions) (string, error) {
	return g.rpc.SendTransaction(ctx, raw, opts)
}

// Simulate runs the transaction against the node's latest bank.
func (g *Gateway) Simulate(ctx context.Context, raw []byte) (*SimulationResult, error) {
	return g.rpc.SimulateTransaction(ctx, raw)
}

// PollStatus returns the recent status of one signature, nil if unknown.
// Transaction history is not searched.
func (g *Gateway) PollStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	statuses, err := g.rpc.GetSignatureStatuses(ctx, []string{signature}, false)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, nil
	}
	return statuses[0], nil
}

// FetchRecord returns the settled transaction at confirmed commitment, nil if absent.
func (g *Gateway) FetchRecord(ctx context.Context, signature string) (*Transaction, error) {
	return g.rpc.GetTransaction(ctx, signature, CommitmentConfirmed)
}

// LatestBlockhashLease returns a lease at confirmed commitment.
func (g *Gateway) LatestBlockhashLease(ctx context.Context) (domain.BlockhashLease, error) {
	return g.rpc.GetLatestBlockhash(ctx, CommitmentConfirmed)
}

// ConfirmSignal waits for a confirmed signature notification while watching
// the block height. It returns nil once confirmed, ErrBlockHeightExceeded when
// the chain passes effectiveExpiry first, or ctx.Err() when cancelled.
// If the WebSocket is unavailable only the block height is watched.
func (g *Gateway) ConfirmSignal(ctx context.Context, signature string, effectiveExpiry uint64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var notifications <-chan SignatureNotification
	ws, err := g.wsClient(ctx)
	if err == nil {
		notifications, err = ws.SubscribeSignature(ctx, signature, CommitmentConfirmed)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.logger.Warn("signature subscription unavailable, watching block height only",
			zap.String("signature", signature), zap.Error(err))
	}

	ticker := time.NewTicker(g.blockHeightInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				// Subscription dropped; keep watching the height.
				notifications = nil
				continue
			}
			if n.Err != nil {
				g.logger.Debug("signature confirmed with on-chain error",
					zap.String("signature", signature), zap.Any("err", n.Err))
			}
			return nil
		case <-ticker.C:
			height, err := g.rpc.GetBlockHeight(ctx, CommitmentConfirmed)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				g.logger.Warn("get block height failed", zap.Error(err))
				continue
			}
			if height > effectiveExpiry {
				return fmt.Errorf("%w: height %d > %d", ErrBlockHeightExceeded, height, effectiveExpiry)
			}
		}
	}
}

// wsClient returns the WebSocket client, dialing it on first use. Concurrent
// callers share one dial and each stops waiting when its own ctx is done.
// After a failed dial no new dial starts until the reconnect delay passes.
func (g *Gateway) wsClient(ctx context.Context) (WSClient, error) {
	g.wsMu.Lock()
	if g.ws != nil {
		ws := g.ws
		g.wsMu.Unlock()
		return ws, nil
	}
	if g.wsURL == "" {
		g.wsMu.Unlock()
		return nil, fmt.Errorf("no websocket endpoint for %s", g.url)
	}
	if wait := time.Until(g.wsRetryAt); wait > 0 {
		g.wsMu.Unlock()
		return nil, fmt.Errorf("websocket %s unavailable, retry in %s", g.wsURL, wait.Round(time.Millisecond))
	}
	g.wsMu.Unlock()

	ch := g.wsDial.DoChan(g.wsURL, func() (interface{}, error) {
		return g.dialWS()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(WSClient), nil
	}
}

func (g *Gateway) dialWS() (WSClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), wsDialTimeout)
	defer cancel()

	cfg := g.wsConfig
	ws, err := NewWSClient(ctx, g.wsURL, &cfg)

	g.wsMu.Lock()
	defer g.wsMu.Unlock()
	if err != nil {
		g.wsRetryAt = time.Now().Add(g.wsConfig.ReconnectDelay)
		return nil, err
	}
	if g.ws != nil {
		_ = ws.Close()
		return g.ws, nil
	}
	g.ws = ws
	return ws, nil
}

// Close releases the WebSocket connection, if any.
func (g *Gateway) Close() error {
	g.wsMu.Lock()
	defer g.wsMu.Unlock()

	if g.ws == nil {
		return nil
	}
	err := g.ws.Close()
	g.ws = nil
	return err
}
