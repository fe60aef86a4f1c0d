package solana

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MaxConnsPerHost bounds concurrent connections of one gateway.
const MaxConnsPerHost = 10

// Resolver caches one Gateway per endpoint URL. Gateways are never evicted.
type Resolver struct {
	mu       sync.Mutex
	gateways map[string]*Gateway
	wsURLs   map[string]string

	clientOpts  []ClientOption
	gatewayOpts []GatewayOption
	logger      *zap.Logger
}

// ResolverOption configures Resolver.
type ResolverOption func(*Resolver)

// WithClientOptions applies options to every HTTPClient the resolver builds.
func WithClientOptions(opts ...ClientOption) ResolverOption {
	return func(r *Resolver) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

// WithGatewayOptions applies options to every Gateway the resolver builds.
func WithGatewayOptions(opts ...GatewayOption) ResolverOption {
	return func(r *Resolver) {
		r.gatewayOpts = append(r.gatewayOpts, opts...)
	}
}

// WithResolverLogger sets the logger handed to gateways.
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates an empty resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		gateways: make(map[string]*Gateway),
		wsURLs:   make(map[string]string),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithWS registers an explicit WebSocket endpoint for an HTTP URL.
// It only affects gateways resolved afterwards.
func (r *Resolver) WithWS(httpURL, wsURL string) *Resolver {
	r.mu.Lock()
	r.wsURLs[httpURL] = wsURL
	r.mu.Unlock()
	return r
}

// Resolve returns the gateway for url, creating it on first use.
// Repeated calls with the same url return the same handle.
func (r *Resolver) Resolve(url string) *Gateway {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.gateways[url]; ok {
		return g
	}

	clientOpts := append([]ClientOption{WithHTTPClient(newKeepAliveClient())}, r.clientOpts...)
	rpc := NewHTTPClient(url, clientOpts...)

	gatewayOpts := append([]GatewayOption{WithGatewayLogger(r.logger)}, r.gatewayOpts...)
	if ws, ok := r.wsURLs[url]; ok {
		gatewayOpts = append(gatewayOpts, WithWSEndpoint(ws))
	}

	g := NewGateway(url, rpc, gatewayOpts...)
	r.gateways[url] = g
	return g
}

// Close closes every gateway's WebSocket.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.gateways {
		g.Close()
	}
	return nil
}

// newKeepAliveClient returns an http.Client with a pooled keep-alive transport.
func newKeepAliveClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: MaxConnsPerHost,
		MaxConnsPerHost:     MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   DefaultTimeout,
	}
}

// WSEndpointFor derives the WebSocket endpoint of an HTTP RPC URL.
func WSEndpointFor(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	return ""
}
