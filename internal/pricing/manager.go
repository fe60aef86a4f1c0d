package pricing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"solana-tx-engine/internal/observability"
)

// DefaultReconnectDelay is the fixed wait before reopening a closed stream.
const DefaultReconnectDelay = 1 * time.Second

// ManagerOption configures SubscriptionManager.
type ManagerOption func(*SubscriptionManager)

// WithReconnectDelay overrides the reconnect delay.
func WithReconnectDelay(d time.Duration) ManagerOption {
	return func(m *SubscriptionManager) {
		if d > 0 {
			m.reconnectDelay = d
		}
	}
}

// WithManagerLogger sets the manager logger.
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *SubscriptionManager) {
		if l != nil {
			m.logger = l
		}
	}
}

// SubscriptionManager keeps one supervised price stream per token feeding
// the cache. Streams live until Stop; there is no per-token unsubscribe.
type SubscriptionManager struct {
	cache          *Cache
	feed           Feed
	reconnectDelay time.Duration
	logger         *zap.Logger

	mu      sync.Mutex
	streams map[string]int // token -> decimals

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSubscriptionManager creates a manager writing prices from feed into cache.
func NewSubscriptionManager(cache *Cache, feed Feed, opts ...ManagerOption) *SubscriptionManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &SubscriptionManager{
		cache:          cache,
		feed:           feed,
		reconnectDelay: DefaultReconnectDelay,
		logger:         zap.NewNop(),
		streams:        make(map[string]int),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("price_subscriptions")
	return m
}

// EnsureSubscribed starts a stream for token unless one is already running.
// It reports whether a new stream was started.
func (m *SubscriptionManager) EnsureSubscribed(token string, decimals int) bool {
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx.Err() != nil {
		return false
	}
	if _, ok := m.streams[token]; ok {
		m.logger.Debug("already subscribed", zap.String("token", token))
		return false
	}
	m.streams[token] = decimals
	observability.SetActivePriceStreams(len(m.streams))

	m.wg.Add(1)
	go m.supervise(token, decimals)
	return true
}

// Subscribed returns the number of supervised streams.
func (m *SubscriptionManager) Subscribed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// supervise reopens the stream for token after every close until the manager stops.
func (m *SubscriptionManager) supervise(token string, decimals int) {
	defer m.wg.Done()
	log := m.logger.With(zap.String("token", token), zap.Int("decimals", decimals))

	for {
		ch, err := m.feed.Open(m.ctx, token, decimals)
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			log.Error("price stream error", zap.Error(err))
		} else {
			log.Info("price stream opened")
			for msg := range ch {
				m.cache.Set(token, msg.Price)
				observability.RecordPriceUpdate()
			}
			log.Info("price stream closed")
		}

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.reconnectDelay):
		}
		observability.RecordPriceReconnect()
	}
}

// Start blocks until Stop is called.
func (m *SubscriptionManager) Start() {
	m.logger.Info("price subscription manager started")
	<-m.ctx.Done()
}

// Stop closes every stream and waits for the supervisors to exit.
func (m *SubscriptionManager) Stop() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("price subscription manager stopped")
}
