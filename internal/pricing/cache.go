// Package pricing keeps live token prices fed by streaming subscriptions
// and resolves prices on demand when the cache has none.
package pricing

import "sync"

// Cache maps token mint to its latest USD price. Last write wins.
// Safe for concurrent use.
type Cache struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{prices: make(map[string]float64)}
}

// Get returns the cached price of token.
func (c *Cache) Get(token string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[token]
	return p, ok
}

// Set stores the price of token.
func (c *Cache) Set(token string, price float64) {
	c.mu.Lock()
	c.prices[token] = price
	c.mu.Unlock()
}

// Snapshot returns a copy of all cached prices.
func (c *Cache) Snapshot() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]float64, len(c.prices))
	for k, v := range c.prices {
		out[k] = v
	}
	return out
}

// Len returns the number of cached tokens.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.prices)
}
