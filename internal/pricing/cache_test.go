package pricing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("mint")
	assert.False(t, ok, "never set")

	c.Set("mint", 1.5)
	c.Set("mint", 2.5)

	p, ok := c.Get("mint")
	assert.True(t, ok)
	assert.Equal(t, 2.5, p, "last write wins")
	assert.Equal(t, 1, c.Len())
}

func TestCache_Snapshot(t *testing.T) {
	c := NewCache()
	c.Set("a", 1)
	c.Set("b", 2)

	snap := c.Snapshot()
	snap["a"] = 100

	p, _ := c.Get("a")
	assert.Equal(t, 1.0, p, "snapshot is a copy")
	assert.Len(t, snap, 2)
}

func TestCache_ConcurrentWriters(t *testing.T) {
	c := NewCache()
	const tokens = 50
	const writes = 200

	var wg sync.WaitGroup
	for i := 0; i < tokens; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("token-%d", i)
			for j := 0; j < writes; j++ {
				c.Set(token, float64(i))
				c.Get(token)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < tokens; i++ {
		p, ok := c.Get(fmt.Sprintf("token-%d", i))
		if !ok || p != float64(i) {
			t.Errorf("token-%d: got %v (ok=%v), want %d", i, p, ok, i)
		}
	}
}
