package plinko

import (
	"sync"
	"sync/atomic"
)

// outcomeKey is the full generator argument tuple. Risk is not part of it:
// the tier changes the payout, never the bucket.
type outcomeKey struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	rows       int
}

// Cache memoizes an OutcomeSource by its exact arguments.
// Entries live as long as the Cache; nothing is evicted. Two goroutines
// missing on the same key may both compute it, which is harmless because
// the wrapped source is pure.
type Cache struct {
	src OutcomeSource

	mu      sync.RWMutex
	entries map[outcomeKey]int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache wraps src. A nil src uses HMACGenerator.
func NewCache(src OutcomeSource) *Cache {
	if src == nil {
		src = HMACGenerator{}
	}
	return &Cache{
		src:     src,
		entries: make(map[outcomeKey]int),
	}
}

// Outcome returns the cached bucket or computes and stores it.
// Errors are returned as-is and never cached.
func (c *Cache) Outcome(serverSeed, clientSeed string, nonce uint64, rows int) (int, error) {
	key := outcomeKey{serverSeed: serverSeed, clientSeed: clientSeed, nonce: nonce, rows: rows}

	c.mu.RLock()
	bucket, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return bucket, nil
	}

	c.misses.Add(1)
	bucket, err := c.src.Outcome(serverSeed, clientSeed, nonce, rows)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	if _, exists := c.entries[key]; !exists {
		c.entries[key] = bucket
	}
	c.mu.Unlock()
	return bucket, nil
}

// Len reports the number of stored outcomes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats reports lookup hits and misses so far.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
