package gateway

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solarb/flashbot/internal/market"
)

const (
	cacheTTL     = 5 * time.Second
	cacheMaxSize = 200
)

type cacheKey struct {
	input  solana.PublicKey
	output solana.PublicKey
	amount uint64
}

type cacheEntry struct {
	quote     market.Quote
	expiresAt time.Time
}

// quoteCache is a TTL cache keyed on (input, output, amount), owned
// exclusively by the Gateway per the concurrency model's single-owner rule.
type quoteCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func newQuoteCache() *quoteCache {
	return &quoteCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *quoteCache) get(key cacheKey) (market.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return market.Quote{}, false
	}
	return entry.quote, true
}

func (c *quoteCache) put(key cacheKey, q market.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= cacheMaxSize {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{quote: q, expiresAt: time.Now().Add(cacheTTL)}
}

// evictOldest drops the single stalest entry; called while already holding
// mu. Good enough at a 200-entry cap, no heap required.
func (c *quoteCache) evictOldest() {
	var oldestKey cacheKey
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// drain empties the cache, used alongside Bucket.Drain on an explicit
// operator-triggered reset.
func (c *quoteCache) drain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}
