package pairs

import (
	"sync"

	"github.com/solarb/flashbot/internal/market"
)

// MaxConsecutiveFailures is the number of consecutive unroutable scans a
// dynamic pair tolerates before it is dropped from the set.
const MaxConsecutiveFailures = 5

type dynamicEntry struct {
	pair                StaticPair
	consecutiveFailures int
}

// DynamicSet tracks pairs promoted at runtime by the pool discovery
// listener. It has a single owner (the orchestrator's scan loop); callers
// on other goroutines reach it only through the Promote/RecordResult
// methods, never by mutating a returned snapshot.
type DynamicSet struct {
	mu      sync.Mutex
	entries map[string]*dynamicEntry
}

// NewDynamicSet builds an empty dynamic pair set.
func NewDynamicSet() *DynamicSet {
	return &DynamicSet{entries: make(map[string]*dynamicEntry)}
}

func pairKey(pair market.Pair) string {
	return pair.Target.Address.String() + "/" + pair.Quote.Address.String()
}

// Promote adds pair at the given borrow size if it is not already
// present. Returns false when the pair was already tracked — a dynamic
// pair is added at most once.
func (d *DynamicSet) Promote(pair market.Pair, borrow uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := pairKey(pair)
	if _, exists := d.entries[key]; exists {
		return false
	}
	d.entries[key] = &dynamicEntry{pair: StaticPair{Pair: pair, Borrow: borrow}}
	return true
}

// RecordResult updates a pair's consecutive-failure counter after a scan:
// routable resets it to zero, unroutable increments it and drops the pair
// once it reaches MaxConsecutiveFailures.
func (d *DynamicSet) RecordResult(pair market.Pair, routable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := pairKey(pair)
	entry, ok := d.entries[key]
	if !ok {
		return
	}
	if routable {
		entry.consecutiveFailures = 0
		return
	}
	entry.consecutiveFailures++
	if entry.consecutiveFailures >= MaxConsecutiveFailures {
		delete(d.entries, key)
	}
}

// Snapshot returns every currently tracked dynamic pair.
func (d *DynamicSet) Snapshot() []StaticPair {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]StaticPair, 0, len(d.entries))
	for _, entry := range d.entries {
		out = append(out, entry.pair)
	}
	return out
}

// Len reports how many pairs are currently tracked.
func (d *DynamicSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}
