package pairs

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/solarb/flashbot/internal/market"
)

// StaticPair is one entry of the configured two-leg pair list: a target
// mint borrowed against a quote mint, with its own borrow size.
type StaticPair struct {
	Pair   market.Pair
	Borrow uint64
	Hot    bool
}

// staticPairsFile is the on-disk shape of the static pair catalog,
// following the same YAML-list-of-records convention as the task catalog.
type staticPairsFile struct {
	Pairs []struct {
		Pair   string `yaml:"pair"`
		Borrow uint64 `yaml:"borrow"`
		Hot    bool   `yaml:"hot"`
	} `yaml:"pairs"`
}

// StaticCatalog partitions the configured pairs into a fixed hot set,
// scanned every cycle, and a cold set rotated through in fixed-size
// batches — the hot/cold split named by the component design's scan
// strategy.
type StaticCatalog struct {
	hot  []StaticPair
	cold []StaticPair

	mu         sync.Mutex
	coldOffset int
}

// LoadStaticPairs reads a YAML pair catalog and resolves every symbol
// through registry.
func LoadStaticPairs(path string, registry *Registry, defaultBorrow uint64) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading static pair catalog: %w", err)
	}

	var file staticPairsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing static pair catalog: %w", err)
	}
	if len(file.Pairs) == 0 {
		return nil, fmt.Errorf("static pair catalog %s has no pairs", path)
	}

	catalog := &StaticCatalog{}
	for _, entry := range file.Pairs {
		pair, err := registry.ResolvePair(entry.Pair)
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", entry.Pair, err)
		}
		borrow := entry.Borrow
		if borrow == 0 {
			borrow = defaultBorrow
		}
		sp := StaticPair{Pair: pair, Borrow: borrow, Hot: entry.Hot}
		if sp.Hot {
			catalog.hot = append(catalog.hot, sp)
		} else {
			catalog.cold = append(catalog.cold, sp)
		}
	}
	return catalog, nil
}

// NewStaticCatalog builds a catalog directly from resolved pairs, for
// callers (tests, or a --pairs flag override) that skip the YAML file.
func NewStaticCatalog(hot, cold []StaticPair) *StaticCatalog {
	return &StaticCatalog{hot: hot, cold: cold}
}

// Hot returns every hot pair; these are scanned every cycle.
func (c *StaticCatalog) Hot() []StaticPair {
	out := make([]StaticPair, len(c.hot))
	copy(out, c.hot)
	return out
}

// NextColdBatch advances the rotating cold-pair pointer and returns up to
// n pairs, wrapping around the end of the cold set.
func (c *StaticCatalog) NextColdBatch(n int) []StaticPair {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.cold) == 0 {
		return nil
	}
	if n > len(c.cold) {
		n = len(c.cold)
	}

	batch := make([]StaticPair, 0, n)
	for i := 0; i < n; i++ {
		idx := (c.coldOffset + i) % len(c.cold)
		batch = append(batch, c.cold[idx])
	}
	c.coldOffset = (c.coldOffset + n) % len(c.cold)
	return batch
}
