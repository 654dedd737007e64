package pairs

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/solarb/flashbot/internal/market"
)

// triangularRoutesFile mirrors the route catalog's on-disk shape: each
// entry names three mints and a borrow size, grouped under a category
// label purely for operator readability (native-hub blue chips,
// liquid-staking triangles, meme triangles, stablecoin triangles,
// reverse-direction duplicates, no-hub triangles).
type triangularRoutesFile struct {
	Routes []struct {
		Name     string `yaml:"name"`
		Category string `yaml:"category"`
		A        string `yaml:"a"`
		B        string `yaml:"b"`
		C        string `yaml:"c"`
		Borrow   uint64 `yaml:"borrow"`
	} `yaml:"routes"`
}

// TriangularCatalog holds the static ~30-route catalog and a rotating
// offset pointer so each scan cycle advances through a fixed batch of
// routes instead of scanning all of them at once.
type TriangularCatalog struct {
	routes []market.TriangularRoute

	mu     sync.Mutex
	offset int
}

// LoadTriangularRoutes reads a YAML route catalog and resolves every mint
// through registry.
func LoadTriangularRoutes(path string, registry *Registry, defaultBorrow uint64) (*TriangularCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading triangular route catalog: %w", err)
	}

	var file triangularRoutesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing triangular route catalog: %w", err)
	}
	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("triangular route catalog %s has no routes", path)
	}

	catalog := &TriangularCatalog{}
	for _, entry := range file.Routes {
		a, err := registry.Resolve(entry.A)
		if err != nil {
			return nil, fmt.Errorf("route %q token A: %w", entry.Name, err)
		}
		b, err := registry.Resolve(entry.B)
		if err != nil {
			return nil, fmt.Errorf("route %q token B: %w", entry.Name, err)
		}
		c, err := registry.Resolve(entry.C)
		if err != nil {
			return nil, fmt.Errorf("route %q token C: %w", entry.Name, err)
		}
		borrow := entry.Borrow
		if borrow == 0 {
			borrow = defaultBorrow
		}
		catalog.routes = append(catalog.routes, market.TriangularRoute{
			Name: entry.Name, Category: entry.Category,
			TokenA: a, TokenB: b, TokenC: c,
			BorrowAmount: borrow,
		})
	}
	return catalog, nil
}

// NewTriangularCatalog builds a catalog directly from resolved routes.
func NewTriangularCatalog(routes []market.TriangularRoute) *TriangularCatalog {
	return &TriangularCatalog{routes: routes}
}

// Len reports the total number of routes in the catalog.
func (c *TriangularCatalog) Len() int {
	return len(c.routes)
}

// NextBatch advances the rotating offset pointer and returns up to n
// routes, wrapping around at the end of the catalog.
func (c *TriangularCatalog) NextBatch(n int) []market.TriangularRoute {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.routes) == 0 {
		return nil
	}
	if n > len(c.routes) {
		n = len(c.routes)
	}

	batch := make([]market.TriangularRoute, 0, n)
	for i := 0; i < n; i++ {
		idx := (c.offset + i) % len(c.routes)
		batch = append(batch, c.routes[idx])
	}
	c.offset = (c.offset + n) % len(c.routes)
	return batch
}
