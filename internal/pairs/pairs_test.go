package pairs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarb/flashbot/internal/market"
)

func testMint(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func mustPK(address string) solana.PublicKey {
	return solana.MustPublicKeyFromBase58(address)
}

func TestRegistry_ResolveSymbol(t *testing.T) {
	r := NewRegistry()
	mint, err := r.Resolve("usdc")
	require.NoError(t, err)
	assert.Equal(t, uint8(6), mint.Decimals)
	assert.Equal(t, "USDC", mint.Symbol)
}

func TestRegistry_ResolveRawAddress(t *testing.T) {
	r := NewRegistry()
	mint, err := r.Resolve("11111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, uint8(market.DefaultDecimals), mint.Decimals)
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("not-a-symbol-or-address")
	assert.Error(t, err)
}

func TestRegistry_ResolvePair(t *testing.T) {
	r := NewRegistry()
	pair, err := r.ResolvePair("SOL/USDC")
	require.NoError(t, err)
	assert.Equal(t, "SOL", pair.Target.Symbol)
	assert.Equal(t, "USDC", pair.Quote.Symbol)
}

func TestRegistry_IsKnownQuote(t *testing.T) {
	r := NewRegistry()
	usdc, _ := r.Resolve("USDC")
	bonk, _ := r.Resolve("BONK")
	assert.True(t, r.IsKnownQuote(usdc.Address))
	assert.False(t, r.IsKnownQuote(bonk.Address))
}

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStaticPairs_PartitionsHotCold(t *testing.T) {
	path := writeYAML(t, `
pairs:
  - pair: "SOL/USDC"
    borrow: 200000000
    hot: true
  - pair: "JUP/USDC"
    hot: false
  - pair: "RAY/USDC"
    hot: false
`)
	r := NewRegistry()
	catalog, err := LoadStaticPairs(path, r, 50_000_000)
	require.NoError(t, err)

	hot := catalog.Hot()
	require.Len(t, hot, 1)
	assert.Equal(t, uint64(200_000_000), hot[0].Borrow)

	batch := catalog.NextColdBatch(10)
	assert.Len(t, batch, 2)
	for _, p := range batch {
		assert.Equal(t, uint64(50_000_000), p.Borrow)
	}
}

func TestStaticCatalog_NextColdBatch_Wraps(t *testing.T) {
	cold := []StaticPair{{Borrow: 1}, {Borrow: 2}, {Borrow: 3}}
	catalog := NewStaticCatalog(nil, cold)

	first := catalog.NextColdBatch(2)
	require.Len(t, first, 2)
	assert.Equal(t, uint64(1), first[0].Borrow)
	assert.Equal(t, uint64(2), first[1].Borrow)

	second := catalog.NextColdBatch(2)
	require.Len(t, second, 2)
	assert.Equal(t, uint64(3), second[0].Borrow)
	assert.Equal(t, uint64(1), second[1].Borrow) // wrapped around
}

func TestLoadTriangularRoutes(t *testing.T) {
	path := writeYAML(t, `
routes:
  - name: sol-jup-usdc
    category: native-hub
    a: SOL
    b: JUP
    c: USDC
    borrow: 100000000
`)
	r := NewRegistry()
	catalog, err := LoadTriangularRoutes(path, r, 50_000_000)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	batch := catalog.NextBatch(5)
	require.Len(t, batch, 1)
	assert.Equal(t, "sol-jup-usdc", batch[0].Name)
	assert.Equal(t, uint64(100_000_000), batch[0].BorrowAmount)
}

func TestTriangularCatalog_NextBatch_Wraps(t *testing.T) {
	routes := []market.TriangularRoute{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	catalog := NewTriangularCatalog(routes)

	first := catalog.NextBatch(2)
	assert.Equal(t, []string{"a", "b"}, namesOf(first))

	second := catalog.NextBatch(2)
	assert.Equal(t, []string{"c", "a"}, namesOf(second))
}

func namesOf(routes []market.TriangularRoute) []string {
	names := make([]string, len(routes))
	for i, r := range routes {
		names[i] = r.Name
	}
	return names
}

func TestDynamicSet_PromoteIsAtMostOnce(t *testing.T) {
	d := NewDynamicSet()
	pair := market.Pair{Target: market.Mint{Address: testMint(1)}, Quote: market.Mint{Address: testMint(2)}}

	assert.True(t, d.Promote(pair, 10_000_000))
	assert.False(t, d.Promote(pair, 10_000_000))
	assert.Equal(t, 1, d.Len())
}

func TestDynamicSet_DropsAfterMaxConsecutiveFailures(t *testing.T) {
	d := NewDynamicSet()
	pair := market.Pair{Target: market.Mint{Address: testMint(3)}, Quote: market.Mint{Address: testMint(4)}}
	d.Promote(pair, 10_000_000)

	for i := 0; i < MaxConsecutiveFailures-1; i++ {
		d.RecordResult(pair, false)
		assert.Equal(t, 1, d.Len())
	}
	d.RecordResult(pair, false)
	assert.Equal(t, 0, d.Len())
}

func TestDynamicSet_RoutableResetsFailureCount(t *testing.T) {
	d := NewDynamicSet()
	pair := market.Pair{Target: market.Mint{Address: testMint(5)}, Quote: market.Mint{Address: testMint(6)}}
	d.Promote(pair, 10_000_000)

	for i := 0; i < MaxConsecutiveFailures-1; i++ {
		d.RecordResult(pair, false)
	}
	d.RecordResult(pair, true)
	d.RecordResult(pair, false)
	assert.Equal(t, 1, d.Len(), "a routable result should have reset the failure streak")
}

func TestBorrowOverrides_Lookup(t *testing.T) {
	overrides := BorrowOverrides{"DezXAZ8z": 20_000_000}
	amount, ok := overrides.Lookup("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	require.True(t, ok)
	assert.Equal(t, uint64(20_000_000), amount)

	_, ok = overrides.Lookup("So11111111111111111111111111111111111111112")
	assert.False(t, ok)
}

func TestApplyOverrides(t *testing.T) {
	pairsList := []StaticPair{
		{Pair: market.Pair{Target: market.Mint{Address: mustPK("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")}}, Borrow: 999},
	}
	ApplyOverrides(pairsList, BorrowOverrides{"DezXAZ8z": 20_000_000})
	assert.Equal(t, uint64(20_000_000), pairsList[0].Borrow)
}
