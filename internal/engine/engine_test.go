package engine

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/config"
	"github.com/solarb/flashbot/internal/events"
	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/metrics"
	"github.com/solarb/flashbot/internal/pairs"
)

func mustMint(t *testing.T, base58Key string) solana.PublicKey {
	t.Helper()
	return solana.MustPublicKeyFromBase58(base58Key)
}

func testEngine(t *testing.T, maxConsecutiveFailures int) *Engine {
	t.Helper()
	logger := zap.NewNop()
	return &Engine{
		cfg:    &config.Config{MaxConsecutiveFailures: maxConsecutiveFailures},
		metrics: metrics.NewCollector(),
		bus:    events.NewBus(logger, 16),
		logger: logger,
	}
}

func TestEngine_OnExecutionFailure_TripsKillSwitchAtLimit(t *testing.T) {
	e := testEngine(t, 3)

	e.onExecutionFailure()
	assert.Equal(t, 1, e.consecutiveFailures)
	assert.False(t, e.killSwitchTripped)

	e.onExecutionFailure()
	assert.False(t, e.killSwitchTripped)

	e.onExecutionFailure()
	assert.Equal(t, 3, e.consecutiveFailures)
	assert.True(t, e.killSwitchTripped)
}

func TestEngine_EstimateSolPriceInQuoteUnits_NoOracleFallsBack(t *testing.T) {
	e := &Engine{logger: zap.NewNop()}
	got := e.estimateSolPriceInQuoteUnits(nil, market.Mint{Decimals: 6})
	assert.Equal(t, int64(fallbackSolPriceInQuoteUnits), got)
}

func TestEngine_PreflightMints_DedupesAcrossCatalogs(t *testing.T) {
	quote := mustMint(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	targetA := mustMint(t, "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	targetB := mustMint(t, "So11111111111111111111111111111111111111112")

	pairAB := market.Pair{
		Target: market.Mint{Address: targetA, Decimals: 6},
		Quote:  market.Mint{Address: quote, Decimals: 6},
	}
	pairAC := market.Pair{
		Target: market.Mint{Address: targetB, Decimals: 9},
		Quote:  market.Mint{Address: quote, Decimals: 6},
	}

	hot := []pairs.StaticPair{{Pair: pairAB, Borrow: 1_000_000, Hot: true}}
	cold := []pairs.StaticPair{{Pair: pairAC, Borrow: 1_000_000, Hot: false}}
	staticCatalog := pairs.NewStaticCatalog(hot, cold)

	route := market.TriangularRoute{
		Name:   "A-B-C",
		TokenA: market.Mint{Address: quote, Decimals: 6},
		TokenB: market.Mint{Address: targetA, Decimals: 6},
		TokenC: market.Mint{Address: targetB, Decimals: 9},
	}
	triCatalog := pairs.NewTriangularCatalog([]market.TriangularRoute{route})

	e := &Engine{
		staticPairs: staticCatalog,
		triRoutes:   triCatalog,
		logger:      zap.NewNop(),
	}

	mints := e.preflightMints()
	require.Len(t, mints, 3)

	seen := make(map[solana.PublicKey]int)
	for _, m := range mints {
		seen[m]++
	}
	assert.Equal(t, 1, seen[quote])
	assert.Equal(t, 1, seen[targetA])
	assert.Equal(t, 1, seen[targetB])
}
