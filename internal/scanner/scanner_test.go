package scanner

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/pairs"
	"github.com/solarb/flashbot/internal/profit"
	"github.com/solarb/flashbot/internal/venue"
)

// sequencedSource returns OutAmount from a fixed queue, one value per
// call, regardless of the request — good enough to script a specific
// multi-leg quote sequence deterministically.
type sequencedSource struct {
	name string
	outs []uint64
	i    int
}

func (s *sequencedSource) Name() string { return s.name }

func (s *sequencedSource) Quote(ctx context.Context, req venue.QuoteRequest) (market.Quote, error) {
	if s.i >= len(s.outs) {
		return market.Quote{}, &venue.HTTPStatusError{Source: s.name, Status: 500}
	}
	out := s.outs[s.i]
	s.i++
	return market.Quote{
		Source: s.name, InputMint: req.InputMint, OutputMint: req.OutputMint,
		OutAmount: itoa(out), PriceImpactPct: "0.01",
	}, nil
}

func (s *sequencedSource) SwapInstructions(ctx context.Context, q market.Quote, user solana.PublicKey, wrapNative, useTokenLedger bool) (market.SwapInstructionBundle, error) {
	return market.SwapInstructionBundle{}, nil
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	digits := []byte{}
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func testMint(seed byte, decimals uint8) market.Mint {
	var b [32]byte
	b[0] = seed
	return market.Mint{Address: solana.PublicKeyFromBytes(b[:]), Decimals: decimals}
}

func gasParams() profit.GasParams {
	return profit.GasParams{PriorityFeeMicro: 1000, ComputeUnitLimit: 200_000}
}

func TestTwoLegScanner_ProfitableRoundTripEmitsOpportunity(t *testing.T) {
	lite := &sequencedSource{name: "raydium", outs: []uint64{1_050_000_000, 1_100_000_000}}
	primary := &sequencedSource{name: "jupiter"}
	gw := gateway.New(lite, primary, nil, gateway.NewBucket(5, 5), zap.NewNop())

	usdc := testMint(1, 6)
	sol := testMint(2, 9)
	native := testMint(3, 9)

	s := NewTwoLegScanner(gw, 9, 5, 50, gasParams(), native, zap.NewNop())
	pair := pairs.StaticPair{Pair: market.Pair{Target: sol, Quote: usdc}, Borrow: 1_000_000_000}

	opp, err := s.ScanPair(context.Background(), pair)
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.GreaterOrEqual(t, opp.ProfitBps, int32(5))
	assert.Equal(t, uint64(1_050_000_000), opp.Leg1Out)
	assert.Equal(t, uint64(1_100_000_000), opp.Leg2Out)

	spread, ok := s.BestSpread(pair.Pair.String())
	require.True(t, ok)
	assert.Equal(t, opp.ProfitBps, spread.Bps)
}

func TestTwoLegScanner_BelowThresholdReturnsNil(t *testing.T) {
	lite := &sequencedSource{name: "raydium", outs: []uint64{1_000_000_000, 999_000_000}}
	primary := &sequencedSource{name: "jupiter"}
	gw := gateway.New(lite, primary, nil, gateway.NewBucket(5, 5), zap.NewNop())

	usdc := testMint(1, 6)
	sol := testMint(2, 9)
	native := testMint(3, 9)

	s := NewTwoLegScanner(gw, 9, 5, 50, gasParams(), native, zap.NewNop())
	pair := pairs.StaticPair{Pair: market.Pair{Target: sol, Quote: usdc}, Borrow: 1_000_000_000}

	opp, err := s.ScanPair(context.Background(), pair)
	require.NoError(t, err)
	assert.Nil(t, opp)
}

func TestTwoLegScanner_ZeroLeg1OutputErrors(t *testing.T) {
	lite := &sequencedSource{name: "raydium", outs: []uint64{0}}
	primary := &sequencedSource{name: "jupiter", outs: []uint64{0}}
	gw := gateway.New(lite, primary, nil, gateway.NewBucket(5, 5), zap.NewNop())

	usdc := testMint(1, 6)
	sol := testMint(2, 9)
	native := testMint(3, 9)

	s := NewTwoLegScanner(gw, 9, 5, 50, gasParams(), native, zap.NewNop())
	pair := pairs.StaticPair{Pair: market.Pair{Target: sol, Quote: usdc}, Borrow: 1_000_000_000}

	_, err := s.ScanPair(context.Background(), pair)
	assert.Error(t, err)
}

func TestTriangularScanner_ScanBatch_StopsAtFirstHit(t *testing.T) {
	// Route 1: unprofitable. Route 2: profitable. Scanner must stop there
	// and never issue quotes for a hypothetical route 3.
	lite := &sequencedSource{name: "raydium", outs: []uint64{
		1_000_000_000, 1_000_000_000, 999_000_000, // route 1: flat, net loss after fees
		1_050_000, 1_060_000, 1_100_000, // route 2: profitable
	}}
	primary := &sequencedSource{name: "jupiter"}
	gw := gateway.New(lite, primary, nil, gateway.NewBucket(10, 10), zap.NewNop())

	a := testMint(1, 6)
	b := testMint(2, 9)
	c := testMint(3, 9)
	native := testMint(4, 9)

	s := NewTriangularScanner(gw, 9, 5, 50, gasParams(), native, zap.NewNop())
	routes := []market.TriangularRoute{
		{Name: "route1", TokenA: a, TokenB: b, TokenC: c, BorrowAmount: 1_000_000_000},
		{Name: "route2", TokenA: a, TokenB: b, TokenC: c, BorrowAmount: 1_000_000},
	}

	opp, err := s.ScanBatch(context.Background(), routes)
	require.NoError(t, err)
	require.NotNil(t, opp)
	assert.Equal(t, "route2", opp.Route.Name)
}
