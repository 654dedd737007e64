// Package scanner turns gateway quotes into priced arbitrage
// opportunities: a two-leg scanner over the static/dynamic pair lists and
// a triangular scanner over the static route catalog.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/pairs"
	"github.com/solarb/flashbot/internal/profit"
)

// maxConcurrentScans bounds how many pairs a batch quotes in parallel; the
// gateway's own token bucket still governs the actual request rate against
// the primary provider.
const maxConcurrentScans = 4

// Spread is the best observed profit_bps for a pair, with the time it was
// seen — used purely for operator visibility, never for gating.
type Spread struct {
	Bps       int32
	Timestamp time.Time
}

// TwoLegScanner quotes (quote -> target -> quote) for each configured pair
// and emits an ArbitrageOpportunity whenever the round trip clears the
// configured profit threshold.
type TwoLegScanner struct {
	gateway      *gateway.Gateway
	poolFeeBps   uint16
	minProfitBps int32
	slippageBps  uint16
	gasParams    profit.GasParams
	nativeMint   market.Mint
	logger       *zap.Logger

	mu          sync.Mutex
	bestSpreads map[string]Spread
}

// NewTwoLegScanner builds a scanner sharing gw with every other consumer
// of the rate-limited provider boundary.
func NewTwoLegScanner(gw *gateway.Gateway, poolFeeBps uint16, minProfitBps int32, slippageBps uint16, gasParams profit.GasParams, nativeMint market.Mint, logger *zap.Logger) *TwoLegScanner {
	return &TwoLegScanner{
		gateway:      gw,
		poolFeeBps:   poolFeeBps,
		minProfitBps: minProfitBps,
		slippageBps:  slippageBps,
		gasParams:    gasParams,
		nativeMint:   nativeMint,
		logger:       logger.Named("scanner.twoleg"),
		bestSpreads:  make(map[string]Spread),
	}
}

// ScanPair quotes a single pair in both legs and returns an opportunity
// when the round trip is profitable. A nil opportunity with a nil error
// means the pair was priced but fell short of the threshold.
func (s *TwoLegScanner) ScanPair(ctx context.Context, pair pairs.StaticPair) (*market.ArbitrageOpportunity, error) {
	quoteMint, targetMint := pair.Pair.Quote, pair.Pair.Target

	q1, err := s.gateway.Quote(ctx, quoteMint.Address, targetMint.Address, pair.Borrow, s.slippageBps, false)
	if err != nil {
		return nil, fmt.Errorf("leg 1 quote for %s: %w", pair.Pair, err)
	}
	leg1Out := q1.OutAmountU64()
	if leg1Out == 0 {
		return nil, fmt.Errorf("leg 1 quote for %s returned zero output", pair.Pair)
	}

	q2, err := s.gateway.Quote(ctx, targetMint.Address, quoteMint.Address, leg1Out, s.slippageBps, false)
	if err != nil {
		return nil, fmt.Errorf("leg 2 quote for %s: %w", pair.Pair, err)
	}
	leg2Out := q2.OutAmountU64()

	result := profit.Compute(profit.Input{
		Borrow:      pair.Borrow,
		Leg1Out:     leg1Out,
		LegFinalOut: leg2Out,
		PoolFeeBps:  s.poolFeeBps,
		Gas:         s.gasParams,
		NativeMint:  s.nativeMint.Address,
		TokenA:      quoteMint.Address,
		TokenB:      targetMint.Address,
	})

	s.recordSpread(pair.Pair.String(), result.ProfitBps)

	if result.ProfitBps < s.minProfitBps {
		s.logger.Debug("pair below threshold",
			zap.String("pair", pair.Pair.String()), zap.Int32("profit_bps", result.ProfitBps),
			zap.Int32("min_profit_bps", s.minProfitBps))
		return nil, nil
	}

	opp := &market.ArbitrageOpportunity{
		Pair: pair.Pair, TokenA: quoteMint, TokenB: targetMint,
		BorrowAmount: pair.Borrow, Leg1Out: leg1Out, Leg2Out: leg2Out,
		FlashFee: result.FlashFee, SolCostsInToken: result.GasInToken,
		ExpectedProfit: result.ExpectedProfit, ProfitBps: result.ProfitBps,
		PriceImpactLeg1: q1.PriceImpactPct, PriceImpactLeg2: q2.PriceImpactPct,
		TimestampMillis: nowMillis(), QuoteLeg1: q1, QuoteLeg2: q2,
	}

	s.logger.Info("opportunity found",
		zap.String("pair", pair.Pair.String()), zap.Int32("profit_bps", opp.ProfitBps),
		zap.Int64("expected_profit", opp.ExpectedProfit), zap.String("via", q1.Source))

	return opp, nil
}

// ScanBatch scans every pair in the batch, up to maxConcurrentScans at a
// time, and returns every opportunity found; a single pair's failure does
// not abort the batch.
func (s *TwoLegScanner) ScanBatch(ctx context.Context, batch []pairs.StaticPair) []*market.ArbitrageOpportunity {
	var (
		mu            sync.Mutex
		opportunities = make([]*market.ArbitrageOpportunity, 0, len(batch))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentScans)

	for _, p := range batch {
		p := p
		g.Go(func() error {
			opp, err := s.ScanPair(gctx, p)
			if err != nil {
				s.logger.Debug("pair scan failed", zap.String("pair", p.Pair.String()), zap.Error(err))
				return nil
			}
			if opp != nil {
				mu.Lock()
				opportunities = append(opportunities, opp)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return opportunities
}

func (s *TwoLegScanner) recordSpread(pair string, bps int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.bestSpreads[pair]
	if !ok || bps > prev.Bps {
		s.bestSpreads[pair] = Spread{Bps: bps, Timestamp: time.Now()}
	}
}

// BestSpread returns the best profit_bps observed for pair so far, for
// operator visibility in metrics/logging.
func (s *TwoLegScanner) BestSpread(pair string) (Spread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spread, ok := s.bestSpreads[pair]
	return spread, ok
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
