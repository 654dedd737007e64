package scanner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/profit"
)

// TriangularScanner walks a fixed batch of the static route catalog each
// cycle, quoting three sequential legs per route with direct_only=true to
// keep the composed transaction within the instruction-encoding size
// limit. It stops at the first route that clears the threshold: hits are
// rare enough that scanning the rest of the batch would waste rate
// budget for no benefit.
type TriangularScanner struct {
	gateway      *gateway.Gateway
	poolFeeBps   uint16
	minProfitBps int32
	slippageBps  uint16
	gasParams    profit.GasParams
	nativeMint   market.Mint
	logger       *zap.Logger
}

// NewTriangularScanner builds a scanner sharing gw with every other
// consumer of the rate-limited provider boundary.
func NewTriangularScanner(gw *gateway.Gateway, poolFeeBps uint16, minProfitBps int32, slippageBps uint16, gasParams profit.GasParams, nativeMint market.Mint, logger *zap.Logger) *TriangularScanner {
	return &TriangularScanner{
		gateway:      gw,
		poolFeeBps:   poolFeeBps,
		minProfitBps: minProfitBps,
		slippageBps:  slippageBps,
		gasParams:    gasParams,
		nativeMint:   nativeMint,
		logger:       logger.Named("scanner.triangular"),
	}
}

// ScanRoute quotes a single A->B->C->A route. A nil opportunity with a nil
// error means the route was priced but fell short of the threshold.
func (s *TriangularScanner) ScanRoute(ctx context.Context, route market.TriangularRoute) (*market.TriangularOpportunity, error) {
	q1, err := s.gateway.Quote(ctx, route.TokenA.Address, route.TokenB.Address, route.BorrowAmount, s.slippageBps, true)
	if err != nil {
		return nil, fmt.Errorf("%s leg1 quote: %w", route.Name, err)
	}
	leg1Out := q1.OutAmountU64()
	if leg1Out == 0 {
		return nil, fmt.Errorf("%s leg1 returned zero output", route.Name)
	}

	q2, err := s.gateway.Quote(ctx, route.TokenB.Address, route.TokenC.Address, leg1Out, s.slippageBps, true)
	if err != nil {
		return nil, fmt.Errorf("%s leg2 quote: %w", route.Name, err)
	}
	leg2Out := q2.OutAmountU64()
	if leg2Out == 0 {
		return nil, fmt.Errorf("%s leg2 returned zero output", route.Name)
	}

	q3, err := s.gateway.Quote(ctx, route.TokenC.Address, route.TokenA.Address, leg2Out, s.slippageBps, true)
	if err != nil {
		return nil, fmt.Errorf("%s leg3 quote: %w", route.Name, err)
	}
	leg3Out := q3.OutAmountU64()

	result := profit.Compute(profit.Input{
		Borrow:      route.BorrowAmount,
		Leg1Out:     leg1Out,
		LegFinalOut: leg3Out,
		PoolFeeBps:  s.poolFeeBps,
		Gas:         s.gasParams,
		NativeMint:  s.nativeMint.Address,
		TokenA:      route.TokenA.Address,
		TokenB:      route.TokenB.Address,
	})

	if result.ProfitBps < s.minProfitBps {
		s.logger.Debug("route below threshold",
			zap.String("route", route.Name), zap.Int32("profit_bps", result.ProfitBps))
		return nil, nil
	}

	opp := &market.TriangularOpportunity{
		Route: route, Leg1Out: leg1Out, Leg2Out: leg2Out, Leg3Out: leg3Out,
		FlashFee: result.FlashFee, SolCostsInToken: result.GasInToken,
		ExpectedProfit: result.ExpectedProfit, ProfitBps: result.ProfitBps,
		TimestampMillis: nowMillis(), QuoteLeg1: q1, QuoteLeg2: q2, QuoteLeg3: q3,
	}

	s.logger.Info("triangular opportunity found",
		zap.String("route", route.Name), zap.Int32("profit_bps", opp.ProfitBps),
		zap.Int64("expected_profit", opp.ExpectedProfit))

	return opp, nil
}

// ScanBatch scans routes in order and returns as soon as one clears the
// threshold, per the component design's first-hit-wins policy.
func (s *TriangularScanner) ScanBatch(ctx context.Context, batch []market.TriangularRoute) (*market.TriangularOpportunity, error) {
	for _, route := range batch {
		opp, err := s.ScanRoute(ctx, route)
		if err != nil {
			s.logger.Debug("route scan failed", zap.String("route", route.Name), zap.Error(err))
			continue
		}
		if opp != nil {
			return opp, nil
		}
	}
	return nil, nil
}
