// Package feestrategy scales priority fees and block-engine tips to an
// opportunity's quality: bigger expected profit bids a larger share for
// faster inclusion, marginal opportunities get the floor to preserve
// profit.
package feestrategy

import (
	"go.uber.org/zap"
)

// FeeParams is the computed fee configuration for one opportunity.
type FeeParams struct {
	ComputeUnitPriceMicro uint64
	TipLamports           uint64
	TotalSolCostLamports  uint64
}

// Strategy holds the tunable bounds of the bidding policy.
type Strategy struct {
	MinTipLamports uint64
	MaxTipLamports uint64
	TipProfitShare float64

	MinCUPriceMicro  uint64
	MaxCUPriceMicro  uint64
	BaseCUPriceMicro uint64

	ComputeUnits uint64

	logger *zap.Logger
}

// New builds a Strategy with the defaults the engine ships with.
func New(logger *zap.Logger) *Strategy {
	return &Strategy{
		MinTipLamports:   1_000,
		MaxTipLamports:   100_000,
		TipProfitShare:   0.40,
		MinCUPriceMicro:  1_000,
		MaxCUPriceMicro:  200_000,
		BaseCUPriceMicro: 10_000,
		ComputeUnits:     400_000,
		logger:           logger.Named("feestrategy"),
	}
}

// ComputeFees derives compute-unit price and tip from an opportunity's
// gross profit and flash-loan fee (both in borrow-token base units) and a
// SOL price estimate denominated in the same units.
func (s *Strategy) ComputeFees(grossProfit, flashFee int64, solPriceInQuoteUnits int64) FeeParams {
	netBeforeSol := grossProfit - flashFee
	if netBeforeSol <= 0 {
		return FeeParams{
			ComputeUnitPriceMicro: s.MinCUPriceMicro,
			TipLamports:           s.MinTipLamports,
			TotalSolCostLamports:  s.totalSol(s.MinCUPriceMicro, s.MinTipLamports),
		}
	}
	if solPriceInQuoteUnits <= 0 {
		solPriceInQuoteUnits = 1
	}

	profitInLamports := (netBeforeSol * 1_000_000_000) / solPriceInQuoteUnits

	rawTip := int64(float64(profitInLamports) * s.TipProfitShare)
	tip := clampInt64(rawTip, int64(s.MinTipLamports), int64(s.MaxTipLamports))

	denom := flashFee * 10000 / 9
	if denom < 1 {
		denom = 1
	}
	profitBpsApprox := netBeforeSol * 10000 / denom

	var cuPrice int64
	switch {
	case profitBpsApprox >= 50:
		cuPrice = int64(s.MaxCUPriceMicro)
	case profitBpsApprox >= 20:
		cuPrice = int64(s.MaxCUPriceMicro) / 2
	case profitBpsApprox >= 10:
		cuPrice = int64(s.BaseCUPriceMicro) * 2
	default:
		cuPrice = int64(s.BaseCUPriceMicro)
	}
	cuPrice = clampInt64(cuPrice, int64(s.MinCUPriceMicro), int64(s.MaxCUPriceMicro))

	totalSol := int64(s.totalSol(uint64(cuPrice), uint64(tip)))

	maxSolBudget := int64(float64(profitInLamports) * 0.80)
	if totalSol > maxSolBudget && maxSolBudget > 0 {
		// The 5000-lamport base fee cannot be scaled, so tip and cu_price
		// share whatever budget is left after it.
		scale := float64(maxSolBudget-5000) / float64(totalSol-5000)
		tip = maxInt64(int64(s.MinTipLamports), int64(float64(tip)*scale))
		cuPrice = maxInt64(int64(s.MinCUPriceMicro), int64(float64(cuPrice)*scale))
		totalSol = int64(s.totalSol(uint64(cuPrice), uint64(tip)))
	}

	s.logger.Debug("dynamic fees computed",
		zap.Int64("cu_price", cuPrice),
		zap.Int64("tip", tip),
		zap.Int64("total_sol", totalSol),
		zap.Int64("profit_sol", profitInLamports))

	return FeeParams{
		ComputeUnitPriceMicro: uint64(cuPrice),
		TipLamports:           uint64(tip),
		TotalSolCostLamports:  uint64(totalSol),
	}
}

func (s *Strategy) totalSol(cuPrice, tip uint64) uint64 {
	const baseFee = 5000
	priorityFee := (cuPrice * s.ComputeUnits) / 1_000_000
	return baseFee + priorityFee + tip
}

// EstimateCostInQuoteUnits converts the computed SOL cost to the
// borrow-token's base units at the given SOL price.
func (s *Strategy) EstimateCostInQuoteUnits(fees FeeParams, solPriceInQuoteUnits int64) int64 {
	return int64(fees.TotalSolCostLamports) * solPriceInQuoteUnits / 1_000_000_000
}

func clampInt64(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
