package feestrategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestComputeFees_Unprofitable(t *testing.T) {
	s := New(zap.NewNop())
	fees := s.ComputeFees(100, 200, 85_000_000)

	assert.Equal(t, s.MinCUPriceMicro, fees.ComputeUnitPriceMicro)
	assert.Equal(t, s.MinTipLamports, fees.TipLamports)
}

func TestComputeFees_LargeProfitHitsCeilings(t *testing.T) {
	s := New(zap.NewNop())
	fees := s.ComputeFees(50_000_000, 1_000, 85_000_000)

	assert.Equal(t, s.MaxCUPriceMicro, fees.ComputeUnitPriceMicro)
	assert.LessOrEqual(t, fees.TipLamports, s.MaxTipLamports)
}

func TestComputeFees_NeverExceeds80PercentOfProfit(t *testing.T) {
	s := New(zap.NewNop())
	grossProfit := int64(2_000)
	flashFee := int64(100)
	solPrice := int64(85_000_000)

	fees := s.ComputeFees(grossProfit, flashFee, solPrice)
	profitInLamports := (grossProfit - flashFee) * 1_000_000_000 / solPrice

	assert.LessOrEqual(t, int64(fees.TotalSolCostLamports), int64(float64(profitInLamports)*0.80)+1)
}
