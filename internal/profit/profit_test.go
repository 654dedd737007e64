package profit

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"

	"github.com/solarb/flashbot/internal/market"
)

var nativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

func TestCeilDiv_S1(t *testing.T) {
	assert.Equal(t, uint64(900_000), market.CeilDiv(1_000_000_000, 9))
	assert.Equal(t, uint64(900_001), market.CeilDiv(1_000_000_001, 9))
}

func TestCompute_S2_RejectedBelowThreshold(t *testing.T) {
	in := Input{
		Borrow:      1_000_000_000,
		Leg1Out:     5_000_000,
		LegFinalOut: 1_000_500_000,
		PoolFeeBps:  9,
		Gas: GasParams{
			PriorityFeeMicro: 25_000,
			ComputeUnitLimit: 400_000,
			UseTip:           false,
		},
		NativeMint: nativeMint,
		TokenA:     solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		TokenB:     nativeMint,
	}

	result := Compute(in)

	assert.Equal(t, uint64(900_000), result.FlashFee)
	assert.Equal(t, uint64(15_000), result.GasLamports)
	assert.Equal(t, int64(3_000_000), result.GasInToken)
	assert.Equal(t, int64(-3_400_000), result.ExpectedProfit)
	assert.Equal(t, int32(-34), result.ProfitBps)

	const minProfitBps = 5
	assert.Less(t, result.ProfitBps, int32(minProfitBps))
}

func TestCompute_TokenAIsNative_GasPassesThroughUnconverted(t *testing.T) {
	in := Input{
		Borrow:      1_000_000,
		Leg1Out:     500_000,
		LegFinalOut: 1_100_000,
		PoolFeeBps:  9,
		Gas: GasParams{
			PriorityFeeMicro: 1_000,
			ComputeUnitLimit: 200_000,
		},
		NativeMint: nativeMint,
		TokenA:     nativeMint,
		TokenB:     solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
	}

	result := Compute(in)
	assert.Equal(t, result.GasLamports, uint64(result.GasInToken))
}

func TestCompute_NeitherLegNative_UsesStaticPrice(t *testing.T) {
	in := Input{
		Borrow:      1_000_000,
		Leg1Out:     500_000,
		LegFinalOut: 1_100_000,
		PoolFeeBps:  9,
		Gas: GasParams{
			PriorityFeeMicro: 1_000,
			ComputeUnitLimit: 200_000,
		},
		NativeMint: nativeMint,
		TokenA:     solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		TokenB:     solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"),
	}

	result := Compute(in)
	assert.Equal(t, result.GasInToken, int64(result.GasLamports)/staticNativePerBorrowUnit)
}
