// Package profit computes integer-exact expected profit for a scanned
// opportunity, including the flash-loan fee ceiling and gas converted into
// borrow-token units. Every function here is pure: no I/O, no clock reads.
package profit

import (
	"github.com/gagliardetto/solana-go"

	"github.com/solarb/flashbot/internal/market"
)

// baseFeeLamports is the fixed per-transaction network fee charged
// regardless of compute-budget instructions.
const baseFeeLamports = 5_000

// staticNativePerBorrowUnit is the conservative fallback price (native
// lamports per borrow-token base unit) used when neither leg of a cycle
// touches the native mint, so gas can still be expressed in borrow-token
// terms.
const staticNativePerBorrowUnit = 140_000_000

// GasParams carries the compute-budget and tip inputs to gas accounting.
type GasParams struct {
	PriorityFeeMicro uint64
	ComputeUnitLimit uint64
	TipLamports      uint64
	UseTip           bool
}

// Input bundles everything the calculator needs to price one cycle leg pair.
type Input struct {
	Borrow      uint64
	Leg1Out     uint64
	LegFinalOut uint64
	PoolFeeBps  uint16
	Gas         GasParams
	NativeMint  solana.PublicKey
	TokenA      solana.PublicKey // borrow mint
	TokenB      solana.PublicKey // first destination mint
}

// Result is the calculator's integer-exact output.
type Result struct {
	FlashFee       uint64
	GasLamports    uint64
	GasInToken     int64
	ExpectedProfit int64
	ProfitBps      int32
}

// Compute runs the five-step profit derivation from the component design:
// flash fee, gas in lamports, gas converted to borrow-token units, expected
// profit, and profit in basis points.
func Compute(in Input) Result {
	flashFee := market.CeilDiv(in.Borrow, in.PoolFeeBps)

	gasLamports := baseFeeLamports + ceilDiv64(in.Gas.ComputeUnitLimit*in.Gas.PriorityFeeMicro, 1_000_000)
	if in.Gas.UseTip {
		gasLamports += in.Gas.TipLamports
	}

	gasInToken := convertGasToToken(gasLamports, in.Borrow, in.Leg1Out, in.TokenA, in.TokenB, in.NativeMint)

	expectedProfit := int64(in.LegFinalOut) - int64(in.Borrow) - int64(flashFee) - gasInToken

	return Result{
		FlashFee:       flashFee,
		GasLamports:    gasLamports,
		GasInToken:     gasInToken,
		ExpectedProfit: expectedProfit,
		ProfitBps:      market.ProfitBps(expectedProfit, in.Borrow),
	}
}

// convertGasToToken converts a lamport gas cost into borrow-token base
// units via whichever leg bridges the native mint and the borrow mint; if
// neither leg touches native, falls back to a conservative static price.
func convertGasToToken(gasLamports, borrow, leg1Out uint64, tokenA, tokenB, native solana.PublicKey) int64 {
	switch {
	case tokenB.Equals(native) && leg1Out > 0:
		return int64(gasLamports*borrow) / int64(leg1Out)
	case tokenA.Equals(native):
		return int64(gasLamports)
	default:
		return int64(gasLamports) / staticNativePerBorrowUnit
	}
}

func ceilDiv64(numerator, denominator uint64) uint64 {
	if denominator == 0 {
		return 0
	}
	return (numerator + denominator - 1) / denominator
}
