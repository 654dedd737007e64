package backrun

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
)

func testMint(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func TestMatchesSwap(t *testing.T) {
	assert.True(t, matchesSwap([]string{"Program log: Instruction: Swap"}))
	assert.True(t, matchesSwap([]string{"Program log: ray_log: ..."}))
	assert.False(t, matchesSwap([]string{"Program log: Instruction: InitializeLbPair"}))
	assert.False(t, matchesSwap(nil))
}

func TestTokenDeltas_SumsPostMinusPreByAccountIndex(t *testing.T) {
	mintA := testMint(1)
	mintB := testMint(2)

	pre := []solanarpc.TokenBalance{
		{AccountIndex: 0, Mint: mintA, UiTokenAmount: &solanarpc.UiTokenAmount{Amount: "1000000"}},
		{AccountIndex: 1, Mint: mintB, UiTokenAmount: &solanarpc.UiTokenAmount{Amount: "500000"}},
	}
	post := []solanarpc.TokenBalance{
		{AccountIndex: 0, Mint: mintA, UiTokenAmount: &solanarpc.UiTokenAmount{Amount: "990000"}},
		{AccountIndex: 1, Mint: mintB, UiTokenAmount: &solanarpc.UiTokenAmount{Amount: "600000"}},
	}

	deltas := tokenDeltas(pre, post)
	assert.Equal(t, int64(-10000), deltas[mintA])
	assert.Equal(t, int64(100000), deltas[mintB])
}

func TestTokenDeltas_NewAccountHasNoPriorBalance(t *testing.T) {
	mint := testMint(3)
	post := []solanarpc.TokenBalance{
		{AccountIndex: 5, Mint: mint, UiTokenAmount: &solanarpc.UiTokenAmount{Amount: "42"}},
	}
	deltas := tokenDeltas(nil, post)
	assert.Equal(t, int64(42), deltas[mint])
}

func TestNativeDelta_SubtractsFeeFromFeePayerDrop(t *testing.T) {
	// Fee payer lost 6000 lamports total, of which 5000 was the network fee.
	delta := nativeDelta([]uint64{1_000_000}, []uint64{994_000}, 5000)
	assert.Equal(t, int64(-1000), delta)
}

func TestNativeDelta_EmptyBalancesIsZero(t *testing.T) {
	assert.Equal(t, int64(0), nativeDelta(nil, nil, 0))
}

func TestIsLarge_USDCThreshold(t *testing.T) {
	usdc := testMint(10)
	native := testMint(11)

	assert.True(t, isLarge(usdc, 1_000_000_001, usdc, native))
	assert.False(t, isLarge(usdc, 1_000_000_000, usdc, native))
	assert.False(t, isLarge(testMint(20), 10_000_000_000, usdc, native))
}

func TestIsLarge_NativeThreshold(t *testing.T) {
	usdc := testMint(10)
	native := testMint(11)

	assert.True(t, isLarge(native, -6_000_000_000, usdc, native))
	assert.False(t, isLarge(native, 4_000_000_000, usdc, native))
}

func TestParseAmount_NilAndInvalid(t *testing.T) {
	assert.Equal(t, int64(0), parseAmount(nil))
	assert.Equal(t, int64(0), parseAmount(&solanarpc.UiTokenAmount{Amount: "not-a-number"}))
	assert.Equal(t, int64(123), parseAmount(&solanarpc.UiTokenAmount{Amount: "123"}))
}
