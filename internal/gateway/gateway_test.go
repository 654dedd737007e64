package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/venue"
)

type fakeQuoteSource struct {
	name  string
	calls int
	err   error
	out   uint64
}

func (f *fakeQuoteSource) Name() string { return f.name }

func (f *fakeQuoteSource) Quote(ctx context.Context, req venue.QuoteRequest) (market.Quote, error) {
	f.calls++
	if f.err != nil {
		return market.Quote{}, f.err
	}
	return market.Quote{Source: f.name, InputMint: req.InputMint, OutputMint: req.OutputMint, OutAmount: itoa(f.out)}, nil
}

type fakeInstructionSource struct {
	fakeQuoteSource
	swapCalls int
}

func (f *fakeInstructionSource) SwapInstructions(ctx context.Context, q market.Quote, user solana.PublicKey, wrapNative, useTokenLedger bool) (market.SwapInstructionBundle, error) {
	f.swapCalls++
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

func TestGateway_Quote_CacheHit(t *testing.T) {
	lite := &fakeQuoteSource{name: "raydium", out: 100}
	primary := &fakeInstructionSource{fakeQuoteSource: fakeQuoteSource{name: "jupiter", out: 99}}
	g := New(lite, primary, nil, NewBucket(3, 1), zap.NewNop())

	in, out := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()

	q1, err := g.Quote(context.Background(), in, out, 1_000_000, 50, false)
	require.NoError(t, err)
	q2, err := g.Quote(context.Background(), in, out, 1_000_000, 50, false)
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	assert.Equal(t, 1, lite.calls)
}

func TestGateway_Quote_LiteRateLimitFallsBackAndCoolsDown(t *testing.T) {
	lite := &fakeQuoteSource{name: "raydium", err: &venue.HTTPStatusError{Source: "raydium", Status: 429}}
	primary := &fakeInstructionSource{fakeQuoteSource: fakeQuoteSource{name: "jupiter", out: 55}}
	g := New(lite, primary, nil, NewBucket(3, 1), zap.NewNop())

	in1, out1 := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	_, err := g.Quote(context.Background(), in1, out1, 1, 50, false)
	require.NoError(t, err)
	assert.Equal(t, 1, lite.calls)

	// Second, distinct request during the cooldown window must not call lite again.
	in2, out2 := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	_, err = g.Quote(context.Background(), in2, out2, 2, 50, false)
	require.NoError(t, err)
	assert.Equal(t, 1, lite.calls, "lite source must not be called again during cooldown")
	assert.Equal(t, 2, primary.calls)
}

func TestGateway_Quote_ZeroOutputIsNoRoute(t *testing.T) {
	lite := &fakeQuoteSource{name: "raydium", out: 0}
	primary := &fakeInstructionSource{fakeQuoteSource: fakeQuoteSource{name: "jupiter", out: 0}}
	g := New(lite, primary, nil, NewBucket(3, 1), zap.NewNop())

	_, err := g.Quote(context.Background(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1, 50, false)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestGateway_SwapInstructions_DelegatesToPrimary(t *testing.T) {
	lite := &fakeQuoteSource{name: "raydium"}
	primary := &fakeInstructionSource{fakeQuoteSource: fakeQuoteSource{name: "jupiter"}}
	g := New(lite, primary, nil, NewBucket(3, 1), zap.NewNop())

	_, err := g.SwapInstructions(context.Background(), market.Quote{}, solana.NewWallet().PublicKey(), true, true)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.swapCalls)
}

func TestBucket_AcquireMonotonicity(t *testing.T) {
	const capacity = 2.0
	const refill = 10.0 // tokens/sec
	b := NewBucket(capacity, refill)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Acquire(context.Background()))
	}
	elapsed := time.Since(start)

	minExpected := time.Duration((5-capacity)/refill*float64(time.Second)) - 20*time.Millisecond
	assert.GreaterOrEqual(t, elapsed, minExpected)
}

func TestBucket_Drain_ForcesWait(t *testing.T) {
	b := NewBucket(3, 100)
	require.NoError(t, b.Acquire(context.Background()))
	b.Drain()

	start := time.Now()
	require.NoError(t, b.Acquire(context.Background()))
	assert.Greater(t, time.Since(start), time.Duration(0))
}
