package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/pairs"
	"github.com/solarb/flashbot/internal/venue"
)

func testMint(seed byte) solana.PublicKey {
	var b [32]byte
	b[0] = seed
	return solana.PublicKeyFromBytes(b[:])
}

func TestSignatureSet_DedupAndPrune(t *testing.T) {
	s := NewSignatureSet()

	assert.False(t, s.SeenBefore("sig-1"))
	assert.True(t, s.SeenBefore("sig-1"))

	for i := 0; i < sigCapacity; i++ {
		s.SeenBefore(fmt.Sprintf("filler-%d", i))
	}
	assert.Len(t, s.order, sigPruneTo)
	// sig-1 was recorded before the flood and should have been pruned.
	assert.False(t, s.SeenBefore("sig-1"))
}

func TestMatchesPoolInit(t *testing.T) {
	assert.True(t, matchesPoolInit([]string{"Program log: instruction: initialize2"}))
	assert.True(t, matchesPoolInit([]string{"Program log: InitializeLbPair"}))
	assert.False(t, matchesPoolInit([]string{"Program log: instruction: swap"}))
	assert.False(t, matchesPoolInit(nil))
}

// fakeQuoteSource scripts a single-output quote source for probe quotes.
type fakeQuoteSource struct {
	name string
	out  uint64
}

func (f *fakeQuoteSource) Name() string { return f.name }

func (f *fakeQuoteSource) Quote(ctx context.Context, req venue.QuoteRequest) (market.Quote, error) {
	if f.out == 0 {
		return market.Quote{}, gateway.ErrNoRoute
	}
	return market.Quote{Source: f.name, InputMint: req.InputMint, OutputMint: req.OutputMint, OutAmount: fmt.Sprintf("%d", f.out)}, nil
}

func (f *fakeQuoteSource) SwapInstructions(ctx context.Context, q market.Quote, user solana.PublicKey, wrapNative, useTokenLedger bool) (market.SwapInstructionBundle, error) {
	return market.SwapInstructionBundle{}, nil
}

func testGateway(out uint64) *gateway.Gateway {
	lite := &fakeQuoteSource{name: "lite", out: out}
	primary := &fakeQuoteSource{name: "primary", out: out}
	return gateway.New(lite, primary, nil, gateway.NewBucket(10, 10), zap.NewNop())
}

func TestPoller_ProbesNewMintsAndEmitsOnNonZeroOutput(t *testing.T) {
	usdc := testMint(1)
	minted := testMint(2)
	skipped := testMint(3) // wrong chain

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := []PairListingEntry{
			{Chain: "solana", Mint: minted.String()},
			{Chain: "ethereum", Mint: skipped.String()},
		}
		_ = json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	gw := testGateway(500_000)
	p := NewPoller(srv.URL, "solana", usdc, gw, zap.NewNop())

	var events []NewPoolEvent
	p.pollOnce(context.Background(), func(e NewPoolEvent) { events = append(events, e) })

	require.Len(t, events, 1)
	assert.Equal(t, "http_poll", events[0].Source)
	assert.Equal(t, []solana.PublicKey{usdc, minted}, events[0].Mints)

	// A second poll of the same listing should skip the already-seen mint.
	events = nil
	p.pollOnce(context.Background(), func(e NewPoolEvent) { events = append(events, e) })
	assert.Empty(t, events)
}

func TestPoller_ZeroOutputQuoteIsSkipped(t *testing.T) {
	usdc := testMint(1)
	minted := testMint(2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := []PairListingEntry{{Chain: "solana", Mint: minted.String()}}
		_ = json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	gw := testGateway(0)
	p := NewPoller(srv.URL, "solana", usdc, gw, zap.NewNop())

	var events []NewPoolEvent
	p.pollOnce(context.Background(), func(e NewPoolEvent) { events = append(events, e) })
	assert.Empty(t, events)
}

func TestPoller_RespectsMaxProbesPerRun(t *testing.T) {
	usdc := testMint(1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := make([]PairListingEntry, 0, 5)
		for i := byte(10); i < 15; i++ {
			entries = append(entries, PairListingEntry{Chain: "solana", Mint: testMint(i).String()})
		}
		_ = json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	gw := testGateway(500_000)
	p := NewPoller(srv.URL, "solana", usdc, gw, zap.NewNop())

	var events []NewPoolEvent
	p.pollOnce(context.Background(), func(e NewPoolEvent) { events = append(events, e) })
	assert.Len(t, events, maxProbesPerRun)
}

func testRegistry() *pairs.Registry {
	r := pairs.NewRegistry()
	return r
}

func TestClassify_DiscardsWhenBothMintsAreKnownQuotes(t *testing.T) {
	registry := testRegistry()
	usdc, err := registry.Resolve("USDC")
	require.NoError(t, err)
	sol, err := registry.Resolve("SOL")
	require.NoError(t, err)

	_, _, ok := Classify(NewPoolEvent{Mints: []solana.PublicKey{usdc.Address, sol.Address}}, registry)
	assert.False(t, ok)
}

func TestClassify_DiscardsWhenNeitherMintIsAKnownQuote(t *testing.T) {
	registry := testRegistry()
	_, _, ok := Classify(NewPoolEvent{Mints: []solana.PublicKey{testMint(50), testMint(51)}}, registry)
	assert.False(t, ok)
}

func TestClassify_DiscardsNonUSDCQuotedPool(t *testing.T) {
	registry := testRegistry()
	sol, err := registry.Resolve("SOL")
	require.NoError(t, err)

	_, _, ok := Classify(NewPoolEvent{Mints: []solana.PublicKey{sol.Address, testMint(60)}}, registry)
	assert.False(t, ok)
}

func TestClassify_BuildsPairAndProbesForNewUSDCQuotedMint(t *testing.T) {
	registry := testRegistry()
	usdc, err := registry.Resolve("USDC")
	require.NoError(t, err)
	newMint := testMint(77)

	pairName, probes, ok := Classify(NewPoolEvent{Mints: []solana.PublicKey{usdc.Address, newMint}}, registry)
	require.True(t, ok)
	assert.Equal(t, fmt.Sprintf("%s/USDC", newMint.String()[:8]), pairName)
	require.Len(t, probes, 2)
	assert.Equal(t, uint64(snipeProbeSmall), probes[0].Borrow)
	assert.Equal(t, uint64(snipeProbeLarge), probes[1].Borrow)
}

func TestClassify_DiscardsTooFewMints(t *testing.T) {
	registry := testRegistry()
	_, _, ok := Classify(NewPoolEvent{Mints: []solana.PublicKey{testMint(1)}}, registry)
	assert.False(t, ok)
}
