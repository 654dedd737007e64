// Package oracle reads on-chain price-feed accounts and cross-checks
// DEX-implied prices against them. The check is advisory: a large
// deviation is logged, never used to veto an opportunity.
package oracle

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	solclient "github.com/solarb/flashbot/internal/solana"
)

// staleSlots is the slot-lag threshold past which a price is annotated
// stale: roughly 30s at a 400ms slot time.
const staleSlots = 75

const cacheTTL = 5 * time.Second

// Layout describes the fixed byte offsets of the configured price-feed
// program's account layout. Different oracle families lay these fields out
// differently, so the engine takes one layout for the whole deployment
// rather than hardcoding a single vendor's struct.
type Layout struct {
	PriceOffset      int // int64, little-endian, raw mantissa
	ConfidenceOffset int // uint64, little-endian
	ExponentOffset   int // int32, little-endian, signed power-of-ten scale
	SlotOffset       int // uint64, little-endian, slot the price was published at
}

// Price is a decoded, scaled oracle reading for one mint.
type Price struct {
	Mint            solana.PublicKey
	Value           float64 // price in the feed's quote currency, after applying Exponent
	Confidence      float64
	FeedSlot        uint64
	Stale           bool
	FetchedAtMillis int64
}

type cacheEntry struct {
	price     Price
	expiresAt time.Time
}

// Reader polls configured price-feed accounts on a 5s cache window and
// exposes both raw prices and a DEX-vs-oracle deviation check.
type Reader struct {
	client *solclient.Client
	layout Layout
	feeds  map[solana.PublicKey]solana.PublicKey // mint -> price-feed account
	logger *zap.Logger

	mu    sync.Mutex
	cache map[solana.PublicKey]cacheEntry
}

// New builds a Reader. feeds maps a mint to the address of its configured
// price-feed account; mints with no entry have no oracle coverage.
func New(client *solclient.Client, layout Layout, feeds map[solana.PublicKey]solana.PublicKey, logger *zap.Logger) *Reader {
	return &Reader{
		client: client,
		layout: layout,
		feeds:  feeds,
		logger: logger.Named("oracle"),
		cache:  make(map[solana.PublicKey]cacheEntry),
	}
}

// Price returns the cached or freshly-fetched price for mint. ok is false
// when the mint has no configured feed.
func (r *Reader) Price(ctx context.Context, mint solana.PublicKey) (Price, bool, error) {
	feedAddr, ok := r.feeds[mint]
	if !ok {
		return Price{}, false, nil
	}

	if p, hit := r.cached(mint); hit {
		return p, true, nil
	}

	info, err := r.client.GetAccountInfo(ctx, feedAddr)
	if err != nil {
		return Price{}, false, fmt.Errorf("fetching price feed for %s: %w", mint, err)
	}
	if info == nil || info.Value == nil {
		return Price{}, false, fmt.Errorf("price feed account not found: %s", feedAddr)
	}

	currentSlot, err := r.client.GetSlot(ctx)
	if err != nil {
		return Price{}, false, fmt.Errorf("fetching current slot: %w", err)
	}

	price, err := r.decode(mint, info.Value.Data.GetBinary(), currentSlot)
	if err != nil {
		return Price{}, false, err
	}

	r.mu.Lock()
	r.cache[mint] = cacheEntry{price: price, expiresAt: time.Now().Add(cacheTTL)}
	r.mu.Unlock()

	return price, true, nil
}

func (r *Reader) cached(mint solana.PublicKey) (Price, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[mint]
	if !ok || time.Now().After(entry.expiresAt) {
		return Price{}, false
	}
	return entry.price, true
}

func (r *Reader) decode(mint solana.PublicKey, data []byte, currentSlot uint64) (Price, error) {
	need := r.layout.SlotOffset + 8
	if got := r.layout.PriceOffset + 8; got > need {
		need = got
	}
	if got := r.layout.ConfidenceOffset + 8; got > need {
		need = got
	}
	if got := r.layout.ExponentOffset + 4; got > need {
		need = got
	}
	if len(data) < need {
		return Price{}, fmt.Errorf("price feed account for %s too short: got %d bytes, need %d", mint, len(data), need)
	}

	rawPrice := int64(binary.LittleEndian.Uint64(data[r.layout.PriceOffset:]))
	rawConf := binary.LittleEndian.Uint64(data[r.layout.ConfidenceOffset:])
	expo := int32(binary.LittleEndian.Uint32(data[r.layout.ExponentOffset:]))
	feedSlot := binary.LittleEndian.Uint64(data[r.layout.SlotOffset:])

	scale := math.Pow10(int(expo))

	return Price{
		Mint:            mint,
		Value:           float64(rawPrice) * scale,
		Confidence:      float64(rawConf) * scale,
		FeedSlot:        feedSlot,
		Stale:           currentSlot > feedSlot && currentSlot-feedSlot > staleSlots,
		FetchedAtMillis: time.Now().UnixMilli(),
	}, nil
}

// DeviationReport compares a DEX-implied price against the oracle's.
type DeviationReport struct {
	InMint, OutMint solana.PublicKey
	DexPrice        float64 // units of inMint per one unit of outMint
	OraclePrice     float64
	DeviationBps    int32
	Exceeds         bool // |DeviationBps| > 100
}

// deviationThresholdBps is the advisory warn line; crossing it never blocks
// execution.
const deviationThresholdBps = 100

// ValidateQuote computes the deviation of a quote's implied price from the
// oracle cross price for the same pair. Returns nil, nil when either side
// of the pair has no configured feed — there is nothing to validate against.
func (r *Reader) ValidateQuote(ctx context.Context, inMint, outMint solana.PublicKey, inAmount, outAmount uint64, inDecimals, outDecimals uint8) (*DeviationReport, error) {
	if outAmount == 0 {
		return nil, fmt.Errorf("validate quote: zero output amount")
	}

	inPrice, haveIn, err := r.Price(ctx, inMint)
	if err != nil {
		return nil, err
	}
	outPrice, haveOut, err := r.Price(ctx, outMint)
	if err != nil {
		return nil, err
	}
	if !haveIn || !haveOut || inPrice.Value == 0 {
		return nil, nil
	}

	dexPrice := (float64(inAmount) / pow10(inDecimals)) / (float64(outAmount) / pow10(outDecimals))
	oraclePrice := outPrice.Value / inPrice.Value

	deviationBps := int32(math.Round((dexPrice - oraclePrice) / oraclePrice * 10_000))
	report := &DeviationReport{
		InMint:       inMint,
		OutMint:      outMint,
		DexPrice:     dexPrice,
		OraclePrice:  oraclePrice,
		DeviationBps: deviationBps,
		Exceeds:      abs32(deviationBps) > deviationThresholdBps,
	}

	if report.Exceeds {
		r.logger.Warn("dex price deviates from oracle",
			zap.String("in_mint", inMint.String()), zap.String("out_mint", outMint.String()),
			zap.Float64("dex_price", dexPrice), zap.Float64("oracle_price", oraclePrice),
			zap.Int32("deviation_bps", deviationBps))
	}

	return report, nil
}

func pow10(decimals uint8) float64 {
	return math.Pow10(int(decimals))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
