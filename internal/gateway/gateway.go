// Package gateway is the single process-wide entry point for every
// external quote/instruction request: a token bucket paces calls to the
// primary aggregator, a 5s quote cache absorbs repeated lookups, and a
// per-source cooldown routes around a rate-limited quote source without
// tearing down the whole pipeline.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/alt"
	"github.com/solarb/flashbot/internal/market"
	solclient "github.com/solarb/flashbot/internal/solana"
	"github.com/solarb/flashbot/internal/venue"
)

const (
	// liteCooldown is the window a rate-limited lite source sits out,
	// within the documented 60-120s band.
	liteCooldown = 60 * time.Second

	requestTimeout    = 8 * time.Second
	defaultMaxRetries = 1

	lookupTableBatchSize = 10
)

// ErrProviderRequest is a non-retriable 4xx from the primary quote source;
// a lite-source failure falls through to the primary instead.
type ErrProviderRequest struct {
	Source string
	Status int
	Body   string
}

func (e *ErrProviderRequest) Error() string {
	return fmt.Sprintf("%s request rejected (%d): %s", e.Source, e.Status, e.Body)
}

// ErrNoRoute means a source responded successfully with a zero output
// amount; scanners treat this as "no opportunity", never as fatal.
var ErrNoRoute = errors.New("gateway: no route")

// Gateway implements the rate-limited provider boundary described in the
// component design: quote, swap_instructions, and load_lookup_tables.
type Gateway struct {
	lite    venue.QuoteSource
	primary venue.InstructionSource
	client  *solclient.Client

	bucket *Bucket
	cache  *quoteCache

	mu                sync.Mutex
	liteCooldownUntil time.Time

	maxRetries int
	logger     *zap.Logger
}

// New builds a Gateway wrapping lite (Raydium) as the cheap quote-only
// source and primary (Jupiter) as the aggregator that also supplies swap
// instructions. bucket paces every primary-bound request.
func New(lite venue.QuoteSource, primary venue.InstructionSource, client *solclient.Client, bucket *Bucket, logger *zap.Logger) *Gateway {
	return &Gateway{
		lite:       lite,
		primary:    primary,
		client:     client,
		bucket:     bucket,
		cache:      newQuoteCache(),
		maxRetries: defaultMaxRetries,
		logger:     logger.Named("gateway"),
	}
}

// Quote implements the six-step policy from the component design: cache,
// lite source, cooldown-and-drain on rate limit, primary source under the
// bucket with bounded retry, non-retriable surfacing, hard timeout.
func (g *Gateway) Quote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps uint16, directOnly bool) (market.Quote, error) {
	key := cacheKey{input: inputMint, output: outputMint, amount: amount}
	if q, ok := g.cache.get(key); ok {
		return q, nil
	}

	req := venue.QuoteRequest{InputMint: inputMint, OutputMint: outputMint, Amount: amount, SlippageBps: slippageBps, DirectOnly: directOnly}

	if !g.inLiteCooldown() {
		q, err := g.requestWithTimeout(ctx, func(c context.Context) (market.Quote, error) {
			return g.lite.Quote(c, req)
		})
		if err == nil {
			return g.acceptQuote(key, q)
		}
		if isRateLimited(err) {
			g.logger.Warn("lite quote source rate limited, entering cooldown",
				zap.String("source", g.lite.Name()), zap.Duration("cooldown", liteCooldown))
			g.enterLiteCooldown()
		} else {
			g.logger.Debug("lite quote failed, falling back to primary", zap.Error(err))
		}
	}

	q, err := g.primaryQuoteWithRetry(ctx, req)
	if err != nil {
		return market.Quote{}, err
	}
	return g.acceptQuote(key, q)
}

func (g *Gateway) acceptQuote(key cacheKey, q market.Quote) (market.Quote, error) {
	if q.OutAmountU64() == 0 {
		return market.Quote{}, ErrNoRoute
	}
	g.cache.put(key, q)
	return q, nil
}

func (g *Gateway) primaryQuoteWithRetry(ctx context.Context, req venue.QuoteRequest) (market.Quote, error) {
	op := func() (market.Quote, error) {
		if err := g.bucket.Acquire(ctx); err != nil {
			return market.Quote{}, backoff.Permanent(err)
		}
		q, err := g.requestWithTimeout(ctx, func(c context.Context) (market.Quote, error) {
			return g.primary.Quote(c, req)
		})
		if err == nil {
			return q, nil
		}

		var statusErr *venue.HTTPStatusError
		if errors.As(err, &statusErr) {
			if statusErr.Status == 429 {
				g.bucket.Drain()
				return market.Quote{}, err // retriable
			}
			if statusErr.Status >= 400 && statusErr.Status < 500 {
				return market.Quote{}, backoff.Permanent(&ErrProviderRequest{Source: g.primary.Name(), Status: statusErr.Status, Body: statusErr.Body})
			}
			return market.Quote{}, err // 5xx retriable
		}
		return market.Quote{}, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(g.maxRetries)+1),
	)
}

// SwapInstructions always goes through the primary aggregator: it is the
// only source that supplies executable instructions, and quote.Raw must be
// exactly what that source returned.
func (g *Gateway) SwapInstructions(ctx context.Context, quote market.Quote, user solana.PublicKey, wrapNative, useTokenLedger bool) (market.SwapInstructionBundle, error) {
	if err := g.bucket.Acquire(ctx); err != nil {
		return market.SwapInstructionBundle{}, err
	}
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return g.primary.SwapInstructions(reqCtx, quote, user, wrapNative, useTokenLedger)
}

// LoadLookupTables fetches and decodes the given lookup table addresses in
// batches, deduplicating nothing itself (the composer dedups before
// calling in).
func (g *Gateway) LoadLookupTables(ctx context.Context, addresses []solana.PublicKey) ([]*alt.Table, error) {
	tables := make([]*alt.Table, 0, len(addresses))
	for start := 0; start < len(addresses); start += lookupTableBatchSize {
		end := start + lookupTableBatchSize
		if end > len(addresses) {
			end = len(addresses)
		}
		for _, addr := range addresses[start:end] {
			table, err := alt.Load(ctx, g.client, addr)
			if err != nil {
				return nil, fmt.Errorf("loading lookup table %s: %w", addr, err)
			}
			tables = append(tables, table)
		}
	}
	return tables, nil
}

// Drain empties the quote cache and zeroes the token bucket, forcing
// subsequent callers to wait a full refill cycle.
func (g *Gateway) Drain() {
	g.bucket.Drain()
	g.cache.drain()
}

func (g *Gateway) inLiteCooldown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return time.Now().Before(g.liteCooldownUntil)
}

func (g *Gateway) enterLiteCooldown() {
	g.mu.Lock()
	g.liteCooldownUntil = time.Now().Add(liteCooldown)
	g.mu.Unlock()
	g.bucket.Drain()
}

func (g *Gateway) requestWithTimeout(ctx context.Context, fn func(context.Context) (market.Quote, error)) (market.Quote, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return fn(reqCtx)
}

// isRateLimited classifies an error as a source-level rate-limit signal:
// HTTP 429, or one of Raydium's Cloudflare-edge codes (1015, 403).
func isRateLimited(err error) bool {
	var statusErr *venue.HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.Status {
	case 429, 1015, 403:
		return true
	default:
		return false
	}
}
