package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/gateway"
)

const (
	pollInterval    = 30 * time.Second
	maxProbesPerRun = 3
	probeAmount     = 1_000_000 // 1 USDC at 6 decimals
	probeSlippage   = 100       // bps
)

// PairListingEntry is one entry of the polled listing endpoint's response.
type PairListingEntry struct {
	Chain string `json:"chain"`
	Mint  string `json:"mint"`
}

// Poller periodically checks a pair-listing HTTP endpoint for newly
// listed mints on the target chain, probing each with a tiny quote before
// emitting it as a candidate.
type Poller struct {
	client      *http.Client
	listingURL  string
	targetChain string
	usdcMint    solana.PublicKey
	gateway     *gateway.Gateway
	logger      *zap.Logger
	seen        map[string]struct{}
}

// NewPoller builds a poller against listingURL, filtering entries to
// targetChain and probing candidates through gw.
func NewPoller(listingURL, targetChain string, usdcMint solana.PublicKey, gw *gateway.Gateway, logger *zap.Logger) *Poller {
	return &Poller{
		client:      &http.Client{Timeout: 8 * time.Second},
		listingURL:  listingURL,
		targetChain: targetChain,
		usdcMint:    usdcMint,
		gateway:     gw,
		logger:      logger.Named("discovery.poll"),
		seen:        make(map[string]struct{}),
	}
}

// Run polls every pollInterval until ctx is canceled, invoking onEvent for
// each probed mint that returns a nonzero quote.
func (p *Poller) Run(ctx context.Context, onEvent func(NewPoolEvent)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx, onEvent)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, onEvent func(NewPoolEvent)) {
	entries, err := p.fetchListings(ctx)
	if err != nil {
		p.logger.Debug("pair listing poll failed", zap.Error(err))
		return
	}

	probed := 0
	for _, entry := range entries {
		if probed >= maxProbesPerRun {
			return
		}
		if entry.Chain != p.targetChain {
			continue
		}
		if _, already := p.seen[entry.Mint]; already {
			continue
		}
		p.seen[entry.Mint] = struct{}{}

		mint, err := solana.PublicKeyFromBase58(entry.Mint)
		if err != nil {
			continue
		}

		probed++
		q, err := p.gateway.Quote(ctx, p.usdcMint, mint, probeAmount, probeSlippage, true)
		if err != nil {
			p.logger.Debug("probe quote failed", zap.String("mint", entry.Mint), zap.Error(err))
			continue
		}
		if q.OutAmountU64() == 0 {
			continue
		}

		onEvent(NewPoolEvent{Mints: []solana.PublicKey{p.usdcMint, mint}, Source: "http_poll"})
	}
}

func (p *Poller) fetchListings(ctx context.Context) ([]PairListingEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.listingURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pair listing endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var entries []PairListingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decoding pair listing response: %w", err)
	}
	return entries, nil
}
