package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/market"
)

const raydiumBaseURL = "https://transaction-v1.raydium.io"

// raydiumMinInterval paces requests to stay under Raydium's Cloudflare edge
// rate limit; this is separate from the Gateway's token bucket, which paces
// only primary-bound calls.
const raydiumMinInterval = 1200 * time.Millisecond

// Raydium is the "lite" quote source: no API key, quote-only, no
// swap-instruction support (execution always goes through Jupiter).
type Raydium struct {
	client  *http.Client
	logger  *zap.Logger
	baseURL string

	mu          sync.Mutex
	lastRequest time.Time
}

// NewRaydium builds a quote-only Raydium client.
func NewRaydium(logger *zap.Logger) *Raydium {
	return &Raydium{
		client:  &http.Client{Timeout: 8 * time.Second},
		logger:  logger.Named("venue.raydium"),
		baseURL: raydiumBaseURL,
	}
}

func (r *Raydium) Name() string { return "raydium" }

type raydiumQuoteResponse struct {
	Success bool `json:"success"`
	Data    struct {
		InputMint    string `json:"inputMint"`
		OutputMint   string `json:"outputMint"`
		InputAmount  string `json:"inputAmount"`
		OutputAmount string `json:"outputAmount"`
		PriceImpact  string `json:"priceImpactPct"`
		RoutePlan    []struct {
			PoolID string `json:"poolId"`
		} `json:"routePlan"`
	} `json:"data"`
}

// Quote fetches a quote from Raydium's compute/swap-base-in endpoint,
// pacing requests to raydiumMinInterval apart.
func (r *Raydium) Quote(ctx context.Context, req QuoteRequest) (market.Quote, error) {
	r.pace(ctx)

	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(int(req.SlippageBps)))
	q.Set("txVersion", "V0")

	endpoint := r.baseURL + "/compute/swap-base-in?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.Quote{}, fmt.Errorf("building raydium request: %w", err)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return market.Quote{}, fmt.Errorf("raydium request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return market.Quote{}, fmt.Errorf("reading raydium response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return market.Quote{}, &HTTPStatusError{Source: "raydium", Status: resp.StatusCode, Body: string(body)}
	}

	var parsed raydiumQuoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return market.Quote{}, fmt.Errorf("decoding raydium response: %w", err)
	}
	if !parsed.Success || parsed.Data.OutputAmount == "" {
		return market.Quote{}, fmt.Errorf("raydium quote failed: %s", string(body))
	}

	legs := make([]market.LegInfo, len(parsed.Data.RoutePlan))
	for i, leg := range parsed.Data.RoutePlan {
		legs[i] = market.LegInfo{AmmKey: leg.PoolID}
	}

	return market.Quote{
		Source:          r.Name(),
		InputMint:       req.InputMint,
		OutputMint:      req.OutputMint,
		InAmount:        parsed.Data.InputAmount,
		OutAmount:       parsed.Data.OutputAmount,
		SlippageBps:     req.SlippageBps,
		PriceImpactPct:  parsed.Data.PriceImpact,
		RoutePlan:       legs,
		Raw:             body,
		FetchedAtMillis: time.Now().UnixMilli(),
	}, nil
}

func (r *Raydium) pace(ctx context.Context) {
	r.mu.Lock()
	wait := raydiumMinInterval - time.Since(r.lastRequest)
	if wait <= 0 {
		r.lastRequest = time.Now()
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	r.mu.Lock()
	r.lastRequest = time.Now()
	r.mu.Unlock()
}

// HTTPStatusError is a non-2xx response from a venue's HTTP endpoint. The
// gateway inspects Status to classify rate-limit vs non-retriable errors.
type HTTPStatusError struct {
	Source string
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s %d: %s", e.Source, e.Status, body)
}
