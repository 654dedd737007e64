package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/market"
)

const jupiterBaseURL = "https://api.jup.ag/swap/v1"

// Jupiter is the primary aggregator: it supplies both quotes and the
// swap-instruction bundles used at execution time.
type Jupiter struct {
	client  *http.Client
	apiKey  string
	logger  *zap.Logger
	baseURL string
}

// NewJupiter builds a Jupiter client. apiKey may be empty; when set it is
// carried on every request via the x-api-key header.
func NewJupiter(apiKey string, logger *zap.Logger) *Jupiter {
	return &Jupiter{
		client:  &http.Client{Timeout: 8 * time.Second},
		apiKey:  apiKey,
		logger:  logger.Named("venue.jupiter"),
		baseURL: jupiterBaseURL,
	}
}

func (j *Jupiter) Name() string { return "jupiter" }

type jupiterQuoteResponse struct {
	InputMint    string `json:"inputMint"`
	OutputMint   string `json:"outputMint"`
	InAmount     string `json:"inAmount"`
	OutAmount    string `json:"outAmount"`
	PriceImpact  string `json:"priceImpactPct"`
	RoutePlan    []struct {
		SwapInfo struct {
			AmmKey     string `json:"ammKey"`
			Label      string `json:"label"`
			InputMint  string `json:"inputMint"`
			OutputMint string `json:"outputMint"`
			InAmount   string `json:"inAmount"`
			OutAmount  string `json:"outAmount"`
			FeeAmount  string `json:"feeAmount"`
			FeeMint    string `json:"feeMint"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

// Quote fetches a quote from Jupiter's /quote endpoint.
func (j *Jupiter) Quote(ctx context.Context, req QuoteRequest) (market.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(int(req.SlippageBps)))
	q.Set("maxAccounts", "40")
	if req.DirectOnly {
		q.Set("onlyDirectRoutes", "true")
	}

	endpoint := j.baseURL + "/quote?" + q.Encode()
	body, err := j.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return market.Quote{}, err
	}

	var parsed jupiterQuoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return market.Quote{}, fmt.Errorf("decoding jupiter quote: %w", err)
	}
	if parsed.OutAmount == "" {
		return market.Quote{}, fmt.Errorf("jupiter quote empty: %s", string(body))
	}

	legs := make([]market.LegInfo, len(parsed.RoutePlan))
	for i, leg := range parsed.RoutePlan {
		legs[i] = market.LegInfo{
			AmmKey:     leg.SwapInfo.AmmKey,
			LabelName:  leg.SwapInfo.Label,
			InputMint:  leg.SwapInfo.InputMint,
			OutputMint: leg.SwapInfo.OutputMint,
			InAmount:   leg.SwapInfo.InAmount,
			OutAmount:  leg.SwapInfo.OutAmount,
			FeeAmount:  leg.SwapInfo.FeeAmount,
			FeeMint:    leg.SwapInfo.FeeMint,
		}
	}

	return market.Quote{
		Source:          j.Name(),
		InputMint:       req.InputMint,
		OutputMint:      req.OutputMint,
		InAmount:        parsed.InAmount,
		OutAmount:       parsed.OutAmount,
		SlippageBps:     req.SlippageBps,
		PriceImpactPct:  parsed.PriceImpact,
		RoutePlan:       legs,
		Raw:             body,
		FetchedAtMillis: time.Now().UnixMilli(),
	}, nil
}

type jupiterSwapInstructionsResponse struct {
	ComputeBudgetInstructions   []wireInstruction `json:"computeBudgetInstructions"`
	SetupInstructions           []wireInstruction `json:"setupInstructions"`
	SwapInstruction             wireInstruction   `json:"swapInstruction"`
	TokenLedgerInstruction      *wireInstruction  `json:"tokenLedgerInstruction"`
	CleanupInstruction          *wireInstruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string          `json:"addressLookupTableAddresses"`
}

// SwapInstructions requests the instruction bundle that executes quote.
// quote.Raw MUST be the exact payload this venue returned from Quote; it is
// passed through unchecked, and neither this client nor the gateway
// verifies which venue produced the quote.
func (j *Jupiter) SwapInstructions(ctx context.Context, quote market.Quote, user solana.PublicKey, wrapNative, useTokenLedger bool) (market.SwapInstructionBundle, error) {
	var quoteResponse json.RawMessage = quote.Raw

	reqBody := map[string]any{
		"quoteResponse":             quoteResponse,
		"userPublicKey":             user.String(),
		"wrapAndUnwrapSol":          wrapNative,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": 0,
		"useTokenLedger":            useTokenLedger,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return market.SwapInstructionBundle{}, fmt.Errorf("encoding swap-instructions request: %w", err)
	}

	body, err := j.do(ctx, http.MethodPost, j.baseURL+"/swap-instructions", payload)
	if err != nil {
		return market.SwapInstructionBundle{}, err
	}

	var parsed jupiterSwapInstructionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return market.SwapInstructionBundle{}, fmt.Errorf("decoding swap-instructions response: %w", err)
	}
	if parsed.SwapInstruction.ProgramID == "" {
		return market.SwapInstructionBundle{}, fmt.Errorf("jupiter returned no swap instruction: %s", string(body))
	}

	setup, err := decodeInstructions(append(parsed.ComputeBudgetInstructions, parsed.SetupInstructions...))
	if err != nil {
		return market.SwapInstructionBundle{}, fmt.Errorf("decoding setup instructions: %w", err)
	}
	swapIx, err := decodeInstruction(&parsed.SwapInstruction)
	if err != nil {
		return market.SwapInstructionBundle{}, fmt.Errorf("decoding swap instruction: %w", err)
	}
	var tokenLedger solana.Instruction
	if parsed.TokenLedgerInstruction != nil {
		tokenLedger, err = decodeInstruction(parsed.TokenLedgerInstruction)
		if err != nil {
			return market.SwapInstructionBundle{}, fmt.Errorf("decoding token ledger instruction: %w", err)
		}
	}
	var cleanup []solana.Instruction
	if parsed.CleanupInstruction != nil {
		ix, err := decodeInstruction(parsed.CleanupInstruction)
		if err != nil {
			return market.SwapInstructionBundle{}, fmt.Errorf("decoding cleanup instruction: %w", err)
		}
		cleanup = []solana.Instruction{ix}
	}
	lookupTables, err := decodeLookupTables(parsed.AddressLookupTableAddresses)
	if err != nil {
		return market.SwapInstructionBundle{}, err
	}

	return market.SwapInstructionBundle{
		Setup:        setup,
		TokenLedger:  tokenLedger,
		Swap:         swapIx,
		Cleanup:      cleanup,
		LookupTables: lookupTables,
	}, nil
}

func (j *Jupiter) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("building jupiter request: %w", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if j.apiKey != "" {
		httpReq.Header.Set("x-api-key", j.apiKey)
	}

	resp, err := j.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jupiter request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading jupiter response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{Source: "jupiter", Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
