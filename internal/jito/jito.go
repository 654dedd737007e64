// Package jito wraps the block-engine HTTP boundary used for
// MEV-competitive transaction and bundle submission.
package jito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

// TipAccounts is the fixed set of block-engine tip accounts; a submission
// picks one uniformly at random.
var TipAccounts = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"),
	solana.MustPublicKeyFromBase58("HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe"),
	solana.MustPublicKeyFromBase58("Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY"),
	solana.MustPublicKeyFromBase58("ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49"),
	solana.MustPublicKeyFromBase58("DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh"),
	solana.MustPublicKeyFromBase58("ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt"),
	solana.MustPublicKeyFromBase58("DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL"),
	solana.MustPublicKeyFromBase58("3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT"),
}

// Endpoints maps a --tip-region value to its regional block-engine host.
var Endpoints = map[string]string{
	"default":   "https://mainnet.block-engine.jito.wtf",
	"ny":        "https://ny.mainnet.block-engine.jito.wtf",
	"amsterdam": "https://amsterdam.mainnet.block-engine.jito.wtf",
	"frankfurt": "https://frankfurt.mainnet.block-engine.jito.wtf",
	"tokyo":     "https://tokyo.mainnet.block-engine.jito.wtf",
	"slc":       "https://slc.mainnet.block-engine.jito.wtf",
}

// BundleStatus mirrors the lifecycle of a submitted bundle.
type BundleStatus string

const (
	BundleStatusInvalid BundleStatus = "invalid"
	BundleStatusPending BundleStatus = "pending"
	BundleStatusFailed  BundleStatus = "failed"
	BundleStatusLanded  BundleStatus = "landed"
)

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// Client posts transactions and bundles to one regional block engine.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
}

// New builds a Client for the given region, falling back to "default" if
// the region is unrecognized.
func New(region string, logger *zap.Logger) *Client {
	endpoint, ok := Endpoints[region]
	if !ok {
		endpoint = Endpoints["default"]
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logger.Named("jito"),
	}
}

// RandomTipAccount picks uniformly from the fixed tip-account list.
func RandomTipAccount() solana.PublicKey {
	return TipAccounts[rand.Intn(len(TipAccounts))]
}

// BuildTipInstruction transfers tipLamports from payer to a randomly
// chosen tip account, appended to an opportunity's transaction to bid for
// block-engine inclusion.
func BuildTipInstruction(payer solana.PublicKey, tipLamports uint64) solana.Instruction {
	tipAccount := RandomTipAccount()
	return system.NewTransferInstruction(tipLamports, payer, tipAccount).Build()
}

// SendTransaction submits a single signed, base58-encoded transaction via
// the block engine's sendTransaction method.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, fmt.Errorf("marshaling transaction: %w", err)
	}
	encoded := base58.Encode(raw)

	var result string
	if err := c.call(ctx, "/api/v1/transactions", "sendTransaction",
		[]interface{}{encoded, map[string]string{"encoding": "base58"}}, &result); err != nil {
		return solana.Signature{}, err
	}

	sig, err := solana.SignatureFromBase58(result)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("parsing returned signature: %w", err)
	}
	c.logger.Info("Transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}

// SendBundle submits 1-5 ordered, signed transactions atomically.
func (c *Client) SendBundle(ctx context.Context, txs []*solana.Transaction) (string, error) {
	if len(txs) < 1 || len(txs) > 5 {
		return "", fmt.Errorf("bundle must contain 1-5 transactions, got %d", len(txs))
	}

	encoded := make([]string, len(txs))
	for i, tx := range txs {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return "", fmt.Errorf("marshaling bundle tx %d: %w", i, err)
		}
		encoded[i] = base58.Encode(raw)
	}

	var bundleID string
	if err := c.call(ctx, "/api/v1/bundles", "sendBundle", []interface{}{encoded}, &bundleID); err != nil {
		return "", err
	}
	c.logger.Info("Bundle sent", zap.String("bundle_id", bundleID), zap.Int("tx_count", len(txs)))
	return bundleID, nil
}

type bundleStatusResult struct {
	Value []struct {
		BundleID           string   `json:"bundle_id"`
		ConfirmationStatus string   `json:"confirmation_status"`
		Transactions       []string `json:"transactions"`
	} `json:"value"`
}

// GetBundleStatuses polls the block engine for the landing state of
// previously submitted bundles.
func (c *Client) GetBundleStatuses(ctx context.Context, bundleIDs []string) ([]BundleStatus, error) {
	var raw bundleStatusResult
	if err := c.call(ctx, "/api/v1/bundles", "getBundleStatuses", []interface{}{bundleIDs}, &raw); err != nil {
		return nil, err
	}

	statuses := make([]BundleStatus, len(bundleIDs))
	for i := range statuses {
		statuses[i] = BundleStatusInvalid
	}
	for _, v := range raw.Value {
		for i, id := range bundleIDs {
			if id != v.BundleID {
				continue
			}
			switch v.ConfirmationStatus {
			case "confirmed", "finalized":
				statuses[i] = BundleStatusLanded
			case "processed":
				statuses[i] = BundleStatusPending
			default:
				statuses[i] = BundleStatusFailed
			}
		}
	}
	return statuses, nil
}

func (c *Client) call(ctx context.Context, path, method string, params []interface{}, out interface{}) error {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("jito %s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading jito response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("decoding jito response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("jito %s failed: %s", method, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decoding jito %s result: %w", method, err)
	}
	return nil
}
