// Package venue normalizes quotes and swap-instruction bundles from the two
// configured quote sources into one shape: a "lite" source (Raydium) that
// is quote-only and cheap to call, and a primary aggregator (Jupiter) that
// also supplies executable swap instructions.
package venue

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solarb/flashbot/internal/market"
)

// QuoteRequest is the input shape both venues accept.
type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps uint16
	DirectOnly  bool
}

// QuoteSource fetches a normalized quote. Implementations must not mutate
// the request and must preserve the provider's raw payload on Quote.Raw.
type QuoteSource interface {
	Name() string
	Quote(ctx context.Context, req QuoteRequest) (market.Quote, error)
}

// InstructionSource additionally supplies the instructions to execute a
// previously fetched quote.
type InstructionSource interface {
	QuoteSource
	SwapInstructions(ctx context.Context, quote market.Quote, user solana.PublicKey, wrapNative, useTokenLedger bool) (market.SwapInstructionBundle, error)
}

// wireAccountMeta mirrors the aggregator's JSON account shape.
type wireAccountMeta struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// wireInstruction mirrors the aggregator's JSON instruction shape:
// program id, an account list, and base64-encoded instruction data.
type wireInstruction struct {
	ProgramID string            `json:"programId"`
	Accounts  []wireAccountMeta `json:"accounts"`
	Data      string            `json:"data"`
}

func decodeInstruction(w *wireInstruction) (solana.Instruction, error) {
	if w == nil {
		return nil, nil
	}
	programID, err := solana.PublicKeyFromBase58(w.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("decoding program id %q: %w", w.ProgramID, err)
	}
	accounts := make(solana.AccountMetaSlice, 0, len(w.Accounts))
	for _, a := range w.Accounts {
		pk, err := solana.PublicKeyFromBase58(a.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("decoding account %q: %w", a.Pubkey, err)
		}
		accounts = append(accounts, &solana.AccountMeta{
			PublicKey:  pk,
			IsSigner:   a.IsSigner,
			IsWritable: a.IsWritable,
		})
	}
	data, err := base64.StdEncoding.DecodeString(w.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding instruction data: %w", err)
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

func decodeInstructions(ws []wireInstruction) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(ws))
	for i := range ws {
		ix, err := decodeInstruction(&ws[i])
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

func decodeLookupTables(addrs []string) ([]solana.PublicKey, error) {
	out := make([]solana.PublicKey, 0, len(addrs))
	for _, a := range addrs {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("decoding lookup table address %q: %w", a, err)
		}
		out = append(out, pk)
	}
	return out, nil
}
