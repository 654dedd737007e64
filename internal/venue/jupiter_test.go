package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/market"
)

func TestJupiter_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		_, _ = w.Write([]byte(`{
			"inputMint": "So11111111111111111111111111111111111111112",
			"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			"inAmount": "1000000000",
			"outAmount": "142000000",
			"priceImpactPct": "0.02",
			"routePlan": [{"swapInfo": {"ammKey": "amm1", "label": "Whirlpool"}}]
		}`))
	}))
	defer srv.Close()

	j := NewJupiter("secret", zap.NewNop())
	j.baseURL = srv.URL

	quote, err := j.Quote(context.Background(), QuoteRequest{
		InputMint:  solana.NewWallet().PublicKey(),
		OutputMint: solana.NewWallet().PublicKey(),
		Amount:     1_000_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "jupiter", quote.Source)
	assert.Equal(t, uint64(142_000_000), quote.OutAmountU64())
}

func TestJupiter_SwapInstructions(t *testing.T) {
	program := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()
	lookupTable := solana.NewWallet().PublicKey()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"computeBudgetInstructions": [],
			"setupInstructions": [],
			"swapInstruction": {
				"programId": "` + program.String() + `",
				"accounts": [{"pubkey": "` + account.String() + `", "isSigner": true, "isWritable": true}],
				"data": "aGVsbG8="
			},
			"addressLookupTableAddresses": ["` + lookupTable.String() + `"]
		}`))
	}))
	defer srv.Close()

	j := NewJupiter("", zap.NewNop())
	j.baseURL = srv.URL

	bundle, err := j.SwapInstructions(context.Background(), market.Quote{Raw: []byte(`{}`)}, solana.NewWallet().PublicKey(), true, true)
	require.NoError(t, err)
	require.NotNil(t, bundle.Swap)
	assert.True(t, bundle.Swap.ProgramID().Equals(program))
	require.Len(t, bundle.LookupTables, 1)
	assert.True(t, bundle.LookupTables[0].Equals(lookupTable))
}
