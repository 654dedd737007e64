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
)

func TestRaydium_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"inputMint": "So11111111111111111111111111111111111111112",
				"outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
				"inputAmount": "1000000000",
				"outputAmount": "142000000",
				"priceImpactPct": "0.01",
				"routePlan": [{"poolId": "pool1"}]
			}
		}`))
	}))
	defer srv.Close()

	r := NewRaydium(zap.NewNop())
	r.baseURL = srv.URL

	quote, err := r.Quote(context.Background(), QuoteRequest{
		InputMint:  solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112"),
		OutputMint: solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		Amount:     1_000_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "raydium", quote.Source)
	assert.Equal(t, uint64(142_000_000), quote.OutAmountU64())
	assert.Len(t, quote.RoutePlan, 1)
}

func TestRaydium_NonOKStatusIsHTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	r := NewRaydium(zap.NewNop())
	r.baseURL = srv.URL

	_, err := r.Quote(context.Background(), QuoteRequest{
		InputMint:  solana.NewWallet().PublicKey(),
		OutputMint: solana.NewWallet().PublicKey(),
		Amount:     1,
	})
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
}
