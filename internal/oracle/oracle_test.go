package oracle

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLayout() Layout {
	return Layout{PriceOffset: 0, ConfidenceOffset: 8, ExponentOffset: 16, SlotOffset: 20}
}

func encodeFeed(t *testing.T, price int64, conf uint64, expo int32, slot uint64) []byte {
	t.Helper()
	buf := make([]byte, 28)
	binary.LittleEndian.PutUint64(buf[0:], uint64(price))
	binary.LittleEndian.PutUint64(buf[8:], conf)
	binary.LittleEndian.PutUint32(buf[16:], uint32(expo))
	binary.LittleEndian.PutUint64(buf[20:], slot)
	return buf
}

func TestReader_Decode_FreshPrice(t *testing.T) {
	r := New(nil, testLayout(), nil, zap.NewNop())
	mint := solana.NewWallet().PublicKey()

	data := encodeFeed(t, 25_000_000, 10_000, -6, 1000)
	p, err := r.decode(mint, data, 1010)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, p.Value, 1e-9)
	assert.InDelta(t, 0.01, p.Confidence, 1e-9)
	assert.False(t, p.Stale)
	assert.Equal(t, uint64(1000), p.FeedSlot)
}

func TestReader_Decode_StalePastThreshold(t *testing.T) {
	r := New(nil, testLayout(), nil, zap.NewNop())
	mint := solana.NewWallet().PublicKey()

	data := encodeFeed(t, 1, 0, 0, 1000)
	p, err := r.decode(mint, data, 1000+staleSlots+1)
	require.NoError(t, err)
	assert.True(t, p.Stale)
}

func TestReader_Decode_TooShort(t *testing.T) {
	r := New(nil, testLayout(), nil, zap.NewNop())
	_, err := r.decode(solana.NewWallet().PublicKey(), []byte{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestReader_Price_NoFeedConfigured(t *testing.T) {
	r := New(nil, testLayout(), map[solana.PublicKey]solana.PublicKey{}, zap.NewNop())
	_, ok, err := r.Price(nil, solana.NewWallet().PublicKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeviationReport_WithinThreshold(t *testing.T) {
	// dexPrice == oraclePrice -> zero deviation, no warning triggered.
	dexPrice := 2.0
	oraclePrice := 2.0
	deviationBps := int32((dexPrice - oraclePrice) / oraclePrice * 10_000)
	assert.Equal(t, int32(0), deviationBps)
	assert.False(t, abs32(deviationBps) > deviationThresholdBps)
}

func TestAbs32(t *testing.T) {
	assert.Equal(t, int32(5), abs32(-5))
	assert.Equal(t, int32(5), abs32(5))
	assert.Equal(t, int32(0), abs32(0))
}
