package flashloan

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeForBorrow_RoundsUp(t *testing.T) {
	assert.Equal(t, uint64(1), FeeForBorrow(1, 5))
	assert.Equal(t, uint64(100), FeeForBorrow(200_000, 5))
	assert.Equal(t, uint64(0), FeeForBorrow(0, 5))
}

func TestDecodePoolState(t *testing.T) {
	admin := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()

	data := make([]byte, 8) // discriminator
	data = append(data, admin.Bytes()...)
	data = append(data, mint.Bytes()...)
	data = append(data, vault.Bytes()...)

	u64 := make([]byte, 8)
	binary.LittleEndian.PutUint64(u64, 1_000_000)
	data = append(data, u64...) // total_deposits
	data = append(data, u64...) // total_shares
	data = append(data, u64...) // total_fees_earned

	u16 := make([]byte, 2)
	binary.LittleEndian.PutUint16(u16, 5)
	data = append(data, u16...) // fee_bps
	data = append(data, 254)    // bump
	data = append(data, 253)    // vault_bump
	data = append(data, 1)      // is_active

	state, err := decodePoolState(data)
	require.NoError(t, err)

	assert.True(t, state.Admin.Equals(admin))
	assert.True(t, state.TokenMint.Equals(mint))
	assert.True(t, state.Vault.Equals(vault))
	assert.Equal(t, uint64(1_000_000), state.TotalDeposits)
	assert.Equal(t, uint16(5), state.FeeBps)
	assert.Equal(t, uint8(254), state.Bump)
	assert.True(t, state.IsActive)
}

func TestDecodePoolState_TooShort(t *testing.T) {
	_, err := decodePoolState(make([]byte, 10))
	assert.Error(t, err)
}
