package alt

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTable(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	header := make([]byte, 56)
	data := append(header, a.Bytes()...)
	data = append(data, b.Bytes()...)

	key := solana.NewWallet().PublicKey()
	table, err := decodeTable(key, data)
	require.NoError(t, err)

	assert.Equal(t, key, table.Address)
	require.Len(t, table.Addresses, 2)
	assert.True(t, table.Addresses[0].Equals(a))
	assert.True(t, table.Addresses[1].Equals(b))
}

func TestDecodeTable_TooShort(t *testing.T) {
	_, err := decodeTable(solana.NewWallet().PublicKey(), make([]byte, 10))
	assert.Error(t, err)
}

func TestDeriveLookupTableAddress_Deterministic(t *testing.T) {
	authority := solana.NewWallet().PublicKey()

	addr1, bump1, err := deriveLookupTableAddress(authority, 12345)
	require.NoError(t, err)
	addr2, bump2, err := deriveLookupTableAddress(authority, 12345)
	require.NoError(t, err)

	assert.True(t, addr1.Equals(addr2))
	assert.Equal(t, bump1, bump2)
}
