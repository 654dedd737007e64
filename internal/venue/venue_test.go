package venue

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInstruction(t *testing.T) {
	program := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()

	w := wireInstruction{
		ProgramID: program.String(),
		Accounts: []wireAccountMeta{
			{Pubkey: account.String(), IsSigner: true, IsWritable: true},
		},
		Data: "aGVsbG8=", // "hello"
	}

	ix, err := decodeInstruction(&w)
	require.NoError(t, err)
	assert.True(t, ix.ProgramID().Equals(program))
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDecodeInstruction_Nil(t *testing.T) {
	ix, err := decodeInstruction(nil)
	require.NoError(t, err)
	assert.Nil(t, ix)
}

func TestDecodeLookupTables(t *testing.T) {
	pk := solana.NewWallet().PublicKey()
	tables, err := decodeLookupTables([]string{pk.String()})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.True(t, tables[0].Equals(pk))
}

func TestHTTPStatusError_TruncatesBody(t *testing.T) {
	longBody := make([]byte, 500)
	for i := range longBody {
		longBody[i] = 'x'
	}
	err := &HTTPStatusError{Source: "jupiter", Status: 429, Body: string(longBody)}
	assert.Contains(t, err.Error(), "jupiter 429")
	assert.LessOrEqual(t, len(err.Error()), 220)
}
