package computebudget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInstructions_WithPriorityFee(t *testing.T) {
	ixs, err := BuildInstructions(Config{Units: 400_000, MicroLamports: 25_000})
	require.NoError(t, err)
	require.Len(t, ixs, 2)

	assert.True(t, ixs[0].ProgramID().Equals(ProgramID))

	limitData, err := ixs[0].Data()
	require.NoError(t, err)
	assert.Equal(t, instructionSetComputeUnitLimit, limitData[0])

	priceData, err := ixs[1].Data()
	require.NoError(t, err)
	assert.Equal(t, instructionSetComputeUnitPrice, priceData[0])
}

func TestBuildInstructions_ZeroPriorityFeeOmitsPriceInstruction(t *testing.T) {
	ixs, err := BuildInstructions(Config{Units: 200_000})
	require.NoError(t, err)
	require.Len(t, ixs, 1)

	data, err := ixs[0].Data()
	require.NoError(t, err)
	assert.Equal(t, instructionSetComputeUnitLimit, data[0])
}
