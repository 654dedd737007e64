package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckFreshness_WithinWindow(t *testing.T) {
	err := checkFreshness(10_000, 5_000, twoLegFreshnessMillis)
	assert.NoError(t, err)
}

func TestCheckFreshness_AtBoundaryIsNotStale(t *testing.T) {
	err := checkFreshness(twoLegFreshnessMillis, 0, twoLegFreshnessMillis)
	assert.NoError(t, err)
}

func TestCheckFreshness_JustPastBoundaryIsStale(t *testing.T) {
	err := checkFreshness(twoLegFreshnessMillis+1, 0, twoLegFreshnessMillis)
	if assert.Error(t, err) {
		var stale *ErrStaleOpportunity
		assert.ErrorAs(t, err, &stale)
		assert.Equal(t, int64(twoLegFreshnessMillis+1), stale.AgeMillis)
		assert.Equal(t, int64(twoLegFreshnessMillis), stale.LimitMillis)
	}
}

func TestCheckFreshness_TriangularWindowIsWider(t *testing.T) {
	assert.NoError(t, checkFreshness(twoLegFreshnessMillis+1, 0, triangularFreshnessMillis))
	assert.Error(t, checkFreshness(triangularFreshnessMillis+1, 0, triangularFreshnessMillis))
}

func TestFloorComputeUnits_RaisesBelowMin(t *testing.T) {
	fees := FeeParams{ComputeUnitLimit: 100_000, ComputeUnitPriceMicroLamports: 50}
	floored := floorComputeUnits(fees, minTriangularComputeUnits)
	assert.Equal(t, uint32(minTriangularComputeUnits), floored.ComputeUnitLimit)
	assert.Equal(t, uint64(50), floored.ComputeUnitPriceMicroLamports)
}

func TestFloorComputeUnits_LeavesAtMinUntouched(t *testing.T) {
	fees := FeeParams{ComputeUnitLimit: minTriangularComputeUnits}
	floored := floorComputeUnits(fees, minTriangularComputeUnits)
	assert.Equal(t, uint32(minTriangularComputeUnits), floored.ComputeUnitLimit)
}

func TestFloorComputeUnits_LeavesAboveMinUntouched(t *testing.T) {
	fees := FeeParams{ComputeUnitLimit: 1_000_000}
	floored := floorComputeUnits(fees, minTriangularComputeUnits)
	assert.Equal(t, uint32(1_000_000), floored.ComputeUnitLimit)
}

func TestErrStaleOpportunity_Error(t *testing.T) {
	err := &ErrStaleOpportunity{AgeMillis: 15_000, LimitMillis: 10_000}
	assert.Contains(t, err.Error(), "15000")
	assert.Contains(t, err.Error(), "10000")
}

func TestErrTransactionTooLarge_Error(t *testing.T) {
	err := &ErrTransactionTooLarge{Bytes: 1300}
	assert.Contains(t, err.Error(), "1300")
	assert.Contains(t, err.Error(), "1232")
}
