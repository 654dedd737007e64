package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	args := []string{
		"--rpc", "http://localhost:8899",
		"--wallet", "/tmp/id.json",
		"--pairs", "SOL/USDC,RAY/USDC",
		"--program-id", "2chVPk6DV21qWuyUA2eHAzATdFSHM7ykv1fVX7Gv6nor",
		"--token-mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"--min-profit-bps", "12",
	}

	cfg, err := Load("", args)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8899", cfg.RPC)
	assert.Equal(t, []string{"SOL/USDC", "RAY/USDC"}, cfg.Pairs)
	assert.EqualValues(t, 12, cfg.MinProfitBps)
	assert.EqualValues(t, DefaultBorrowAmount, cfg.BorrowAmount)
	assert.True(t, cfg.DryRun)
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	_, err := Load("", []string{"--rpc", "http://localhost:8899"})
	assert.Error(t, err)
}

func TestLoad_InvalidTipRegion(t *testing.T) {
	args := []string{
		"--rpc", "http://localhost:8899",
		"--wallet", "/tmp/id.json",
		"--pairs", "SOL/USDC",
		"--program-id", "2chVPk6DV21qWuyUA2eHAzATdFSHM7ykv1fVX7Gv6nor",
		"--token-mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"--tip-region", "mars",
	}
	_, err := Load("", args)
	assert.Error(t, err)
}
