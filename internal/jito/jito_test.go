package jito

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRandomTipAccount_IsFromFixedList(t *testing.T) {
	for i := 0; i < 50; i++ {
		acc := RandomTipAccount()
		found := false
		for _, candidate := range TipAccounts {
			if candidate.Equals(acc) {
				found = true
				break
			}
		}
		assert.True(t, found)
	}
}

func TestNew_UnknownRegionFallsBackToDefault(t *testing.T) {
	c := New("mars", zap.NewNop())
	assert.Equal(t, Endpoints["default"], c.endpoint)
}

func TestGetBundleStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"result": map[string]interface{}{
				"value": []map[string]interface{}{
					{"bundle_id": "abc", "confirmation_status": "confirmed"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New("default", zap.NewNop())
	c.endpoint = srv.URL

	statuses, err := c.GetBundleStatuses(context.Background(), []string{"abc", "def"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, BundleStatusLanded, statuses[0])
	assert.Equal(t, BundleStatusInvalid, statuses[1])
}
