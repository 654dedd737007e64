package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A single Collector is shared across subtests: NewCollector registers
// its gauges/counters with the default prometheus registry, and a
// second registration under the same names would panic.
func TestCollector_CountersAndSummary(t *testing.T) {
	c := NewCollector()

	c.IncScanCycle()
	c.IncScanCycle()
	c.IncOpportunityFound()
	c.IncTriangularOpportunity()
	c.IncSimulationFailure()
	c.IncExecutionFailure()
	c.IncSuccessfulArb()
	c.IncJitoSubmission()
	c.IncNewPoolDetected()
	c.IncBackrunSignal()
	c.AddProfit(500)
	c.AddProfit(-100)
	c.AddGasSpent(2000)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.ScanCycles)
	assert.Equal(t, int64(1), snap.OpportunitiesFound)
	assert.Equal(t, int64(1), snap.TriangularOpportunities)
	assert.Equal(t, int64(1), snap.SimulationFailures)
	assert.Equal(t, int64(1), snap.ExecutionFailures)
	assert.Equal(t, int64(1), snap.SuccessfulArbs)
	assert.Equal(t, int64(1), snap.JitoSubmissions)
	assert.Equal(t, int64(1), snap.NewPoolsDetected)
	assert.Equal(t, int64(1), snap.BackrunSignals)
	assert.Equal(t, int64(400), snap.TotalProfit)
	assert.Equal(t, int64(2000), snap.TotalGasSpent)

	summary := c.Summary()
	assert.True(t, strings.Contains(summary, "cycles=2"))
	assert.True(t, strings.Contains(summary, "opps=1"))
	assert.True(t, strings.Contains(summary, "profit=400"))
	assert.True(t, strings.Contains(summary, "hit_rate=50.0%"))
}
