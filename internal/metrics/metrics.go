// Package metrics tracks the engine's process-lifetime counters: scan
// cycles, opportunities found, fills, and failures, exported both as
// prometheus collectors and as a periodic plain-text summary line.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counters is the BotMetrics counter set: every field is monotone except
// TotalProfit/TotalGasSpent, which may move in either direction as
// profit accounting nets out.
type Counters struct {
	ScanCycles              int64
	OpportunitiesFound      int64
	TriangularOpportunities int64
	SimulationFailures      int64
	ExecutionFailures       int64
	SuccessfulArbs          int64
	JitoSubmissions         int64
	NewPoolsDetected        int64
	BackrunSignals          int64
	TotalProfit             int64
	TotalGasSpent           int64
}

// Collector holds the live counters plus their prometheus-exported
// forms. All increments are lock-free (atomic); Snapshot takes a
// consistent-enough read for logging and is never used for control flow.
type Collector struct {
	startTime time.Time

	scanCycles              atomic.Int64
	opportunitiesFound      atomic.Int64
	triangularOpportunities atomic.Int64
	simulationFailures      atomic.Int64
	executionFailures       atomic.Int64
	successfulArbs          atomic.Int64
	jitoSubmissions         atomic.Int64
	newPoolsDetected        atomic.Int64
	backrunSignals          atomic.Int64
	totalProfit             atomic.Int64
	totalGasSpent           atomic.Int64

	registerOnce sync.Once
	scanCounter  prometheus.Counter
	oppCounter   *prometheus.CounterVec
	failCounter  *prometheus.CounterVec
	fillCounter  *prometheus.CounterVec
	profitGauge  prometheus.Gauge
	gasGauge     prometheus.Gauge
}

// NewCollector builds a Collector with its start time set to now and
// registers its prometheus collectors with the default registry.
func NewCollector() *Collector {
	c := &Collector{
		startTime: time.Now(),
		scanCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flashbot",
			Name:      "scan_cycles_total",
			Help:      "Total number of main-loop scan cycles completed.",
		}),
		oppCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashbot",
			Name:      "opportunities_total",
			Help:      "Total opportunities found, by kind.",
		}, []string{"kind"}),
		failCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashbot",
			Name:      "failures_total",
			Help:      "Total failures, by stage.",
		}, []string{"stage"}),
		fillCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashbot",
			Name:      "fills_total",
			Help:      "Total fills/signals recorded, by kind.",
		}, []string{"kind"}),
		profitGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flashbot",
			Name:      "total_profit",
			Help:      "Running total expected profit in flash-loan token base units.",
		}),
		gasGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flashbot",
			Name:      "total_gas_spent",
			Help:      "Running total gas spent in lamports.",
		}),
	}
	c.registerOnce.Do(func() {
		prometheus.MustRegister(c.scanCounter, c.oppCounter, c.failCounter, c.fillCounter, c.profitGauge, c.gasGauge)
	})
	return c
}

func (c *Collector) IncScanCycle() {
	c.scanCycles.Add(1)
	c.scanCounter.Inc()
}

func (c *Collector) IncOpportunityFound() {
	c.opportunitiesFound.Add(1)
	c.oppCounter.WithLabelValues("two_leg").Inc()
}

func (c *Collector) IncTriangularOpportunity() {
	c.triangularOpportunities.Add(1)
	c.oppCounter.WithLabelValues("triangular").Inc()
}

func (c *Collector) IncSimulationFailure() {
	c.simulationFailures.Add(1)
	c.failCounter.WithLabelValues("simulation").Inc()
}

func (c *Collector) IncExecutionFailure() {
	c.executionFailures.Add(1)
	c.failCounter.WithLabelValues("execution").Inc()
}

func (c *Collector) IncSuccessfulArb() {
	c.successfulArbs.Add(1)
}

func (c *Collector) IncJitoSubmission() {
	c.jitoSubmissions.Add(1)
	c.fillCounter.WithLabelValues("jito_submission").Inc()
}

func (c *Collector) IncNewPoolDetected() {
	c.newPoolsDetected.Add(1)
	c.fillCounter.WithLabelValues("new_pool").Inc()
}

func (c *Collector) IncBackrunSignal() {
	c.backrunSignals.Add(1)
	c.fillCounter.WithLabelValues("backrun_signal").Inc()
}

func (c *Collector) AddProfit(amount int64) {
	c.totalProfit.Add(amount)
	c.profitGauge.Set(float64(c.totalProfit.Load()))
}

func (c *Collector) AddGasSpent(lamports int64) {
	c.totalGasSpent.Add(lamports)
	c.gasGauge.Set(float64(c.totalGasSpent.Load()))
}

// Snapshot reads every counter independently; concurrent increments
// between fields may make it briefly inconsistent, which is fine for a
// log line and never used for a control decision.
func (c *Collector) Snapshot() Counters {
	return Counters{
		ScanCycles:              c.scanCycles.Load(),
		OpportunitiesFound:      c.opportunitiesFound.Load(),
		TriangularOpportunities: c.triangularOpportunities.Load(),
		SimulationFailures:      c.simulationFailures.Load(),
		ExecutionFailures:       c.executionFailures.Load(),
		SuccessfulArbs:          c.successfulArbs.Load(),
		JitoSubmissions:         c.jitoSubmissions.Load(),
		NewPoolsDetected:        c.newPoolsDetected.Load(),
		BackrunSignals:          c.backrunSignals.Load(),
		TotalProfit:             c.totalProfit.Load(),
		TotalGasSpent:           c.totalGasSpent.Load(),
	}
}

// Summary renders the periodic one-line status report.
func (c *Collector) Summary() string {
	s := c.Snapshot()
	uptime := time.Since(c.startTime).Minutes()
	hitRate := 0.0
	if s.ScanCycles > 0 {
		hitRate = float64(s.OpportunitiesFound) / float64(s.ScanCycles) * 100
	}
	return fmt.Sprintf(
		"uptime=%.1fm cycles=%d opps=%d tri=%d hit_rate=%.1f%% arbs=%d profit=%d "+
			"sim_fail=%d exec_fail=%d pools=%d backruns=%d jito=%d gas=%d",
		uptime, s.ScanCycles, s.OpportunitiesFound, s.TriangularOpportunities, hitRate,
		s.SuccessfulArbs, s.TotalProfit, s.SimulationFailures, s.ExecutionFailures,
		s.NewPoolsDetected, s.BackrunSignals, s.JitoSubmissions, s.TotalGasSpent,
	)
}
