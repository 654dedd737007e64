// Package engine is the orchestrator: it runs the main scan loop over the
// hot/cold pair rotation and the triangular route catalog, drives pool
// discovery and backrun listeners, and carries every admissible
// opportunity through compose -> simulate -> submit -> confirm. A
// consecutive-failure counter trips a kill switch that halts the loop
// rather than let a bad run burn gas indefinitely.
package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/backrun"
	"github.com/solarb/flashbot/internal/composer"
	"github.com/solarb/flashbot/internal/config"
	"github.com/solarb/flashbot/internal/discovery"
	"github.com/solarb/flashbot/internal/events"
	"github.com/solarb/flashbot/internal/feestrategy"
	"github.com/solarb/flashbot/internal/flashloan"
	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/jito"
	"github.com/solarb/flashbot/internal/market"
	"github.com/solarb/flashbot/internal/metrics"
	"github.com/solarb/flashbot/internal/oracle"
	"github.com/solarb/flashbot/internal/pairs"
	"github.com/solarb/flashbot/internal/scanner"
	solclient "github.com/solarb/flashbot/internal/solana"
	"github.com/solarb/flashbot/internal/solana/computebudget"
	"github.com/solarb/flashbot/internal/wallet"
)

const (
	// minGasFloorLamports is the lowest signer balance the engine will
	// start with; below this a single failed transaction could leave it
	// unable to pay the network fee for its own repay instruction.
	minGasFloorLamports = 50_000_000 // 0.05 SOL

	coldBatchSize       = 5
	triangularBatchSize = 10
	fullScanEveryNCycles = 3

	confirmPollInterval = 2 * time.Second
	confirmMaxPolls     = 30

	standardSubmitRetries = 3
	standardSubmitBackoff = 250 * time.Millisecond

	ataComputeUnitLimit = 50_000

	// fallbackSolPriceInQuoteUnits assumes a ~$150/SOL price expressed in
	// 6-decimal stablecoin base units, used only when no oracle feed is
	// configured for the native mint.
	fallbackSolPriceInQuoteUnits = 150_000_000
)

// DiscoverySource is satisfied by both discovery.LogListener and
// discovery.Poller: either can drive the same new-pool callback.
type DiscoverySource interface {
	Run(ctx context.Context, onEvent func(discovery.NewPoolEvent)) error
}

// Dependencies bundles every collaborator the orchestrator wires together.
// OracleReader, FeeStrategy, JitoClient, DiscoverySources and
// BackrunListener are optional: a nil value disables the feature it backs
// (static fees instead of dynamic, no tip path, no pool discovery, no
// backrun probing) without otherwise changing the main loop's shape.
type Dependencies struct {
	Config       *config.Config
	Client       *solclient.Client
	Wallet       *wallet.Wallet
	FlashLoan    *flashloan.Client
	Gateway      *gateway.Gateway
	JitoClient   *jito.Client
	Composer     *composer.Composer
	TwoLeg       *scanner.TwoLegScanner
	Triangular   *scanner.TriangularScanner
	StaticPairs  *pairs.StaticCatalog
	TriRoutes    *pairs.TriangularCatalog
	DynamicPairs *pairs.DynamicSet
	Registry     *pairs.Registry
	OracleReader *oracle.Reader
	FeeStrategy  *feestrategy.Strategy
	Metrics      *metrics.Collector
	Bus          *events.Bus
	NativeMint   solana.PublicKey

	DiscoverySources []DiscoverySource
	BackrunListener  *backrun.Listener

	Logger *zap.Logger
}

// Engine is the main-loop orchestrator: one instance owns the process's
// single signer and drives it through every scan cycle until its context
// is canceled or its kill switch trips.
type Engine struct {
	cfg          *config.Config
	client       *solclient.Client
	wallet       *wallet.Wallet
	flashLoan    *flashloan.Client
	gw           *gateway.Gateway
	jitoClient   *jito.Client
	composer     *composer.Composer
	twoLeg       *scanner.TwoLegScanner
	triangular   *scanner.TriangularScanner
	staticPairs  *pairs.StaticCatalog
	triRoutes    *pairs.TriangularCatalog
	dynamicPairs *pairs.DynamicSet
	registry     *pairs.Registry
	oracleReader *oracle.Reader
	feeStrategy  *feestrategy.Strategy
	metrics      *metrics.Collector
	bus          *events.Bus
	nativeMint   solana.PublicKey

	discoverySources []DiscoverySource
	backrunListener  *backrun.Listener

	logger *zap.Logger

	cycle               int
	consecutiveFailures int
	killSwitchTripped   bool
}

// New assembles an Engine from its wired dependencies.
func New(deps Dependencies) *Engine {
	return &Engine{
		cfg:              deps.Config,
		client:           deps.Client,
		wallet:           deps.Wallet,
		flashLoan:        deps.FlashLoan,
		gw:               deps.Gateway,
		jitoClient:       deps.JitoClient,
		composer:         deps.Composer,
		twoLeg:           deps.TwoLeg,
		triangular:       deps.Triangular,
		staticPairs:      deps.StaticPairs,
		triRoutes:        deps.TriRoutes,
		dynamicPairs:     deps.DynamicPairs,
		registry:         deps.Registry,
		oracleReader:     deps.OracleReader,
		feeStrategy:      deps.FeeStrategy,
		metrics:          deps.Metrics,
		bus:              deps.Bus,
		nativeMint:       deps.NativeMint,
		discoverySources: deps.DiscoverySources,
		backrunListener:  deps.BackrunListener,
		logger:           deps.Logger.Named("engine"),
	}
}

// Preflight runs the engine's startup checks: the signer's gas floor, the
// flash-loan pool's active state, and per-mint associated-token-account
// provisioning. A low balance aborts outside dry-run and is only logged in
// dry-run; every other check is best-effort and only logged, matching the
// no-single-mint-failure-aborts-startup policy.
func (e *Engine) Preflight(ctx context.Context) error {
	balance, err := e.client.GetBalance(ctx, e.wallet.PublicKey)
	if err != nil {
		return fmt.Errorf("preflight: fetching signer balance: %w", err)
	}
	if balance < minGasFloorLamports {
		if !e.cfg.DryRun {
			return fmt.Errorf("preflight: signer balance %d lamports below gas floor %d", balance, minGasFloorLamports)
		}
		e.logger.Warn("preflight: signer balance below gas floor, continuing in dry-run", zap.Uint64("lamports", balance))
	} else {
		e.logger.Info("preflight: signer balance OK", zap.Uint64("lamports", balance))
	}

	if poolState, err := e.flashLoan.GetPoolState(ctx); err != nil {
		e.logger.Warn("preflight: could not fetch flash-loan pool state, continuing anyway", zap.Error(err))
	} else if !poolState.IsActive {
		e.logger.Warn("preflight: flash-loan pool is not active")
	} else {
		e.logger.Info("preflight: flash-loan pool active", zap.Uint16("fee_bps", poolState.FeeBps))
	}

	for _, mint := range e.preflightMints() {
		if err := e.ensureATA(ctx, mint); err != nil {
			e.logger.Warn("preflight: failed to ensure associated token account, skipping mint",
				zap.String("mint", mint.String()), zap.Error(err))
		}
	}
	return nil
}

// preflightMints collects every distinct mint the engine might need to
// hold a balance of: the flash-loan token, every static pair's two legs,
// and every triangular route's three legs.
func (e *Engine) preflightMints() []solana.PublicKey {
	seen := make(map[solana.PublicKey]struct{})
	var mints []solana.PublicKey
	add := func(mint solana.PublicKey) {
		if mint.IsZero() {
			return
		}
		if _, ok := seen[mint]; ok {
			return
		}
		seen[mint] = struct{}{}
		mints = append(mints, mint)
	}

	if e.registry != nil && e.cfg != nil && e.cfg.TokenMint != "" {
		if borrow, err := e.registry.Resolve(e.cfg.TokenMint); err == nil {
			add(borrow.Address)
		}
	}
	for _, p := range e.staticPairs.Hot() {
		add(p.Pair.Target.Address)
		add(p.Pair.Quote.Address)
	}
	for _, p := range e.staticPairs.NextColdBatch(math.MaxInt) {
		add(p.Pair.Target.Address)
		add(p.Pair.Quote.Address)
	}
	for _, r := range e.triRoutes.NextBatch(e.triRoutes.Len()) {
		add(r.TokenA.Address)
		add(r.TokenB.Address)
		add(r.TokenC.Address)
	}
	return mints
}

// ensureATA detects mint's owning token program and creates the signer's
// associated token account for it if one doesn't already exist.
func (e *Engine) ensureATA(ctx context.Context, mint solana.PublicKey) error {
	program, err := e.detectTokenProgram(ctx, mint)
	if err != nil {
		return fmt.Errorf("detecting token program: %w", err)
	}

	ata, err := e.wallet.GetATAForProgram(mint, program)
	if err != nil {
		return fmt.Errorf("deriving associated token account: %w", err)
	}

	if info, err := e.client.GetAccountInfo(ctx, ata); err == nil && info != nil && info.Value != nil {
		return nil
	}

	ix := e.wallet.CreateAssociatedTokenAccountIdempotentInstructionForProgram(e.wallet.PublicKey, e.wallet.PublicKey, mint, program)
	builder := solclient.NewBuilder(computebudget.Config{
		Units:         ataComputeUnitLimit,
		MicroLamports: e.cfg.PriorityFeeMicro,
	}).AddInstruction(ix).AddSigner(e.wallet.PrivateKey)

	tx, _, err := builder.Build(ctx, e.client)
	if err != nil {
		return fmt.Errorf("building create-ATA transaction: %w", err)
	}
	sig, err := e.client.SendTransaction(ctx, tx)
	if err != nil {
		return fmt.Errorf("submitting create-ATA transaction: %w", err)
	}
	e.logger.Info("created associated token account",
		zap.String("mint", mint.String()), zap.String("ata", ata.String()), zap.String("signature", sig.String()))
	return nil
}

func (e *Engine) detectTokenProgram(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, error) {
	info, err := e.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if info == nil || info.Value == nil {
		return solana.PublicKey{}, fmt.Errorf("mint account not found: %s", mint)
	}
	return info.Value.Owner, nil
}

// Run drives the main scan loop until ctx is canceled or the kill switch
// trips. Pool discovery and backrun listeners, if configured, are started
// as background goroutines alongside it.
func (e *Engine) Run(ctx context.Context) error {
	for _, src := range e.discoverySources {
		go e.runDiscoverySource(ctx, src)
	}
	if e.backrunListener != nil {
		go e.runBackrunListener(ctx)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.killSwitchTripped {
			return fmt.Errorf("kill switch tripped after %d consecutive failures", e.consecutiveFailures)
		}

		cycleStart := time.Now()
		e.cycle++
		e.metrics.IncScanCycle()

		e.runCycle(ctx)

		if e.killSwitchTripped {
			return fmt.Errorf("kill switch tripped after %d consecutive failures", e.consecutiveFailures)
		}

		elapsed := time.Since(cycleStart)
		sleepFor := time.Duration(e.cfg.PollIntervalMs)*time.Millisecond - elapsed
		if sleepFor <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleepFor):
		}
	}
}

// runCycle scans the hot set every cycle, the cold rotation and dynamic
// set every fullScanEveryNCycles-th cycle, and one triangular batch every
// cycle.
func (e *Engine) runCycle(ctx context.Context) {
	for _, opp := range e.twoLeg.ScanBatch(ctx, e.staticPairs.Hot()) {
		e.handleTwoLeg(ctx, opp)
		if e.killSwitchTripped {
			return
		}
	}

	if e.cycle%fullScanEveryNCycles == 0 {
		for _, opp := range e.twoLeg.ScanBatch(ctx, e.staticPairs.NextColdBatch(coldBatchSize)) {
			e.handleTwoLeg(ctx, opp)
			if e.killSwitchTripped {
				return
			}
		}

		for _, dp := range e.dynamicPairs.Snapshot() {
			opp, err := e.twoLeg.ScanPair(ctx, dp)
			e.dynamicPairs.RecordResult(dp.Pair, err == nil)
			if opp != nil {
				e.handleTwoLeg(ctx, opp)
				if e.killSwitchTripped {
					return
				}
			}
		}
	}

	triOpp, err := e.triangular.ScanBatch(ctx, e.triRoutes.NextBatch(triangularBatchSize))
	if err == nil && triOpp != nil {
		e.handleTriangular(ctx, triOpp)
	}
}

func (e *Engine) handleTwoLeg(ctx context.Context, opp *market.ArbitrageOpportunity) {
	e.metrics.IncOpportunityFound()
	e.bus.Publish(events.OpportunityFoundEvent{
		BaseEvent:    events.BaseEvent{EventType: events.OpportunityFound, EventTime: time.Now()},
		Pair:         opp.Pair.String(),
		Kind:         "two_leg",
		ProfitBps:    opp.ProfitBps,
		BorrowAmount: opp.BorrowAmount,
	})
	if e.cfg.DryRun {
		e.logger.Info("dry run: skipping execution", zap.String("pair", opp.Pair.String()), zap.Int32("profit_bps", opp.ProfitBps))
		return
	}

	fees := e.computeFees(ctx, int64(opp.Leg2Out)-int64(opp.BorrowAmount), int64(opp.FlashFee), opp.TokenA)
	composed, err := e.composer.ComposeTwoLeg(ctx, *opp, fees, composer.NowMillis())
	if err != nil {
		e.rejectOpportunity(opp.Pair.String(), "two_leg", "composition", err)
		return
	}
	e.execute(ctx, composed, "two_leg", opp.Pair.String(), opp.ExpectedProfit)
}

func (e *Engine) handleTriangular(ctx context.Context, opp *market.TriangularOpportunity) {
	e.metrics.IncTriangularOpportunity()
	e.bus.Publish(events.OpportunityFoundEvent{
		BaseEvent:    events.BaseEvent{EventType: events.OpportunityFound, EventTime: time.Now()},
		Pair:         opp.Route.Name,
		Kind:         "triangular",
		ProfitBps:    opp.ProfitBps,
		BorrowAmount: opp.Route.BorrowAmount,
	})
	if e.cfg.DryRun {
		e.logger.Info("dry run: skipping execution", zap.String("route", opp.Route.Name), zap.Int32("profit_bps", opp.ProfitBps))
		return
	}

	fees := e.computeFees(ctx, int64(opp.Leg3Out)-int64(opp.Route.BorrowAmount), int64(opp.FlashFee), opp.Route.TokenA)
	composed, err := e.composer.ComposeTriangular(ctx, *opp, fees, composer.NowMillis())
	if err != nil {
		e.rejectOpportunity(opp.Route.Name, "triangular", "composition", err)
		return
	}
	e.execute(ctx, composed, "triangular", opp.Route.Name, opp.ExpectedProfit)
}

// execute runs the simulate -> submit -> confirm sub-pipeline for a
// composed transaction, updating metrics and the kill-switch counter
// according to the outcome.
func (e *Engine) execute(ctx context.Context, composed *composer.Composed, kind, label string, expectedProfit int64) {
	sim, err := e.client.SimulateTransaction(ctx, composed.Transaction)
	if err != nil {
		e.metrics.IncSimulationFailure()
		e.rejectOpportunity(label, kind, "simulation", err)
		e.onExecutionFailure()
		return
	}
	if sim != nil && sim.Err != nil {
		e.metrics.IncSimulationFailure()
		e.rejectOpportunity(label, kind, "simulation", fmt.Errorf("simulation returned error: %v", sim.Err))
		e.onExecutionFailure()
		return
	}

	var sig solana.Signature
	if e.cfg.Tip && e.jitoClient != nil {
		sig, err = e.jitoClient.SendTransaction(ctx, composed.Transaction)
		if err == nil {
			e.metrics.IncJitoSubmission()
		}
	} else {
		sig, err = e.sendWithRetry(ctx, composed.Transaction)
	}
	if err != nil {
		e.metrics.IncExecutionFailure()
		e.rejectOpportunity(label, kind, "submission", err)
		e.onExecutionFailure()
		return
	}

	if err := e.confirm(ctx, sig, composed.LastValidBlockHeight); err != nil {
		e.metrics.IncExecutionFailure()
		e.rejectOpportunity(label, kind, "confirmation", err)
		e.onExecutionFailure()
		return
	}

	e.metrics.IncSuccessfulArb()
	e.metrics.AddProfit(expectedProfit)
	e.recordGasSpent(ctx, sig)
	e.bus.Publish(events.OpportunityExecutedEvent{
		BaseEvent:      events.BaseEvent{EventType: events.OpportunityExecuted, EventTime: time.Now()},
		Pair:           label,
		Kind:           kind,
		Signature:      sig.String(),
		ExpectedProfit: expectedProfit,
	})
	e.logger.Info("opportunity executed", zap.String("kind", kind), zap.String("label", label), zap.String("signature", sig.String()))
	e.consecutiveFailures = 0
}

// sendWithRetry submits via the standard RPC path with skip_preflight set
// (execute already simulated the transaction), retrying a small number of times on a
// transient submission error.
func (e *Engine) sendWithRetry(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var lastErr error
	for attempt := 0; attempt < standardSubmitRetries; attempt++ {
		sig, err := e.client.SendTransaction(ctx, tx)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return solana.Signature{}, ctx.Err()
		case <-time.After(standardSubmitBackoff * time.Duration(attempt+1)):
		}
	}
	return solana.Signature{}, fmt.Errorf("submission failed after %d attempts: %w", standardSubmitRetries, lastErr)
}

// confirm polls the submitted signature's status until it lands, its
// transaction-level error is reported, the blockhash expires past
// lastValidBlockHeight, or confirmMaxPolls is exhausted.
func (e *Engine) confirm(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) error {
	for poll := 0; poll < confirmMaxPolls; poll++ {
		statuses, err := e.client.GetSignatureStatuses(ctx, []solana.Signature{sig})
		if err == nil && len(statuses) > 0 && statuses[0] != nil {
			status := statuses[0]
			if status.Err != nil {
				return fmt.Errorf("transaction failed on-chain: %v", status.Err)
			}
			if status.ConfirmationStatus == solanarpc.ConfirmationStatusConfirmed || status.ConfirmationStatus == solanarpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		if height, err := e.client.GetBlockHeight(ctx); err == nil && height > lastValidBlockHeight {
			return fmt.Errorf("transaction expired: block height %d passed last valid height %d", height, lastValidBlockHeight)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(confirmPollInterval):
		}
	}
	return fmt.Errorf("confirmation timed out after %d polls", confirmMaxPolls)
}

// recordGasSpent reads back the confirmed transaction's exact network fee
// and adds it to the running gas total; a failure here never affects the
// already-recorded successful arb, so it is only logged.
func (e *Engine) recordGasSpent(ctx context.Context, sig solana.Signature) {
	tx, err := e.client.GetParsedTransaction(ctx, sig)
	if err != nil || tx == nil || tx.Meta == nil {
		e.logger.Debug("could not read back transaction fee for gas accounting", zap.String("signature", sig.String()), zap.Error(err))
		return
	}
	e.metrics.AddGasSpent(int64(tx.Meta.Fee))
}

func (e *Engine) rejectOpportunity(label, kind, stage string, err error) {
	e.bus.Publish(events.OpportunityRejectedEvent{
		BaseEvent: events.BaseEvent{EventType: events.OpportunityRejected, EventTime: time.Now()},
		Pair:      label,
		Kind:      kind,
		Stage:     stage,
		Reason:    err.Error(),
	})
	e.logger.Debug("opportunity rejected", zap.String("kind", kind), zap.String("label", label), zap.String("stage", stage), zap.Error(err))
}

// onExecutionFailure increments the consecutive-failure counter and trips
// the kill switch once it reaches the configured limit.
func (e *Engine) onExecutionFailure() {
	e.consecutiveFailures++
	if e.consecutiveFailures >= e.cfg.MaxConsecutiveFailures {
		e.killSwitchTripped = true
		e.bus.Publish(events.KillSwitchTrippedEvent{
			BaseEvent:           events.BaseEvent{EventType: events.KillSwitchTripped, EventTime: time.Now()},
			ConsecutiveFailures: e.consecutiveFailures,
		})
		e.logger.Error("kill switch tripped", zap.Int("consecutive_failures", e.consecutiveFailures))
	}
}

// computeFees resolves the compute-unit price and tip for one opportunity,
// either from the dynamic fee strategy (when configured) or from the
// engine's fixed configuration.
func (e *Engine) computeFees(ctx context.Context, grossProfit, flashFee int64, borrowMint market.Mint) composer.FeeParams {
	if e.feeStrategy == nil {
		return composer.FeeParams{
			ComputeUnitLimit:              e.cfg.ComputeUnitLimit,
			ComputeUnitPriceMicroLamports: e.cfg.PriorityFeeMicro,
			TipLamports:                   e.cfg.TipLamports,
		}
	}

	solPrice := e.estimateSolPriceInQuoteUnits(ctx, borrowMint)
	fp := e.feeStrategy.ComputeFees(grossProfit, flashFee, solPrice)
	return composer.FeeParams{
		ComputeUnitLimit:              e.cfg.ComputeUnitLimit,
		ComputeUnitPriceMicroLamports: fp.ComputeUnitPriceMicro,
		TipLamports:                   fp.TipLamports,
	}
}

// estimateSolPriceInQuoteUnits prices one SOL in borrowMint's base units,
// assuming borrowMint is a USD-pegged stablecoin when no direct feed for
// it is configured. Falls back to a static estimate with no oracle at all.
func (e *Engine) estimateSolPriceInQuoteUnits(ctx context.Context, borrowMint market.Mint) int64 {
	if e.oracleReader == nil {
		return fallbackSolPriceInQuoteUnits
	}
	nativePrice, ok, err := e.oracleReader.Price(ctx, e.nativeMint)
	if err != nil || !ok || nativePrice.Value <= 0 {
		return fallbackSolPriceInQuoteUnits
	}
	decimals := borrowMint.Decimals
	if decimals == 0 {
		decimals = market.DefaultDecimals
	}
	return int64(nativePrice.Value * math.Pow10(int(decimals)))
}

func (e *Engine) runDiscoverySource(ctx context.Context, src DiscoverySource) {
	err := src.Run(ctx, e.onNewPool)
	if err != nil && ctx.Err() == nil {
		e.logger.Warn("discovery source stopped", zap.Error(err))
	}
}

// onNewPool filters a freshly discovered pool through discovery.Classify,
// promotes a surviving pool's mint pair into the dynamic set (designating
// whichever mint the registry already knows as a quote currency as the
// pair's quote side), then runs Classify's snipe probes against it and
// executes the first that clears the profit threshold.
func (e *Engine) onNewPool(ev discovery.NewPoolEvent) {
	_, probes, ok := discovery.Classify(ev, e.registry)
	if !ok {
		return
	}
	quote, target := ev.Mints[0], ev.Mints[1]
	if e.registry.IsKnownQuote(target) && !e.registry.IsKnownQuote(quote) {
		quote, target = target, quote
	}

	pair := market.Pair{
		Target: market.Mint{Address: target, Decimals: market.DefaultDecimals},
		Quote:  market.Mint{Address: quote, Decimals: market.DefaultDecimals},
	}
	if e.dynamicPairs.Promote(pair, e.cfg.BorrowAmount) {
		e.metrics.IncNewPoolDetected()
		e.bus.Publish(events.NewPoolDetectedEvent{
			BaseEvent: events.BaseEvent{EventType: events.NewPoolDetected, EventTime: time.Now()},
			Pair:      pair.String(),
			Program:   ev.Program.String(),
		})
		e.logger.Info("promoted newly discovered pool to dynamic set", zap.String("pair", pair.String()), zap.String("source", ev.Source))

		ctx := context.Background()
		for _, probe := range probes {
			opp, err := e.twoLeg.ScanPair(ctx, pairs.StaticPair{Pair: pair, Borrow: probe.Borrow})
			if err != nil || opp == nil {
				continue
			}
			e.handleTwoLeg(ctx, opp)
			return
		}
	}
}

func (e *Engine) runBackrunListener(ctx context.Context) {
	err := e.backrunListener.Run(ctx, e.onBackrunSignal)
	if err != nil && ctx.Err() == nil {
		e.logger.Warn("backrun listener stopped", zap.Error(err))
	}
}

// onBackrunSignal probes a qualifying large swap's counter-pair at both
// configured probe sizes and executes the first size that clears the
// profit threshold.
func (e *Engine) onBackrunSignal(sig backrun.BackrunSignal) {
	ctx := context.Background()
	target, err := e.registry.Resolve(sig.TokenOut.String())
	if err != nil {
		return
	}
	quote, err := e.registry.Resolve(sig.TokenIn.String())
	if err != nil {
		return
	}

	e.metrics.IncBackrunSignal()
	e.bus.Publish(events.BackrunDetectedEvent{
		BaseEvent: events.BaseEvent{EventType: events.BackrunDetected, EventTime: time.Now()},
		Signature: sig.Signature,
		TokenIn:   sig.TokenIn.String(),
		TokenOut:  sig.TokenOut.String(),
	})

	for _, probe := range sig.Probes {
		opp, err := e.twoLeg.ScanPair(ctx, pairs.StaticPair{
			Pair:   market.Pair{Target: target, Quote: quote},
			Borrow: probe,
		})
		if err != nil || opp == nil {
			continue
		}
		e.handleTwoLeg(ctx, opp)
		return
	}
}
