// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/alt"
	"github.com/solarb/flashbot/internal/backrun"
	"github.com/solarb/flashbot/internal/bot"
	"github.com/solarb/flashbot/internal/composer"
	"github.com/solarb/flashbot/internal/config"
	"github.com/solarb/flashbot/internal/discovery"
	"github.com/solarb/flashbot/internal/engine"
	"github.com/solarb/flashbot/internal/events"
	"github.com/solarb/flashbot/internal/feestrategy"
	"github.com/solarb/flashbot/internal/flashloan"
	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/jito"
	"github.com/solarb/flashbot/internal/logger"
	"github.com/solarb/flashbot/internal/metrics"
	"github.com/solarb/flashbot/internal/oracle"
	"github.com/solarb/flashbot/internal/pairs"
	"github.com/solarb/flashbot/internal/profit"
	"github.com/solarb/flashbot/internal/scanner"
	solclient "github.com/solarb/flashbot/internal/solana"
	"github.com/solarb/flashbot/internal/venue"
	"github.com/solarb/flashbot/internal/wallet"
)

func main() {
	cfg, err := config.Load(os.Getenv("ARB_CONFIG"), os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logger.New(cfg.Verbose, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("bot exited with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdown := bot.NewShutdownHandler(logger, 0)

	signer, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.Wallet)
	if err != nil {
		return fmt.Errorf("loading signer key-pair: %w", err)
	}
	w := &wallet.Wallet{
		PrivateKey: signer,
		PublicKey:  signer.PublicKey(),
		ATACache:   make(map[string]solana.PublicKey),
	}
	logger.Info("signer loaded", zap.String("pubkey", w.PublicKey.String()))

	client, err := solclient.NewClient([]string{cfg.RPC}, logger)
	if err != nil {
		return fmt.Errorf("connecting to RPC endpoints: %w", err)
	}
	shutdown.AddFunc("solana-client", func() error { client.Close(); return nil })

	registry := pairs.NewRegistry()
	nativeMint, err := registry.Resolve("SOL")
	if err != nil {
		return fmt.Errorf("resolving native mint: %w", err)
	}
	borrowMint, err := registry.Resolve(cfg.TokenMint)
	if err != nil {
		return fmt.Errorf("resolving flash-loan token mint %q: %w", cfg.TokenMint, err)
	}
	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		return fmt.Errorf("parsing flash-loan program id: %w", err)
	}

	flashLoan, err := flashloan.New(client, programID, borrowMint.Address, logger)
	if err != nil {
		return fmt.Errorf("initializing flash-loan client: %w", err)
	}

	bucket := gateway.NewBucket(10, 5)
	lite := venue.NewRaydium(logger)
	primary := venue.NewJupiter(cfg.JupiterAPIKey, logger)
	gw := gateway.New(lite, primary, client, bucket, logger)

	var jitoClient *jito.Client
	if cfg.Tip {
		jitoClient = jito.New(cfg.TipRegion, logger)
	}

	comp := composer.New(gw, flashLoan, w, client, jitoClient, nativeMint.Address, logger)

	poolFeeBps := flashLoanFeeBps(ctx, flashLoan, logger)
	gasParams := profit.GasParams{
		PriorityFeeMicro: cfg.PriorityFeeMicro,
		ComputeUnitLimit: uint64(cfg.ComputeUnitLimit),
		TipLamports:      cfg.TipLamports,
		UseTip:           cfg.Tip,
	}
	twoLeg := scanner.NewTwoLegScanner(gw, poolFeeBps, cfg.MinProfitBps, cfg.SlippageBps, gasParams, nativeMint, logger)
	triangular := scanner.NewTriangularScanner(gw, poolFeeBps, cfg.MinProfitBps, cfg.SlippageBps, gasParams, nativeMint, logger)

	staticCatalog, err := loadStaticCatalog(cfg, registry)
	if err != nil {
		return fmt.Errorf("loading static pair catalog: %w", err)
	}
	triCatalog, err := loadTriangularCatalog(cfg, registry)
	if err != nil {
		return fmt.Errorf("loading triangular route catalog: %w", err)
	}
	dynamicPairs := pairs.NewDynamicSet()

	var feeStrategy *feestrategy.Strategy
	if cfg.DynamicFees {
		feeStrategy = feestrategy.New(logger)
	}

	oracleReader, err := buildOracleReader(cfg, registry, client, logger)
	if err != nil {
		return fmt.Errorf("initializing oracle reader: %w", err)
	}

	mCollector := metrics.NewCollector()
	bus := events.NewBus(logger, 256)
	shutdown.AddFunc("event-bus", func() error { return bus.Shutdown(context.Background()) })

	venuePrograms, err := parsePublicKeys(cfg.VenuePrograms)
	if err != nil {
		return fmt.Errorf("parsing venue_programs: %w", err)
	}

	var discoverySources []engine.DiscoverySource
	if len(venuePrograms) > 0 && cfg.WS != "" {
		discoverySources = append(discoverySources, discovery.NewLogListener(client, cfg.WS, venuePrograms, logger))
	}
	if cfg.ListingURL != "" {
		usdc, err := registry.Resolve("USDC")
		if err != nil {
			return fmt.Errorf("resolving USDC for the discovery poller: %w", err)
		}
		discoverySources = append(discoverySources, discovery.NewPoller(cfg.ListingURL, "solana", usdc.Address, gw, logger))
	}

	var backrunListener *backrun.Listener
	if len(venuePrograms) > 0 && cfg.WS != "" {
		usdc, err := registry.Resolve("USDC")
		if err != nil {
			return fmt.Errorf("resolving USDC for the backrun listener: %w", err)
		}
		backrunListener = backrun.NewListener(client, cfg.WS, venuePrograms, usdc.Address, nativeMint.Address, logger)
	}

	if err := ensureLookupTable(ctx, client, w, flashLoan, jitoClient, logger); err != nil {
		logger.Warn("address lookup table setup failed, continuing without it", zap.Error(err))
	}

	eng := engine.New(engine.Dependencies{
		Config:           cfg,
		Client:           client,
		Wallet:           w,
		FlashLoan:        flashLoan,
		Gateway:          gw,
		JitoClient:       jitoClient,
		Composer:         comp,
		TwoLeg:           twoLeg,
		Triangular:       triangular,
		StaticPairs:      staticCatalog,
		TriRoutes:        triCatalog,
		DynamicPairs:     dynamicPairs,
		Registry:         registry,
		OracleReader:     oracleReader,
		FeeStrategy:      feeStrategy,
		Metrics:          mCollector,
		Bus:              bus,
		NativeMint:       nativeMint.Address,
		DiscoverySources: discoverySources,
		BackrunListener:  backrunListener,
		Logger:           logger,
	})

	go shutdown.HandleShutdown()

	if err := eng.Preflight(ctx); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	logger.Info("engine starting",
		zap.Bool("dry_run", cfg.DryRun),
		zap.Bool("tip", cfg.Tip),
		zap.Bool("dynamic_fees", cfg.DynamicFees),
		zap.Int("hot_pairs", len(staticCatalog.Hot())),
		zap.Int("routes", triCatalog.Len()))

	return eng.Run(ctx)
}

// flashLoanFeeBps reads the pool's current fee at startup; the scanners
// hold it fixed for the process lifetime rather than re-fetching per scan,
// since the on-chain fee changes rarely and a stale read only shifts the
// admissibility threshold slightly.
func flashLoanFeeBps(ctx context.Context, fl *flashloan.Client, logger *zap.Logger) uint16 {
	state, err := fl.GetPoolState(ctx)
	if err != nil {
		logger.Warn("could not read flash-loan pool fee at startup, defaulting to 9 bps", zap.Error(err))
		return 9
	}
	return state.FeeBps
}

func loadStaticCatalog(cfg *config.Config, registry *pairs.Registry) (*pairs.StaticCatalog, error) {
	if cfg.PairsFile != "" {
		return pairs.LoadStaticPairs(cfg.PairsFile, registry, cfg.BorrowAmount)
	}
	hot := make([]pairs.StaticPair, 0, len(cfg.Pairs))
	for _, spec := range cfg.Pairs {
		pair, err := registry.ResolvePair(spec)
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", spec, err)
		}
		hot = append(hot, pairs.StaticPair{Pair: pair, Borrow: cfg.BorrowAmount, Hot: true})
	}
	if len(hot) == 0 {
		return nil, fmt.Errorf("no pairs configured")
	}
	return pairs.NewStaticCatalog(hot, nil), nil
}

func loadTriangularCatalog(cfg *config.Config, registry *pairs.Registry) (*pairs.TriangularCatalog, error) {
	if cfg.RoutesFile == "" {
		return pairs.NewTriangularCatalog(nil), nil
	}
	return pairs.LoadTriangularRoutes(cfg.RoutesFile, registry, cfg.BorrowAmount)
}

func buildOracleReader(cfg *config.Config, registry *pairs.Registry, client *solclient.Client, logger *zap.Logger) (*oracle.Reader, error) {
	if len(cfg.PriceFeeds) == 0 {
		return nil, nil
	}
	feeds := make(map[solana.PublicKey]solana.PublicKey, len(cfg.PriceFeeds))
	for symbolOrAddress, feedAddress := range cfg.PriceFeeds {
		mint, err := registry.Resolve(symbolOrAddress)
		if err != nil {
			return nil, fmt.Errorf("price feed key %q: %w", symbolOrAddress, err)
		}
		feedPubkey, err := solana.PublicKeyFromBase58(feedAddress)
		if err != nil {
			return nil, fmt.Errorf("price feed address %q: %w", feedAddress, err)
		}
		feeds[mint.Address] = feedPubkey
	}
	layout := oracle.Layout{
		PriceOffset:      cfg.PriceFeedLayout.PriceOffset,
		ConfidenceOffset: cfg.PriceFeedLayout.ConfidenceOffset,
		ExponentOffset:   cfg.PriceFeedLayout.ExponentOffset,
		SlotOffset:       cfg.PriceFeedLayout.SlotOffset,
	}
	return oracle.New(client, layout, feeds, logger), nil
}

func parsePublicKeys(addresses []string) ([]solana.PublicKey, error) {
	keys := make([]solana.PublicKey, 0, len(addresses))
	for _, a := range addresses {
		pk, err := solana.PublicKeyFromBase58(a)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", a, err)
		}
		keys = append(keys, pk)
	}
	return keys, nil
}

// ensureLookupTable maintains the engine's own address lookup table over
// the accounts that appear in every composed transaction regardless of
// which pair or route is being traded: the flash-loan program's pool and
// vault and (when tipping) a Jito tip account. The signer is passed too,
// but the manager never adds its own authority to the table.
func ensureLookupTable(ctx context.Context, client *solclient.Client, w *wallet.Wallet, fl *flashloan.Client, jitoClient *jito.Client, logger *zap.Logger) error {
	manager := alt.New(client, w.PrivateKey, ".alt_state.json", logger)

	addresses := []solana.PublicKey{fl.PoolPDA, fl.VaultPDA, w.PublicKey}
	if jitoClient != nil {
		addresses = append(addresses, jito.RandomTipAccount())
	}

	table, err := manager.EnsureTable(ctx, addresses)
	if err != nil {
		return err
	}
	logger.Info("address lookup table ready", zap.String("address", table.Address.String()), zap.Int("addresses", len(table.Addresses)))
	return nil
}
