// =================================
// File: internal/config/config.go
// =================================

// Package config loads the engine's runtime configuration from an optional
// YAML file, environment variables, and CLI flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TipRegion selects a block-engine regional endpoint.
type TipRegion string

const (
	TipRegionDefault   TipRegion = "default"
	TipRegionNY        TipRegion = "ny"
	TipRegionAmsterdam TipRegion = "amsterdam"
	TipRegionFrankfurt TipRegion = "frankfurt"
	TipRegionTokyo     TipRegion = "tokyo"
	TipRegionSLC       TipRegion = "slc"
)

// Config holds every tunable of the arbitrage engine.
type Config struct {
	RPC              string   `mapstructure:"rpc"`
	WS               string   `mapstructure:"ws"`
	Wallet           string   `mapstructure:"wallet"`
	Pairs            []string `mapstructure:"pairs"`
	BorrowAmount     uint64   `mapstructure:"borrow_amount"`
	MinProfitBps     int32    `mapstructure:"min_profit_bps"`
	SlippageBps      uint16   `mapstructure:"slippage"`
	PollIntervalMs   int      `mapstructure:"poll_interval"`
	PriorityFeeMicro uint64   `mapstructure:"priority_fee"`
	ComputeUnitLimit uint32   `mapstructure:"compute_unit_limit"`
	ProgramID        string   `mapstructure:"program_id"`
	TokenMint        string   `mapstructure:"token_mint"`
	DryRun           bool     `mapstructure:"dry_run"`
	Tip              bool     `mapstructure:"tip"`
	TipRegion        string   `mapstructure:"tip_region"`
	TipLamports      uint64   `mapstructure:"tip_lamports"`
	Verbose          bool     `mapstructure:"verbose"`
	LogFile          string   `mapstructure:"log_file"`

	MaxConsecutiveFailures int  `mapstructure:"max_consecutive_failures"`
	DynamicFees            bool `mapstructure:"dynamic_fees"`

	PairsFile  string `mapstructure:"pairs_file"`
	RoutesFile string `mapstructure:"routes_file"`

	JupiterAPIKey string   `mapstructure:"jupiter_api_key"`
	VenuePrograms []string `mapstructure:"venue_programs"`
	ListingURL    string   `mapstructure:"listing_url"`

	// PriceFeeds maps a registered symbol or raw mint address to its
	// on-chain price-feed account, enabling the dynamic fee strategy's
	// oracle-backed SOL price estimate. Left empty, the engine falls back
	// to a static estimate.
	PriceFeeds      map[string]string `mapstructure:"price_feeds"`
	PriceFeedLayout struct {
		PriceOffset      int `mapstructure:"price_offset"`
		ConfidenceOffset int `mapstructure:"confidence_offset"`
		ExponentOffset   int `mapstructure:"exponent_offset"`
		SlotOffset       int `mapstructure:"slot_offset"`
	} `mapstructure:"price_feed_layout"`
}

const (
	DefaultBorrowAmount           = 200_000_000 // 200 USDC (6 decimals)
	DefaultMinProfitBps           = 5
	DefaultSlippageBps            = 50
	DefaultPollIntervalMs         = 2000
	DefaultPriorityFeeMicro       = 25_000
	DefaultComputeUnitLimit       = 400_000
	DefaultMaxConsecutiveFailures = 10
	DefaultTipLamports            = 10_000
)

// Load builds a Config from an optional config file, environment variables
// (ARB_ prefix) and CLI flags; flags win over env, env wins over the file.
func Load(configPath string, args []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// The log file may also be set through the unprefixed LOG_FILE variable.
	if err := v.BindEnv("log_file", "ARB_LOG_FILE", "LOG_FILE"); err != nil {
		return nil, fmt.Errorf("binding log file env: %w", err)
	}

	flags := pflag.NewFlagSet("arbbot", pflag.ContinueOnError)
	bindFlags(flags)
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}
	// Flag names are dashed while config keys are snake_case, so each flag
	// is bound under its snake_case key.
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr == nil {
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("binding flags: %w", bindErr)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("borrow_amount", DefaultBorrowAmount)
	v.SetDefault("min_profit_bps", DefaultMinProfitBps)
	v.SetDefault("slippage", DefaultSlippageBps)
	v.SetDefault("poll_interval", DefaultPollIntervalMs)
	v.SetDefault("priority_fee", DefaultPriorityFeeMicro)
	v.SetDefault("compute_unit_limit", DefaultComputeUnitLimit)
	v.SetDefault("max_consecutive_failures", DefaultMaxConsecutiveFailures)
	v.SetDefault("tip_lamports", DefaultTipLamports)
	v.SetDefault("tip_region", string(TipRegionDefault))
	v.SetDefault("dry_run", true)
}

func bindFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "chain RPC endpoint")
	flags.String("ws", "", "chain websocket endpoint")
	flags.String("wallet", "", "path to the signer key-pair file")
	flags.StringSlice("pairs", nil, "comma-separated TARGET/QUOTE pairs")
	flags.Uint64("borrow-amount", DefaultBorrowAmount, "default flash-loan borrow amount")
	flags.Int32("min-profit-bps", DefaultMinProfitBps, "minimum admissible profit in bps")
	flags.Uint16("slippage", DefaultSlippageBps, "quote slippage tolerance in bps")
	flags.Int("poll-interval", DefaultPollIntervalMs, "main loop period in milliseconds")
	flags.Uint64("priority-fee", DefaultPriorityFeeMicro, "compute unit price in micro-lamports")
	flags.Uint32("compute-unit-limit", DefaultComputeUnitLimit, "compute unit limit")
	flags.String("program-id", "", "flash-loan program id")
	flags.String("token-mint", "", "flash-loan token mint (borrow token)")
	flags.Bool("dry-run", true, "log opportunities without submitting transactions")
	flags.Bool("tip", false, "submit via the block-engine tip path")
	flags.String("tip-region", string(TipRegionDefault), "block-engine region: default|ny|amsterdam|frankfurt|tokyo|slc")
	flags.Uint64("tip-lamports", DefaultTipLamports, "fixed tip amount in lamports")
	flags.Bool("verbose", false, "enable debug logging")
	flags.String("log-file", "", "also tee structured JSON logs to this file")
	flags.String("pairs-file", "", "YAML static pair catalog; overrides --pairs when set")
	flags.String("routes-file", "", "YAML triangular route catalog")
	flags.String("jupiter-api-key", "", "Jupiter API key for higher rate limits")
	flags.StringSlice("venue-programs", nil, "base58 program IDs to watch for pool-discovery and backrun signals")
	flags.String("listing-url", "", "HTTP endpoint the pool-discovery poller checks for new pair listings")
}

func validateConfig(cfg *Config) error {
	if cfg.RPC == "" {
		return errors.New("rpc endpoint is required")
	}
	if err := validateURLWithCache(cfg.RPC, "http"); err != nil {
		return fmt.Errorf("invalid rpc url: %w", err)
	}
	if cfg.Wallet == "" {
		return errors.New("wallet key-pair path is required")
	}
	if len(cfg.Pairs) == 0 {
		return errors.New("at least one pair is required")
	}
	if cfg.ProgramID == "" {
		return errors.New("flash-loan program id is required")
	}
	if cfg.TokenMint == "" {
		return errors.New("flash-loan token mint is required")
	}
	if cfg.PollIntervalMs <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		return errors.New("max_consecutive_failures must be positive")
	}
	switch TipRegion(cfg.TipRegion) {
	case TipRegionDefault, TipRegionNY, TipRegionAmsterdam, TipRegionFrankfurt, TipRegionTokyo, TipRegionSLC:
	default:
		return fmt.Errorf("invalid tip_region: %q", cfg.TipRegion)
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}
