// Package composer assembles the atomic instruction sequence for a
// discovered opportunity: compute budget, flash-loan borrow, each leg's
// swap instructions (re-acquired fresh against the opportunity's cached
// quotes), flash-loan repay, and an optional Jito tip — then compiles and
// signs a v0 transaction against freshly fetched lookup tables and block
// reference.
package composer

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/flashloan"
	"github.com/solarb/flashbot/internal/gateway"
	"github.com/solarb/flashbot/internal/jito"
	"github.com/solarb/flashbot/internal/market"
	solclient "github.com/solarb/flashbot/internal/solana"
	"github.com/solarb/flashbot/internal/solana/computebudget"
	"github.com/solarb/flashbot/internal/wallet"
)

const (
	// maxTxBytes is the wire size limit for a v0 transaction.
	maxTxBytes = 1232

	twoLegFreshnessMillis     = 10_000
	triangularFreshnessMillis = 30_000

	minTriangularComputeUnits = 600_000
)

// ErrStaleOpportunity means the opportunity's cached quotes are older than
// the freshness window for its leg count.
type ErrStaleOpportunity struct {
	AgeMillis   int64
	LimitMillis int64
}

func (e *ErrStaleOpportunity) Error() string {
	return fmt.Sprintf("opportunity is stale: age=%dms limit=%dms", e.AgeMillis, e.LimitMillis)
}

// ErrTransactionTooLarge means the compiled message exceeded the wire
// limit. The composer does not retry; the caller may retry with a smaller
// account set or direct_only routing.
type ErrTransactionTooLarge struct {
	Bytes int
}

func (e *ErrTransactionTooLarge) Error() string {
	return fmt.Sprintf("transaction too large: %d bytes (max %d)", e.Bytes, maxTxBytes)
}

// FeeParams pins down the compute-budget and tip parameters for one
// composed transaction, whether they came from a fixed CLI flag pair or
// the dynamic fee strategy.
type FeeParams struct {
	ComputeUnitLimit              uint32
	ComputeUnitPriceMicroLamports uint64
	TipLamports                   uint64
}

// Composed is a signed transaction together with the exact block
// reference it was compiled against, so the caller confirms against the
// same reference rather than re-fetching one that may have rolled past
// the transaction's validity window.
type Composed struct {
	Transaction          *solana.Transaction
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// Composer builds atomic arb transactions for both two-leg and
// triangular opportunities.
type Composer struct {
	gateway    *gateway.Gateway
	flashLoan  *flashloan.Client
	wallet     *wallet.Wallet
	client     *solclient.Client
	jitoClient *jito.Client
	nativeMint solana.PublicKey
	logger     *zap.Logger
}

// New builds a Composer. nativeMint is the wrapped-SOL mint, used to decide
// whether swap bundles may wrap native SOL; jitoClient may be nil when
// tipping is disabled.
func New(gw *gateway.Gateway, flashLoan *flashloan.Client, w *wallet.Wallet, client *solclient.Client, jitoClient *jito.Client, nativeMint solana.PublicKey, logger *zap.Logger) *Composer {
	return &Composer{
		gateway:    gw,
		flashLoan:  flashLoan,
		wallet:     w,
		client:     client,
		jitoClient: jitoClient,
		nativeMint: nativeMint,
		logger:     logger.Named("composer"),
	}
}

// checkFreshness rejects an opportunity whose cached quotes are older
// than limitMillis.
func checkFreshness(nowMillis, timestampMillis, limitMillis int64) error {
	if age := nowMillis - timestampMillis; age > limitMillis {
		return &ErrStaleOpportunity{AgeMillis: age, LimitMillis: limitMillis}
	}
	return nil
}

// floorComputeUnits raises fees.ComputeUnitLimit to min when it falls
// short, leaving every other field untouched.
func floorComputeUnits(fees FeeParams, min uint32) FeeParams {
	if fees.ComputeUnitLimit < min {
		fees.ComputeUnitLimit = min
	}
	return fees
}

// ComposeTwoLeg builds the borrow -> leg1 -> leg2 -> repay[ -> tip]
// sequence for a two-leg opportunity.
func (c *Composer) ComposeTwoLeg(ctx context.Context, opp market.ArbitrageOpportunity, fees FeeParams, nowMillis int64) (*Composed, error) {
	if err := checkFreshness(nowMillis, opp.TimestampMillis, twoLegFreshnessMillis); err != nil {
		return nil, err
	}
	return c.compose(ctx, opp.TokenA, opp.BorrowAmount, []market.Quote{opp.QuoteLeg1, opp.QuoteLeg2}, fees)
}

// ComposeTriangular builds the borrow -> leg1 -> leg2 -> leg3 -> repay[ -> tip]
// sequence for a three-leg opportunity, flooring the compute unit limit at
// minTriangularComputeUnits.
func (c *Composer) ComposeTriangular(ctx context.Context, opp market.TriangularOpportunity, fees FeeParams, nowMillis int64) (*Composed, error) {
	if err := checkFreshness(nowMillis, opp.TimestampMillis, triangularFreshnessMillis); err != nil {
		return nil, err
	}
	fees = floorComputeUnits(fees, minTriangularComputeUnits)
	return c.compose(ctx, opp.Route.TokenA, opp.Route.BorrowAmount, []market.Quote{opp.QuoteLeg1, opp.QuoteLeg2, opp.QuoteLeg3}, fees)
}

func (c *Composer) compose(ctx context.Context, borrowMint market.Mint, borrowAmount uint64, legs []market.Quote, fees FeeParams) (*Composed, error) {
	borrower := c.wallet.PublicKey
	borrowTokenAccount, err := c.wallet.GetATA(borrowMint.Address)
	if err != nil {
		return nil, fmt.Errorf("resolving flash-loan token account: %w", err)
	}

	wrapNative := true
	for _, leg := range legs {
		if leg.InputMint.Equals(c.nativeMint) || leg.OutputMint.Equals(c.nativeMint) {
			wrapNative = false
		}
	}

	borrowIx, err := c.flashLoan.BuildBorrowInstruction(borrower, borrowTokenAccount, borrowAmount)
	if err != nil {
		return nil, fmt.Errorf("building borrow instruction: %w", err)
	}
	repayIx, err := c.flashLoan.BuildRepayInstruction(borrower, borrowTokenAccount)
	if err != nil {
		return nil, fmt.Errorf("building repay instruction: %w", err)
	}

	instructions := make([]solana.Instruction, 0, 4+4*len(legs))
	instructions = append(instructions, borrowIx)

	var lookupAddrs []solana.PublicKey
	seenLookup := make(map[solana.PublicKey]bool)
	for i, leg := range legs {
		useTokenLedger := i > 0
		bundle, err := c.gateway.SwapInstructions(ctx, leg, borrower, wrapNative, useTokenLedger)
		if err != nil {
			return nil, fmt.Errorf("fetching swap instructions for leg %d: %w", i+1, err)
		}
		instructions = append(instructions, bundle.Setup...)
		if bundle.TokenLedger != nil {
			instructions = append(instructions, bundle.TokenLedger)
		}
		instructions = append(instructions, bundle.Swap)
		instructions = append(instructions, bundle.Cleanup...)

		for _, addr := range bundle.LookupTables {
			if !seenLookup[addr] {
				seenLookup[addr] = true
				lookupAddrs = append(lookupAddrs, addr)
			}
		}
	}

	instructions = append(instructions, repayIx)

	if fees.TipLamports > 0 && c.jitoClient != nil {
		instructions = append(instructions, jito.BuildTipInstruction(borrower, fees.TipLamports))
	}

	builder := solclient.NewBuilder(computebudget.Config{
		Units:         fees.ComputeUnitLimit,
		MicroLamports: fees.ComputeUnitPriceMicroLamports,
	}).AddInstructions(instructions...).AddSigner(c.wallet.PrivateKey)

	if len(lookupAddrs) > 0 {
		tables, err := c.gateway.LoadLookupTables(ctx, lookupAddrs)
		if err != nil {
			return nil, fmt.Errorf("loading lookup tables: %w", err)
		}
		for _, t := range tables {
			builder.WithLookupTable(t.Address, t.Addresses)
		}
	}

	tx, latest, err := builder.Build(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}

	size, err := encodedSize(tx)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	if size > maxTxBytes {
		return nil, &ErrTransactionTooLarge{Bytes: size}
	}

	c.logger.Debug("transaction composed",
		zap.Int("instructions", len(instructions)),
		zap.Int("bytes", size),
		zap.Int("lookup_tables", len(lookupAddrs)))

	return &Composed{
		Transaction:          tx,
		Blockhash:            latest.Value.Blockhash,
		LastValidBlockHeight: latest.Value.LastValidBlockHeight,
	}, nil
}

func encodedSize(tx *solana.Transaction) (int, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// NowMillis returns the wall-clock reading callers pass to ComposeTwoLeg
// and ComposeTriangular for freshness checks; the compose methods take it
// as a parameter rather than calling time.Now() inline, so tests can
// control it precisely.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
