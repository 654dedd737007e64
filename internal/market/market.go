// Package market holds the shared data model that flows between the
// scanners, the gateway, and the composer: mints, pairs, quotes, and the
// opportunities built from them. Nothing in this package performs I/O.
package market

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Mint is a token's on-chain address. Two mints are equal iff their bytes
// are equal; Symbol/Decimals are best-effort metadata, never used for
// equality.
type Mint struct {
	Address  solana.PublicKey
	Symbol   string
	Decimals uint8
}

// DefaultDecimals is used for a mint whose decimal count is unknown.
const DefaultDecimals = 6

func (m Mint) Equals(other Mint) bool {
	return m.Address.Equals(other.Address)
}

func (m Mint) String() string {
	if m.Symbol != "" {
		return m.Symbol
	}
	return m.Address.String()
}

// Pair is an ordered "TARGET/QUOTE" pairing; QUOTE is the flash-loan token.
type Pair struct {
	Target Mint
	Quote  Mint
}

// ParsePair splits a "TARGET/QUOTE" string. It does not resolve mint
// addresses; callers must look up decimals/addresses separately.
func ParsePair(s string) (target, quote string, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid pair %q, want TARGET/QUOTE", s)
	}
	return parts[0], parts[1], nil
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Target, p.Quote)
}

// LegInfo describes one hop of a venue's internal route plan, kept for
// diagnostics; it is not consumed by the composer.
type LegInfo struct {
	AmmKey     string
	LabelName  string
	InputMint  string
	OutputMint string
	InAmount   string
	OutAmount  string
	FeeAmount  string
	FeeMint    string
}

// Quote is a venue's normalized answer to "how much do I get". InAmount and
// OutAmount are u64 values carried as decimal strings so they survive JSON
// round trips without float precision loss. Raw is the untouched wire
// payload the venue returned, kept so it can be handed back verbatim when
// requesting swap instructions.
type Quote struct {
	Source          string
	InputMint       solana.PublicKey
	OutputMint      solana.PublicKey
	InAmount        string
	OutAmount       string
	SlippageBps     uint16
	PriceImpactPct  string
	RoutePlan       []LegInfo
	Raw             []byte
	FetchedAtMillis int64
}

// InAmountU64 and OutAmountU64 parse the string amounts; they panic-free
// return 0 on malformed input since venues are expected to only ever
// produce well-formed decimal strings.
func (q Quote) InAmountU64() uint64  { return parseU64(q.InAmount) }
func (q Quote) OutAmountU64() uint64 { return parseU64(q.OutAmount) }

func parseU64(s string) uint64 {
	var v uint64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		v = v*10 + uint64(c-'0')
	}
	return v
}

// SwapInstructionBundle is a venue's answer to "give me the instructions
// that perform this swap". Setup/Cleanup instructions handle ATA creation
// and native-SOL wrap/unwrap; TokenLedger, when present, must be placed
// immediately before Swap so the swap consumes actually-received amounts
// rather than the pre-quoted amount.
type SwapInstructionBundle struct {
	Setup        []solana.Instruction
	TokenLedger  solana.Instruction
	Swap         solana.Instruction
	Cleanup      []solana.Instruction
	LookupTables []solana.PublicKey
}

// ArbitrageOpportunity is a two-leg cycle: borrow -> target -> borrow.
type ArbitrageOpportunity struct {
	Pair              Pair
	TokenA            Mint // borrow / quote token
	TokenB            Mint // target token
	BorrowAmount      uint64
	Leg1Out           uint64
	Leg2Out           uint64
	FlashFee          uint64
	SolCostsInToken   int64
	ExpectedProfit    int64
	ProfitBps         int32
	PriceImpactLeg1   string
	PriceImpactLeg2   string
	TimestampMillis   int64
	QuoteLeg1         Quote
	QuoteLeg2         Quote
}

// TriangularRoute is one entry of the static triangular catalog.
type TriangularRoute struct {
	Name         string
	Category     string
	TokenA       Mint // borrow token
	TokenB       Mint
	TokenC       Mint
	BorrowAmount uint64
}

// TriangularOpportunity is a three-leg cycle: A -> B -> C -> A.
type TriangularOpportunity struct {
	Route           TriangularRoute
	Leg1Out         uint64
	Leg2Out         uint64
	Leg3Out         uint64
	FlashFee        uint64
	SolCostsInToken int64
	ExpectedProfit  int64
	ProfitBps       int32
	TimestampMillis int64
	QuoteLeg1       Quote
	QuoteLeg2       Quote
	QuoteLeg3       Quote
}

// CeilDiv computes ceil(amount * bps / 10_000) with a 128-bit-safe
// intermediate product, matching the on-chain flash-loan fee arithmetic.
// A result too large for a uint64 saturates at math.MaxUint64.
func CeilDiv(amount uint64, bps uint16) uint64 {
	hi, lo := bits.Mul64(amount, uint64(bps))
	lo, carry := bits.Add64(lo, 9999, 0)
	hi += carry
	if hi >= 10000 {
		return math.MaxUint64
	}
	quo, _ := bits.Div64(hi, lo, 10000)
	return quo
}

// ProfitBps computes floor(profit * 10_000 / borrow), truncating toward
// zero as Go's integer division already does. Returns 0 when borrow is 0.
func ProfitBps(profit int64, borrow uint64) int32 {
	if borrow == 0 {
		return 0
	}
	return int32((profit * 10_000) / int64(borrow))
}
