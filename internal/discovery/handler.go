package discovery

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solarb/flashbot/internal/pairs"
)

// SnipeProbe is one of the two probe sizes triggered when a new pool is
// promoted to the dynamic pair set.
type SnipeProbe struct {
	Pair   string
	Borrow uint64
}

// probe sizes are quoted in USDC smallest units (6 decimals): 10 and 100
// USDC.
const (
	snipeProbeSmall = 10_000_000
	snipeProbeLarge = 100_000_000
)

// Classify implements the orchestrator's discovery-event handler: discard
// events that add nothing new, otherwise form a "<prefix>/USDC" pair and
// return the probes to run. ok is false when the event should be
// discarded outright.
func Classify(event NewPoolEvent, registry *pairs.Registry) (pair string, probes []SnipeProbe, ok bool) {
	if len(event.Mints) < 2 {
		return "", nil, false
	}

	usdc, err := registry.Resolve("USDC")
	if err != nil {
		return "", nil, false
	}

	var quoteCount int
	var nonQuote solana.PublicKey
	for _, mint := range event.Mints {
		if registry.IsKnownQuote(mint) {
			quoteCount++
		} else {
			nonQuote = mint
		}
	}

	// (a) both known quote mints: already covered by the static pair list.
	if quoteCount == len(event.Mints) {
		return "", nil, false
	}
	// (b) neither token is a known quote: nothing to trade it against.
	if quoteCount == 0 {
		return "", nil, false
	}

	// Only USDC-quoted pairs are promoted; a SOL- or USDT-quoted pool
	// still discards here per the component design.
	var isUSDCQuoted bool
	for _, mint := range event.Mints {
		if mint.Equals(usdc.Address) {
			isUSDCQuoted = true
		}
	}
	if !isUSDCQuoted {
		return "", nil, false
	}

	prefix := nonQuote.String()
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	pairName := fmt.Sprintf("%s/USDC", prefix)

	return pairName, []SnipeProbe{
		{Pair: pairName, Borrow: snipeProbeSmall},
		{Pair: pairName, Borrow: snipeProbeLarge},
	}, true
}
