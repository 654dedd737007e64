// Package pairs maintains the engine's token vocabulary and route
// catalogs: the well-known mint registry, the static two-leg pair list
// (partitioned into hot/cold), the triangular route catalog, and the
// dynamic pair set promoted at runtime by the discovery listener.
package pairs

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/solarb/flashbot/internal/market"
)

// wellKnownMints mirrors the engine's built-in symbol table: mint address
// and decimals for every token referenced by the default pair and route
// catalogs, so operators can write "SOL/USDC" instead of base58 addresses.
var wellKnownMints = map[string]market.Mint{
	"SOL":      mustMint("So11111111111111111111111111111111111111112", 9),
	"USDC":     mustMint("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", 6),
	"USDT":     mustMint("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", 6),
	"JUP":      mustMint("JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN", 6),
	"RAY":      mustMint("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R", 6),
	"ORCA":     mustMint("orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE", 6),
	"PYTH":     mustMint("HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3", 6),
	"RENDER":   mustMint("rndrizKT3MK1iimdxRdWabcF7Zg7AR5T4nud4EkHBof", 8),
	"HNT":      mustMint("hntyVP6YFm1Hg25TN9WGLqM12b8TQmcknKrdu1oxWux", 8),
	"W":        mustMint("85VBFQZC9TZkfaptBWjvUw7YbZjy52A6mjtPGjstQAmQ", 6),
	"TNSR":     mustMint("TNSRxcUxoT9xBG3de7PiJyTDYu7kskLqcpddxnEJAS6", 9),
	"JTO":      mustMint("jtojtomepa8beP8AuQc6eXt5FriJwfFMwQx2v2f9mCL", 9),
	"MSOL":     mustMint("mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", 9),
	"JITOSOL":  mustMint("J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn", 9),
	"BSOL":     mustMint("bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1", 9),
	"INF":      mustMint("5oVNBeEEQvYi1cX3ir8Dx5n1P7pdxydbGF2X4TxVusJm", 9),
	"BONK":     mustMint("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", 5),
	"WIF":      mustMint("EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm", 6),
	"POPCAT":   mustMint("7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", 9),
	"MEW":      mustMint("MEW1gQWJ3nEXg2qgERiKu7FAFj79PHvQVREQUzScPP5", 5),
	"TRUMP":    mustMint("6p6xgHyF7AeE6TZkSmFsko444wqoP15icUSqi2jfGiPN", 6),
	"FARTCOIN": mustMint("9BB6NFEcjBCtnNLFko2FqVQBq8HHM13kCyYcdQbgpump", 6),
	"KMNO":     mustMint("KMNo3nJsBXfcpJTVhZcXLW7RmTwTt4GVFE7suUBo9sS", 6),
	"DRIFT":    mustMint("DriFtupJYLTosbwoN8koMbEYSx54aFAVLddWsbksjwg7", 6),
	"SAMO":     mustMint("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU", 9),
	"MNDE":     mustMint("MNDEFzGvMt87ueuHvVU9VcTqsAP5b3fTGPsHuuPA5ey", 9),
	"STEP":     mustMint("StepAscQoEioFxxWGnh2sLBDFp9d8rvKz2Yp39iDpyT", 9),
	"SHDW":     mustMint("SHDWyBxihqiCj6YekG2GUr7wqKLeLAMK1gHZck9pL6y", 9),
	"DUST":     mustMint("DUSTawucrTsGU8hcqRdHDCbuYhCPADMLM2VcCb8VnFnQ", 9),
	"BLZE":     mustMint("BLZEEuZUBVqFhj8adcCFPJvPVCiCyVmh3hkJMrU8KuJA", 9),
	"ZEUS":     mustMint("ZEUS1aR7aX8DFFJf5QjWj2ftDDdNTroMNGo8YoQm3Gq", 6),
	"WEN":      mustMint("WENWENvqqNya429ubCdR81ZmD69brwQaaBYY6p3LCpk", 5),
	"BOME":     mustMint("ukHH6c7mMyiWCf1b9pnWe25TSpkDDt3H5pQZgZ74J82", 6),
	"SLERF":    mustMint("7BgBvyjrZX1YKz4oh9mjb8ZScatkkwb8DzFx7LoiVkM3", 9),
	"SILLY":    mustMint("7EYnhQoR9YM3N7UoaKRoA44Uy8JeaZV3qyouov87awMs", 6),
	"AI16Z":    mustMint("HeLp6NuQkmYB4pYWo2zYs22mESHXPQYzXbB8n4V98jwC", 9),
}

func mustMint(address string, decimals uint8) market.Mint {
	return market.Mint{Address: solana.MustPublicKeyFromBase58(address), Decimals: decimals}
}

// Registry resolves a symbol or raw base58 address into a market.Mint,
// attaching the symbol as a label when one is known.
type Registry struct {
	bySymbol map[string]market.Mint
}

// NewRegistry builds a Registry seeded with the engine's well-known mints.
func NewRegistry() *Registry {
	r := &Registry{bySymbol: make(map[string]market.Mint, len(wellKnownMints))}
	for symbol, mint := range wellKnownMints {
		m := mint
		m.Symbol = symbol
		r.bySymbol[symbol] = m
	}
	return r
}

// Register adds or overrides a mint under the given symbol, letting an
// operator extend the built-in catalog via config without a code change.
func (r *Registry) Register(symbol string, mint market.Mint) {
	mint.Symbol = symbol
	r.bySymbol[strings.ToUpper(symbol)] = mint
}

// Resolve looks up a symbol (case-insensitive) first, falling back to
// parsing the input as a raw base58 mint address with DefaultDecimals.
func (r *Registry) Resolve(symbolOrAddress string) (market.Mint, error) {
	if mint, ok := r.bySymbol[strings.ToUpper(symbolOrAddress)]; ok {
		return mint, nil
	}
	pk, err := solana.PublicKeyFromBase58(symbolOrAddress)
	if err != nil {
		return market.Mint{}, fmt.Errorf("unknown mint %q: not a registered symbol or valid address", symbolOrAddress)
	}
	return market.Mint{Address: pk, Decimals: market.DefaultDecimals}, nil
}

// ResolvePair parses "TARGET/QUOTE" and resolves both sides.
func (r *Registry) ResolvePair(s string) (market.Pair, error) {
	targetSym, quoteSym, err := market.ParsePair(s)
	if err != nil {
		return market.Pair{}, err
	}
	target, err := r.Resolve(targetSym)
	if err != nil {
		return market.Pair{}, err
	}
	quote, err := r.Resolve(quoteSym)
	if err != nil {
		return market.Pair{}, err
	}
	return market.Pair{Target: target, Quote: quote}, nil
}

// IsKnownQuote reports whether mint is one of the engine's recognized
// quote currencies (SOL, USDC, USDT) — used by the discovery handler to
// decide whether a newly observed pool is already covered by the static
// pair list.
func (r *Registry) IsKnownQuote(mint solana.PublicKey) bool {
	for _, sym := range []string{"SOL", "USDC", "USDT"} {
		if m, ok := r.bySymbol[sym]; ok && m.Address.Equals(mint) {
			return true
		}
	}
	return false
}
