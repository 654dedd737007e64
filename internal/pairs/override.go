package pairs

// borrowOverridePrefixLen matches the 8-character mint-address prefix the
// override table is keyed on — short enough to write by hand, long enough
// that base58 collisions are not a practical concern.
const borrowOverridePrefixLen = 8

// BorrowOverrides maps a target mint's address prefix to a borrow amount
// in quote-token smallest units, letting operators tune position size per
// token liquidity tier without a one-to-one entry per full address.
type BorrowOverrides map[string]uint64

// Lookup returns the configured override for targetMint's address, or
// (0, false) when no override applies and the catalog default should be
// used instead.
func (o BorrowOverrides) Lookup(targetMintAddress string) (uint64, bool) {
	if len(targetMintAddress) < borrowOverridePrefixLen {
		return 0, false
	}
	prefix := targetMintAddress[:borrowOverridePrefixLen]
	amount, ok := o[prefix]
	return amount, ok && amount > 0
}

// ApplyOverrides rewrites each pair's Borrow in place using overrides,
// falling back to the catalog-configured borrow when no override matches.
func ApplyOverrides(pairsList []StaticPair, overrides BorrowOverrides) {
	for i := range pairsList {
		addr := pairsList[i].Pair.Target.Address.String()
		if amount, ok := overrides.Lookup(addr); ok {
			pairsList[i].Borrow = amount
		}
	}
}
