package pool

import "strings"

// MaxSymbolLen bounds a sanitized token symbol.
const MaxSymbolLen = 20

// SanitizeSymbol strips characters outside alphanumerics, '.', and '-', then
// truncates to MaxSymbolLen.
func SanitizeSymbol(symbol string) string {
	var b strings.Builder
	for _, r := range symbol {
		if isAlnum(r) || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > MaxSymbolLen {
		s = s[:MaxSymbolLen]
	}
	return s
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// liquidStakingGroups maps a canonical underlying symbol to its known
// liquid-staking derivative variants, for cross-chain collapse.
var liquidStakingGroups = map[string][]string{
	"SOL": {"MSOL", "JITOSOL", "BSOL", "STSOL"},
	"ETH": {"STETH", "WSTETH", "RETH", "CBETH"},
}

var liquidStakingToUnderlying = buildLiquidStakingIndex()

func buildLiquidStakingIndex() map[string]string {
	idx := make(map[string]string)
	for underlying, variants := range liquidStakingGroups {
		for _, v := range variants {
			idx[v] = underlying
		}
	}
	return idx
}

// NormalizeForPricing sanitizes and uppercases a symbol, preserving
// liquid-staking identity — two variants of the same underlying asset (e.g.
// mSOL and SOL) must stay distinct for pool pricing.
func NormalizeForPricing(symbol string) string {
	return strings.ToUpper(SanitizeSymbol(symbol))
}

// NormalizeForCrossChain collapses known liquid-staking derivatives to their
// underlying asset, so e.g. mSOL and SOL map to the same cross-chain pair
// key.
func NormalizeForCrossChain(symbol string) string {
	normalized := NormalizeForPricing(symbol)
	if underlying, ok := liquidStakingToUnderlying[normalized]; ok {
		return underlying
	}
	return normalized
}
