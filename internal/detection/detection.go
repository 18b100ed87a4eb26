// Package detection implements the three arbitrage detection kernels —
// intra-DEX, triangular, and cross-chain — as pure functions over a
// pool-store snapshot.
//
// No single teacher file performs graph arbitrage detection; the general
// shape (scan all pairs, accumulate decimal-precise profit/fee/gas
// accounting) is grounded on the retrieval pack's standalone arbitrage
// examples (internal/defi/arbitrage_detector.go-style profit accounting),
// adapted into this package's own types rather than copied, since those
// files' identifiers and comments belong to a different codebase.
package detection

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

// Bounds on kernel work per run, kept as named constants for clarity.
const (
	MaxComparisonsPerPair = 500
	DefaultMaxDepth       = 3
	MaxPathsPerLevel      = 100
	MaxMemoCacheSize      = 10000

	DefaultBridgeFee            = 0.001
	DefaultLatencyRiskPremium   = 0.002
	DefaultEthereumGasUsd       = 15.0
	DefaultL2GasUsd             = 0.25
)

// Config tunes every kernel. Values come from the environment
// (MIN_PROFIT_THRESHOLD, MAX_TRIANGULAR_DEPTH, OPPORTUNITY_EXPIRY_MS,
// SOLANA_DEFAULT_TRADE_VALUE_USD, CROSS_CHAIN_ENABLED, TRIANGULAR_ENABLED).
type Config struct {
	// MinProfitThreshold is in percent units; a net profit is accepted when
	// net >= MinProfitThreshold/100.
	MinProfitThreshold float64

	PriceStalenessMs     int64
	MaxTriangularDepth   int
	DefaultTradeValueUsd float64
	OpportunityExpiryMs  int64

	CrossChainEnabled bool
	TriangularEnabled bool

	BridgeFee          float64
	LatencyRiskPremium float64

	// PerChainEvmGasUsd overrides the default per-chain EVM gas cost table;
	// chains absent here fall back to DefaultEvmGasUsd.
	PerChainEvmGasUsd map[string]float64
	DefaultEvmGasUsd  float64
	SolanaTxUsd       float64

	// SolanaFlatGasUsd approximates a Solana swap's compute-unit cost in USD
	// for the intra-DEX kernel's gas estimate.
	SolanaFlatGasUsd float64
}

// DefaultConfig returns a Config populated with documented defaults.
func DefaultConfig() Config {
	return Config{
		MinProfitThreshold:   0.5,
		PriceStalenessMs:     pool.DefaultPriceStalenessMs,
		MaxTriangularDepth:   DefaultMaxDepth,
		DefaultTradeValueUsd: 1000,
		OpportunityExpiryMs:  30000,
		CrossChainEnabled:    true,
		TriangularEnabled:    true,
		BridgeFee:            DefaultBridgeFee,
		LatencyRiskPremium:   DefaultLatencyRiskPremium,
		PerChainEvmGasUsd: map[string]float64{
			"ethereum": DefaultEthereumGasUsd,
			"arbitrum": DefaultL2GasUsd,
			"optimism": DefaultL2GasUsd,
			"base":     DefaultL2GasUsd,
			"zksync":   DefaultL2GasUsd,
			"linea":    DefaultL2GasUsd,
		},
		DefaultEvmGasUsd: 5.0,
		SolanaTxUsd:      0.02,
		SolanaFlatGasUsd: 0.00025,
	}
}

// thresholdFraction converts the percent-unit threshold to a decimal fraction.
func (c Config) thresholdFraction() float64 {
	return c.MinProfitThreshold / 100
}

// Result is the common return shape for every kernel: opportunities found,
// latency, and kernel-specific counters.
type Result struct {
	Opportunities     []opportunity.Opportunity
	LatencyMs         int64
	StalePoolsSkipped int
	PathsExplored     int
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func feeFraction(feeBps int) float64 {
	return decimal.NewFromInt(int64(feeBps)).Div(decimal.NewFromInt(10000)).InexactFloat64()
}
