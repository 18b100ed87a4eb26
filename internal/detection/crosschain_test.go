package detection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

func TestCrossChainEmitsOpportunityAboveThreshold(t *testing.T) {
	now := opportunity.NowMs()
	store := newTestStore(
		pool.Pool{Address: "a", PairKey: "SOL-USDC", NormalizedToken0: "SOL", NormalizedToken1: "USDC", Price: 105, Fee: 10, LastUpdated: now},
	)

	cfg := DefaultConfig()
	cfg.MinProfitThreshold = 0.1

	res := CrossChain(store, opportunity.NewFactory(), []EvmPriceUpdate{
		{Chain: "ethereum", Token0: "SOL", Token1: "USDC", Price: 100, FeeBps: 10},
	}, cfg, nil)

	require.Len(t, res.Opportunities, 1)
	op := res.Opportunities[0]
	require.Equal(t, opportunity.TypeCrossChain, op.Type)
	require.Equal(t, opportunity.ConfidenceCrossChain, op.Confidence)
	require.Equal(t, "ethereum", op.TargetChain)
	require.Equal(t, "buy-evm-sell-solana", op.Extra["direction"])
}

func TestCrossChainNormalizesLiquidStakingVariants(t *testing.T) {
	now := opportunity.NowMs()
	store := newTestStore(
		pool.Pool{Address: "a", PairKey: "SOL-USDC", NormalizedToken0: "SOL", NormalizedToken1: "USDC", Price: 100, Fee: 10, LastUpdated: now},
	)

	res := CrossChain(store, opportunity.NewFactory(), []EvmPriceUpdate{
		{Chain: "ethereum", Token0: "mSOL", Token1: "USDC", Price: 1000000, FeeBps: 10},
	}, DefaultConfig(), nil)

	require.NotEmpty(t, res.Opportunities)
}

func TestCrossChainSkipsWhenNoMatchingSolanaPair(t *testing.T) {
	store := pool.NewStore(0)
	res := CrossChain(store, opportunity.NewFactory(), []EvmPriceUpdate{
		{Chain: "ethereum", Token0: "SOL", Token1: "USDC", Price: 100, FeeBps: 10},
	}, DefaultConfig(), nil)
	require.Empty(t, res.Opportunities)
}

func TestCrossChainUsesEthereumGasTableEntry(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, DefaultEthereumGasUsd, cfg.PerChainEvmGasUsd["ethereum"])
	require.Equal(t, DefaultL2GasUsd, cfg.PerChainEvmGasUsd["arbitrum"])
}
