package detection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

func TestTriangularFindsKnownProfitableCycle(t *testing.T) {
	now := opportunity.NowMs()
	store := newTestStore(
		pool.Pool{Address: "sol-usdc", PairKey: "SOL-USDC", NormalizedToken0: "SOL", NormalizedToken1: "USDC", Price: 100, Fee: 10, LastUpdated: now},
		pool.Pool{Address: "usdc-jup", PairKey: "JUP-USDC", NormalizedToken0: "USDC", NormalizedToken1: "JUP", Price: 0.05, Fee: 10, LastUpdated: now},
		pool.Pool{Address: "jup-sol", PairKey: "JUP-SOL", NormalizedToken0: "JUP", NormalizedToken1: "SOL", Price: 0.21, Fee: 10, LastUpdated: now},
	)

	cfg := DefaultConfig()
	cfg.MinProfitThreshold = 0.1

	res := Triangular(store, opportunity.NewFactory(), cfg, nil)

	require.NotEmpty(t, res.Opportunities)
	var found bool
	for _, op := range res.Opportunities {
		if op.ProfitPercentage > 4 && op.ProfitPercentage < 5 {
			found = true
			require.Equal(t, opportunity.ConfidenceTriangular, op.Confidence)
			path, ok := op.Extra["path"].([]string)
			require.True(t, ok)
			require.Len(t, path, 3)
		}
	}
	require.True(t, found, "expected to find the ~4.69%% triangular cycle")
}

func TestTriangularNoOpportunityWhenUnprofitable(t *testing.T) {
	now := opportunity.NowMs()
	store := newTestStore(
		pool.Pool{Address: "a", PairKey: "A-B", NormalizedToken0: "A", NormalizedToken1: "B", Price: 1, Fee: 100, LastUpdated: now},
		pool.Pool{Address: "b", PairKey: "B-C", NormalizedToken0: "B", NormalizedToken1: "C", Price: 1, Fee: 100, LastUpdated: now},
		pool.Pool{Address: "c", PairKey: "C-A", NormalizedToken0: "C", NormalizedToken1: "A", Price: 1, Fee: 100, LastUpdated: now},
	)

	res := Triangular(store, opportunity.NewFactory(), DefaultConfig(), nil)
	require.Empty(t, res.Opportunities)
}

func TestTriangularRespectsStalePools(t *testing.T) {
	stale := opportunity.NowMs() - 2*pool.DefaultPriceStalenessMs
	store := newTestStore(
		pool.Pool{Address: "a", PairKey: "A-B", NormalizedToken0: "A", NormalizedToken1: "B", Price: 2, LastUpdated: stale},
	)
	res := Triangular(store, opportunity.NewFactory(), DefaultConfig(), nil)
	require.Equal(t, 1, res.StalePoolsSkipped)
}
