package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

type fakeRouter struct {
	calls int
}

func (f *fakeRouter) CleanupExpiredOpportunities() int {
	f.calls++
	return 0
}

func TestRunSweepsImmediatelyAndOnTick(t *testing.T) {
	r := &fakeRouter{}
	store := pool.NewStore(0)
	s := New(Config{Interval: 5 * time.Millisecond}, r, store, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_ = s.Run(ctx)

	require.GreaterOrEqual(t, r.calls, 2)
}

func TestSweepPrunesStalePools(t *testing.T) {
	store := pool.NewStore(0)
	stale := pool.Pool{Address: "a", PairKey: "x-y", Price: 1.0, LastUpdated: 0}
	store.Set(stale)

	s := New(Config{Interval: time.Hour, PoolStalenessMs: 1}, nil, store, nil)
	s.sweep()

	require.Equal(t, 0, store.Size())
}
