package solanaengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-coordinator/internal/breaker"
	"github.com/sonicx222/arbitrage-coordinator/internal/detection"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
)

type fakePublisher struct {
	published []opportunity.Opportunity
}

func (f *fakePublisher) Publish(ctx context.Context, op opportunity.Opportunity) {
	f.published = append(f.published, op)
}

type fakeAnalyticsSink struct {
	calls []string
}

func (f *fakeAnalyticsSink) RecordDetection(ctx context.Context, kernel string, result detection.Result) {
	f.calls = append(f.calls, kernel)
}

func seedPoolPair(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.AddPool(AddPoolInput{
		Address: "pool:sol-usdc:raydium", Dex: "raydium",
		Token0Sym: "SOL", Token1Sym: "USDC", FeeBps: 25,
		Reserve0: 1000, Reserve1: 50000, Price: 50,
	}))
	require.NoError(t, e.AddPool(AddPoolInput{
		Address: "pool:sol-usdc:orca", Dex: "orca",
		Token0Sym: "SOL", Token1Sym: "USDC", FeeBps: 30,
		Reserve0: 900, Reserve1: 46000, Price: 51.1,
	}))
}

func TestRunAllPublishesAndRecordsAnalytics(t *testing.T) {
	pub := &fakePublisher{}
	analytics := &fakeAnalyticsSink{}

	e := New(DefaultConfig(), pub, nil)
	e.SetAnalyticsSink(analytics)
	seedPoolPair(t, e)

	ops, err := e.RunAll(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, ops)
	require.Len(t, pub.published, len(ops))
	require.Contains(t, analytics.calls, "intra-dex")
}

func TestRunDetectionGatedByCircuitBreaker(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	e.breaker = breaker.New(breaker.Config{FailureThreshold: 1, CooldownPeriod: 0})
	e.breaker.RecordFailure()
	require.True(t, e.breaker.IsOpen())

	result, err := e.DetectIntraDEX()
	require.NoError(t, err)
	require.Empty(t, result.Opportunities)
	require.EqualValues(t, 0, e.Counters().DetectionsRun)
}

func TestDetectTriangularDisabledByConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.TriangularEnabled = false
	e := New(cfg, nil, nil)

	result, err := e.DetectTriangular()
	require.NoError(t, err)
	require.Empty(t, result.Opportunities)
}
