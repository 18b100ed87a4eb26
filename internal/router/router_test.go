package router

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sonicx222/arbitrage-coordinator/internal/breaker"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream"
)

type recordedCall struct {
	streamName string
	fields     map[string]string
}

type fakeClient struct {
	failAll bool
	calls   []recordedCall
}

func (f *fakeClient) XAdd(ctx context.Context, streamName string, fields map[string]string, opts stream.AddOptions) (string, error) {
	f.calls = append(f.calls, recordedCall{streamName: streamName, fields: fields})
	if f.failAll {
		return "", errors.New("xadd failed")
	}
	return "1-0", nil
}

func (f *fakeClient) XAddWithLimit(ctx context.Context, streamName string, fields map[string]string) (string, error) {
	return f.XAdd(ctx, streamName, fields, stream.AddOptions{})
}

func (f *fakeClient) ReadGroup(ctx context.Context, group, consumer, streamName string, count int64) ([]stream.Message, error) {
	return nil, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StartupGracePeriodMs = 0
	cfg.RetryBaseDelayMs = 1
	cfg.DLQFallbackDir = "testdata"
	return cfg
}

func TestHappyPathLeaderForwardsAndRecordsExecution(t *testing.T) {
	client := &fakeClient{}
	r := New(testConfig(), client, nil, nil)

	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id":               "o1",
		"chain":            "ethereum",
		"profitPercentage": "2.5",
		"status":           "pending",
	}, true, nil)

	require.True(t, accepted)
	require.Equal(t, 1, r.Size())
	require.Len(t, client.calls, 1)
	require.Equal(t, "stream:execution-requests", client.calls[0].streamName)
	require.Equal(t, r.cfg.InstanceID, client.calls[0].fields["forwardedBy"])
	require.NotEmpty(t, client.calls[0].fields["forwardedAt"])
	require.EqualValues(t, 1, r.Counters().TotalExecutions)
}

func TestCircuitOpenRoutesDirectlyToDLQ(t *testing.T) {
	client := &fakeClient{}
	cb := breaker.New(breaker.Config{FailureThreshold: 5, CooldownPeriod: time.Minute})
	for i := 0; i < 5; i++ {
		cb.RecordFailure()
	}

	r := New(testConfig(), client, cb, nil)

	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id":     "o2",
		"chain":  "ethereum",
		"status": "pending",
	}, true, nil)

	require.True(t, accepted)
	require.Len(t, client.calls, 1)
	require.Equal(t, "stream:forwarding-dlq", client.calls[0].streamName)
	require.Equal(t, "o2", client.calls[0].fields["opportunityId"])
	require.Equal(t, "Circuit breaker open", client.calls[0].fields["error"])
	require.EqualValues(t, 1, r.Counters().OpportunitiesDropped)
}

func TestDuplicateIngestWithinWindowIsRejected(t *testing.T) {
	client := &fakeClient{}
	r := New(testConfig(), client, nil, nil)

	now := opportunity.NowMs()
	wire := opportunity.Wire{"id": "o3", "chain": "ethereum", "status": "pending", "timestamp": msToStr(now)}

	require.True(t, r.ProcessOpportunity(context.Background(), wire, false, nil))
	before := r.Counters().TotalOpportunities
	sizeBefore := r.Size()

	require.False(t, r.ProcessOpportunity(context.Background(), wire, false, nil))
	require.Equal(t, before, r.Counters().TotalOpportunities)
	require.Equal(t, sizeBefore, r.Size())
}

func TestNonLeaderStoresButDoesNotForward(t *testing.T) {
	client := &fakeClient{}
	r := New(testConfig(), client, nil, nil)

	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id": "o4", "chain": "ethereum", "status": "pending",
	}, false, nil)

	require.True(t, accepted)
	require.Len(t, client.calls, 0)
	require.EqualValues(t, 0, r.Counters().TotalExecutions)
}

func TestRetryExhaustionDropsAndWritesDLQ(t *testing.T) {
	client := &fakeClient{failAll: true}
	cfg := testConfig()
	cfg.MaxRetries = 3
	r := New(cfg, client, nil, nil)

	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id": "o5", "chain": "ethereum", "status": "pending",
	}, true, nil)

	require.True(t, accepted)
	require.EqualValues(t, 1, r.Counters().OpportunitiesDropped)

	var executionAttempts, dlqWrites int
	for _, c := range client.calls {
		if c.streamName == "stream:execution-requests" {
			executionAttempts++
		}
		if c.streamName == "stream:forwarding-dlq" {
			dlqWrites++
		}
	}
	require.Equal(t, cfg.MaxRetries, executionAttempts)
	require.Equal(t, 1, dlqWrites)

	select {
	case a := <-r.Alerts:
		require.Equal(t, AlertExecutionForwardFailed, a.Type)
	default:
		t.Fatal("expected EXECUTION_FORWARD_FAILED alert")
	}
}

func TestUnrecognizedChainRejected(t *testing.T) {
	r := New(testConfig(), &fakeClient{}, nil, nil)
	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id": "o6", "chain": "not-a-real-chain",
	}, false, nil)
	require.False(t, accepted)
}

func TestProfitOutsideRangeRejected(t *testing.T) {
	r := New(testConfig(), &fakeClient{}, nil, nil)
	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id": "o7", "chain": "ethereum", "profitPercentage": "500",
	}, false, nil)
	require.False(t, accepted)
}

func TestExpiredOnArrivalStoredNotForwarded(t *testing.T) {
	client := &fakeClient{}
	r := New(testConfig(), client, nil, nil)

	past := opportunity.NowMs() - 60000
	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id": "o8", "chain": "ethereum", "status": "pending", "expiresAt": msToStr(past),
	}, true, nil)

	require.True(t, accepted)
	require.Len(t, client.calls, 0)
	require.Equal(t, 1, r.Counters().ConsecutiveExpired)
}

type recordedAudit struct {
	outcome, reason string
}

type fakeAuditSink struct {
	calls []recordedAudit
}

func (f *fakeAuditSink) RecordForward(ctx context.Context, o *opportunity.Opportunity, outcome, reason string) {
	f.calls = append(f.calls, recordedAudit{outcome: outcome, reason: reason})
}

func TestSuccessfulForwardRecordsAudit(t *testing.T) {
	client := &fakeClient{}
	audit := &fakeAuditSink{}
	r := New(testConfig(), client, nil, nil)
	r.SetAuditSink(audit)

	accepted := r.ProcessOpportunity(context.Background(), opportunity.Wire{
		"id": "o9", "chain": "ethereum", "status": "pending",
	}, true, nil)

	require.True(t, accepted)
	require.Len(t, audit.calls, 1)
	require.Equal(t, "forwarded", audit.calls[0].outcome)
}

func msToStr(v int64) string {
	return strconv.FormatInt(v, 10)
}
