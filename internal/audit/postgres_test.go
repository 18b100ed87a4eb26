package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
)

func setupTestPool(t *testing.T) (*Pool, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestRecordForwardInsertsRow(t *testing.T) {
	pool, cleanup := setupTestPool(t)
	defer cleanup()

	sink := NewPostgresSink(pool, nil)
	o := &opportunity.Opportunity{
		ID: "o1", Type: opportunity.TypeIntraSolana, Chain: "solana",
		ProfitPercentage: 1.5,
	}
	sink.RecordForward(context.Background(), o, OutcomeForwarded, "")

	var count int
	err := pool.QueryRow(context.Background(),
		"SELECT count(*) FROM forward_audit_log WHERE opportunity_id = $1", "o1",
	).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestRecordForwardToleratesNilPool(t *testing.T) {
	sink := NewPostgresSink(nil, nil)
	o := &opportunity.Opportunity{ID: "o1"}
	sink.RecordForward(context.Background(), o, OutcomeDLQ, "circuit open")
}
