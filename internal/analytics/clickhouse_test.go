package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sonicx222/arbitrage-coordinator/internal/detection"
)

func setupTestConn(t *testing.T) (*Conn, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, conn))

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}
	return conn, cleanup
}

func TestRecordDetectionInsertsRow(t *testing.T) {
	conn, cleanup := setupTestConn(t)
	defer cleanup()

	sink := NewClickHouseSink(conn, nil)
	result := detection.Result{LatencyMs: 12, StalePoolsSkipped: 1, PathsExplored: 4}
	sink.RecordDetection(context.Background(), "intra-solana", result)

	var count uint64
	err := conn.QueryRow(context.Background(),
		"SELECT count(*) FROM detection_stats WHERE kernel = ?", "intra-solana",
	).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestRecordDetectionToleratesNilConn(t *testing.T) {
	sink := NewClickHouseSink(nil, nil)
	sink.RecordDetection(context.Background(), "triangular", detection.Result{})
}
