// Package audit is a durable, best-effort audit trail of router forward
// outcomes, written to PostgreSQL for operational forensics. It sits off the
// correctness-critical path: a failed audit write is logged and dropped,
// never propagated to the forward path.
//
// Grounded on the reference implementation's internal/storage/postgres/postgres.go (pgx pool
// wrapper, reused directly here rather than duplicated) and candidate_store.go
// (one store per domain concern, plain SQL).
package audit

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/storage/postgres"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// Outcome labels why a forward attempt ended the way it did. Declared as
// plain strings (rather than a distinct named type) so PostgresSink directly
// satisfies router.AuditSink without a conversion at the call site.
const (
	OutcomeForwarded      = "forwarded"
	OutcomeCircuitOpen    = "circuit_open"
	OutcomeRetryExhausted = "retry_exhausted"
	OutcomeDLQ            = "dlq"
)

// Pool is the connection pool type audit writes through.
type Pool = postgres.Pool

// NewPool opens a PostgreSQL connection pool and verifies it with a ping.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	return postgres.NewPool(ctx, dsn)
}

// Migrate applies every embedded migration in lexical order. Migrations are
// expected to be idempotent (CREATE TABLE IF NOT EXISTS, etc).
func Migrate(ctx context.Context, pool *Pool) error {
	entries, err := fs.ReadDir(migrationFS, "sql")
	if err != nil {
		return fmt.Errorf("read embedded audit migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := fs.ReadFile(migrationFS, "sql/"+f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
	}
	return nil
}

// PostgresSink records forward outcomes. The zero value is not usable; build
// one with NewPostgresSink.
type PostgresSink struct {
	pool *Pool
	log  logging.Logger
}

// NewPostgresSink constructs a PostgresSink over an already-migrated pool.
func NewPostgresSink(pool *Pool, log logging.Logger) *PostgresSink {
	if log == nil {
		log = logging.Nop{}
	}
	return &PostgresSink{pool: pool, log: log}
}

// RecordForward inserts one audit row per forward attempt. Best-effort: any
// error is logged and swallowed so the caller's forward path is never
// affected by audit-sink health.
func (s *PostgresSink) RecordForward(ctx context.Context, o *opportunity.Opportunity, outcome, reason string) {
	if s == nil || s.pool == nil {
		return
	}

	query := `
		INSERT INTO forward_audit_log (
			opportunity_id, type, chain, profit_percentage, outcome, reason
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		o.ID, string(o.Type), o.Chain, o.ProfitPercentage, outcome, reason,
	)
	if err != nil {
		s.log.Warn("audit write failed", logging.Fields{
			"opportunityId": o.ID,
			"outcome":       string(outcome),
			"error":         err.Error(),
		})
	}
}
