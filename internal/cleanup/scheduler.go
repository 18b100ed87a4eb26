// Package cleanup runs the router's expiry sweep and the pool store's
// staleness prune on their own ticker, separate from the request-processing
// path, so a slow sweep never blocks ingest or forward.
//
// Grounded on the reference implementation's cmd/server/main.go runPipelineScheduler /
// runReportScheduler shape: run once immediately, then loop on a
// time.Ticker until ctx is canceled.
package cleanup

import (
	"context"
	"time"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

// DefaultInterval is how often the scheduler sweeps, absent config.
const DefaultInterval = 30 * time.Second

// RouterCleaner is the narrow surface the scheduler needs from the router.
type RouterCleaner interface {
	CleanupExpiredOpportunities() int
}

// Config tunes the scheduler's cadence and pool-staleness threshold.
type Config struct {
	Interval            time.Duration
	PoolStalenessMs     int64
}

// DefaultConfig returns the scheduler's documented defaults.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, PoolStalenessMs: pool.DefaultPriceStalenessMs}
}

// Scheduler periodically invokes router cleanup and pool-store TTL pruning.
type Scheduler struct {
	cfg    Config
	router RouterCleaner
	store  *pool.Store
	log    logging.Logger
}

// New constructs a Scheduler. store may be nil to skip pool pruning (e.g. in
// a deployment with no local SolanaArbitrageEngine).
func New(cfg Config, router RouterCleaner, store *pool.Store, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PoolStalenessMs <= 0 {
		cfg.PoolStalenessMs = pool.DefaultPriceStalenessMs
	}
	return &Scheduler{cfg: cfg, router: router, store: store, log: log}
}

// Run blocks, sweeping immediately and then on every tick, until ctx is
// canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("starting cleanup scheduler", logging.Fields{"interval": s.cfg.Interval.String()})
	s.sweep()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Scheduler) sweep() {
	if s.router != nil {
		removed := s.router.CleanupExpiredOpportunities()
		if removed > 0 {
			s.log.Debug("cleanup swept expired opportunities", logging.Fields{"removed": removed})
		}
	}
	if s.store != nil {
		removed := s.store.PruneStale(nowMs(), s.cfg.PoolStalenessMs)
		if removed > 0 {
			s.log.Debug("cleanup pruned stale pools", logging.Fields{"removed": removed})
		}
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
