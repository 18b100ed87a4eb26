// Package solanaengine implements the SolanaArbitrageEngine:
// it owns the pool store, the opportunity factory, a detection circuit
// breaker, and the publisher, and exposes pool ingestion plus on-demand
// detection.
//
// Grounded on the reference implementation's internal/solana/ws_client.go for the
// subscribe/reconnect adapter shape (repurposed here from log-subscriptions
// to pool/price events) and internal/discovery/active_detector.go for the
// per-address cooldown-map idiom.
package solanaengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sonicx222/arbitrage-coordinator/internal/breaker"
	"github.com/sonicx222/arbitrage-coordinator/internal/detection"
	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

// PoolUpdateCooldownMs bounds how often a single pool address may be
// upserted.
const PoolUpdateCooldownMs = 100

// Publisher is the narrow surface the engine needs from the opportunity
// publisher; satisfied by *publisher.Publisher.
type Publisher interface {
	Publish(ctx context.Context, op opportunity.Opportunity)
}

// Config tunes the engine's detection and validation behavior.
type Config struct {
	Chain                   string
	Detection               detection.Config
	Breaker                 breaker.Config
	StrictAddressValidation bool
	NormalizationCacheSize  int
	LatencyWindowSize       int
}

// DefaultConfig returns sensible engine defaults, chain set to "solana".
func DefaultConfig() Config {
	return Config{
		Chain:                  "solana",
		Detection:              detection.DefaultConfig(),
		Breaker:                breaker.Config{FailureThreshold: 5, CooldownPeriod: 0},
		NormalizationCacheSize: 10000,
		LatencyWindowSize:      100,
	}
}

// Counters are cumulative, process-lifetime counts.
type Counters struct {
	PoolsAdded          uint64
	PoolsRejected       uint64
	PriceUpdatesEmitted uint64
	DetectionsRun       uint64
	DetectionErrors     uint64
}

// engineCounters holds the live, concurrently-written counters backing
// Counters. RunAll invokes the three detection kernels from separate errgroup
// goroutines, so every field here must be atomic rather than plain uint64.
type engineCounters struct {
	poolsAdded          atomic.Uint64
	poolsRejected       atomic.Uint64
	priceUpdatesEmitted atomic.Uint64
	detectionsRun       atomic.Uint64
	detectionErrors     atomic.Uint64
}

// AnalyticsSink records detection-kernel statistics for longitudinal
// dashboards. Optional, best-effort: the engine must behave identically
// whether or not one is configured.
type AnalyticsSink interface {
	RecordDetection(ctx context.Context, kernel string, result detection.Result)
}

// Engine is the SolanaArbitrageEngine.
type Engine struct {
	cfg       Config
	store     *pool.Store
	factory   *opportunity.Factory
	normCache *stringLRU
	cooldown  *addressCooldown
	breaker   *breaker.CircuitBreaker
	publisher Publisher
	analytics AnalyticsSink
	log       logging.Logger

	latency *latencyWindow

	counters engineCounters

	events *eventChannels

	subMu        sync.Mutex
	activeSource PriceSource
	activeCancel context.CancelFunc
}

// New constructs an Engine. publisher may be nil, in which case detected
// opportunities are returned to the caller but never published.
func New(cfg Config, publisher Publisher, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop{}
	}
	if cfg.Chain == "" {
		cfg.Chain = "solana"
	}
	return &Engine{
		cfg:       cfg,
		store:     pool.NewStore(0),
		factory:   opportunity.NewFactory(),
		normCache: newStringLRU(cfg.NormalizationCacheSize),
		cooldown:  newAddressCooldown(),
		breaker:   breaker.New(cfg.Breaker),
		publisher: publisher,
		log:       log,
		latency:   newLatencyWindow(cfg.LatencyWindowSize),
		events:    newEventChannels(eventChannelBuffer),
	}
}

// Events returns the engine's bounded event channels, one buffered channel
// per event kind in place of a dynamic event emitter. Channels are created
// once at construction; there is no dynamic subscribe/unsubscribe.
func (e *Engine) Events() *eventChannels { return e.events }

// Store exposes the underlying pool store, for inspection and for the
// cleanup scheduler's stale-pool pruning.
func (e *Engine) Store() *pool.Store { return e.store }

// Counters returns a snapshot of the engine's cumulative counters.
func (e *Engine) Counters() Counters {
	return Counters{
		PoolsAdded:          e.counters.poolsAdded.Load(),
		PoolsRejected:       e.counters.poolsRejected.Load(),
		PriceUpdatesEmitted: e.counters.priceUpdatesEmitted.Load(),
		DetectionsRun:       e.counters.detectionsRun.Load(),
		DetectionErrors:     e.counters.detectionErrors.Load(),
	}
}

// CircuitBreakerStatus exposes the detection-path breaker's state.
func (e *Engine) CircuitBreakerStatus() breaker.Status {
	return e.breaker.Status()
}

// SetAnalyticsSink attaches a best-effort analytics sink. Not safe to call
// concurrently with the Detect* methods.
func (e *Engine) SetAnalyticsSink(sink AnalyticsSink) {
	e.analytics = sink
}

var errDetectionDisabled = errors.New("solanaengine: detection disabled by config")

// runDetection gates a detection kernel behind the circuit breaker: an open
// breaker makes the call a no-op returning an empty result; any panic from
// the kernel is recovered, recorded as a breaker failure, and re-raised as
// an error to the caller.
func (e *Engine) runDetection(name string, fn func() detection.Result) (result detection.Result, err error) {
	if !e.breaker.Allow() {
		return detection.Result{}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			e.breaker.RecordFailure()
			e.counters.detectionErrors.Add(1)
			err = fmt.Errorf("solanaengine: %s detection panicked: %v", name, r)
			e.log.Error("detection kernel panicked", logging.Fields{"kernel": name, "panic": r})
		}
	}()

	result = fn()
	e.breaker.RecordSuccess()
	e.counters.detectionsRun.Add(1)
	e.latency.Record(result.LatencyMs)
	if e.analytics != nil {
		e.analytics.RecordDetection(context.Background(), name, result)
	}
	return result, nil
}

// DetectIntraDEX runs the intra-DEX kernel against the current pool snapshot.
func (e *Engine) DetectIntraDEX() (detection.Result, error) {
	return e.runDetection("intra-dex", func() detection.Result {
		return detection.IntraDEX(e.store, e.factory, e.cfg.Detection, e.log)
	})
}

// DetectTriangular runs the triangular kernel, if enabled in config.
func (e *Engine) DetectTriangular() (detection.Result, error) {
	if !e.cfg.Detection.TriangularEnabled {
		return detection.Result{}, nil
	}
	return e.runDetection("triangular", func() detection.Result {
		return detection.Triangular(e.store, e.factory, e.cfg.Detection, e.log)
	})
}

// DetectCrossChain runs the cross-chain kernel against updates, if enabled.
func (e *Engine) DetectCrossChain(updates []detection.EvmPriceUpdate) (detection.Result, error) {
	if !e.cfg.Detection.CrossChainEnabled {
		return detection.Result{}, nil
	}
	return e.runDetection("cross-chain", func() detection.Result {
		return detection.CrossChain(e.store, e.factory, updates, e.cfg.Detection, e.log)
	})
}

// RunAll executes every enabled detection kernel concurrently via errgroup
// (grounded on the reference implementation's go.mod dependency on golang.org/x/sync,
// previously only an indirect test-tooling transitive, now wired directly
// here), publishes every opportunity found, and returns the combined result
// set. A kernel error is returned once all kernels have finished.
func (e *Engine) RunAll(ctx context.Context, evmUpdates []detection.EvmPriceUpdate) ([]opportunity.Opportunity, error) {
	var intra, triangular, crossChain detection.Result
	var intraErr, triErr, crossErr error

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		intra, intraErr = e.DetectIntraDEX()
		return intraErr
	})
	g.Go(func() error {
		triangular, triErr = e.DetectTriangular()
		return triErr
	})
	g.Go(func() error {
		crossChain, crossErr = e.DetectCrossChain(evmUpdates)
		return crossErr
	})

	waitErr := g.Wait()

	all := make([]opportunity.Opportunity, 0, len(intra.Opportunities)+len(triangular.Opportunities)+len(crossChain.Opportunities))
	all = append(all, intra.Opportunities...)
	all = append(all, triangular.Opportunities...)
	all = append(all, crossChain.Opportunities...)

	if e.publisher != nil {
		for _, op := range all {
			e.publisher.Publish(ctx, op)
		}
	}

	return all, waitErr
}
