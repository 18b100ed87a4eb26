// Package router implements the OpportunityRouter: ingest, dedupe, validate,
// store, forward to the execution-request stream with retry / circuit / DLQ
// / backlog-skip, and periodic TTL cleanup.
//
// The bounded map-of-records is grounded on the reference implementation's
// internal/storage/memory/*_store.go mutex-guarded map idiom (CandidateStore
// et al.), generalized here from a single CRUD surface to the router's
// richer ingest/forward/cleanup lifecycle. The cooperative shutdown flag is
// grounded on cmd/server/main.go's graceful-shutdown pattern.
package router

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sonicx222/arbitrage-coordinator/internal/breaker"
	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream"
)

// ConsecutiveExpiredWarnThreshold is the count at which the router first
// warns about expired-on-arrival opportunities, and every 100 thereafter.
const ConsecutiveExpiredWarnThreshold = 20

// Config tunes the router's dedupe, validation, forward, and TTL behavior.
type Config struct {
	DuplicateWindowMs      int64
	MinProfitPercentage    float64
	MaxProfitPercentage    float64
	MaxOpportunities       int
	StartupGracePeriodMs   int64
	MaxRetries             int
	RetryBaseDelayMs       int64
	ExecutionRequestsStream string
	ExecutionStreamMaxLen  int64
	DLQStream              string
	DLQFallbackDir         string
	OpportunityTTLMs       int64
	PerChainTTLMs          map[string]int64
	ServiceName            string
	InstanceID             string
}

// DefaultConfig returns the router's documented defaults.
func DefaultConfig() Config {
	return Config{
		DuplicateWindowMs:       5000,
		MinProfitPercentage:     -100,
		MaxProfitPercentage:     100,
		MaxOpportunities:        10000,
		StartupGracePeriodMs:    15000,
		MaxRetries:              3,
		RetryBaseDelayMs:        10,
		ExecutionRequestsStream: "stream:execution-requests",
		ExecutionStreamMaxLen:   5000,
		DLQStream:               "stream:forwarding-dlq",
		DLQFallbackDir:          "data",
		OpportunityTTLMs:        60000,
		PerChainTTLMs: map[string]int64{
			"arbitrum": 15000,
			"optimism": 15000,
			"base":     15000,
			"zksync":   15000,
			"linea":    15000,
			"solana":   10000,
		},
		ServiceName: "opportunity-router",
		InstanceID:  "router-1",
	}
}

// Counters are cumulative, process-lifetime counts.
type Counters struct {
	TotalOpportunities  uint64
	TotalExecutions     uint64
	OpportunitiesDropped uint64
	ConsecutiveExpired  int
}

// AuditSink records forward outcomes for operational forensics. It is an
// optional, best-effort collaborator: the router must function identically
// whether or not one is configured.
type AuditSink interface {
	RecordForward(ctx context.Context, o *opportunity.Opportunity, outcome, reason string)
}

// Router is the OpportunityRouter.
type Router struct {
	cfg     Config
	log     logging.Logger
	client  stream.Client
	breaker *breaker.CircuitBreaker
	dlq     *stream.DLQFallback
	audit   AuditSink

	mu            sync.Mutex
	opportunities map[string]*opportunity.Opportunity

	counters Counters

	shuttingDown atomic.Bool
	createdAtMs  int64

	// Alerts carries operator-facing alerts over a bounded channel in place
	// of an event emitter; non-blocking sends, drop when full.
	Alerts chan Alert
}

// New constructs a Router. client may be nil, in which case forwarding is a
// permanent no-op (every opportunity is still stored).
func New(cfg Config, client stream.Client, cb *breaker.CircuitBreaker, log logging.Logger) *Router {
	if log == nil {
		log = logging.Nop{}
	}
	if cb == nil {
		cb = breaker.New(breaker.Config{})
	}
	return &Router{
		cfg:           cfg,
		log:           log,
		client:        client,
		breaker:       cb,
		dlq:           stream.NewDLQFallback(cfg.DLQFallbackDir),
		opportunities: make(map[string]*opportunity.Opportunity),
		createdAtMs:   opportunity.NowMs(),
		Alerts:        make(chan Alert, 256),
	}
}

// SetAuditSink attaches a best-effort audit sink. Not safe to call
// concurrently with ProcessOpportunity.
func (r *Router) SetAuditSink(sink AuditSink) {
	r.audit = sink
}

// Counters returns a snapshot of the router's cumulative counters.
func (r *Router) Counters() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters
}

// CircuitBreakerStatus exposes the forward-path breaker's state.
func (r *Router) CircuitBreakerStatus() breaker.Status {
	return r.breaker.Status()
}

// ResetConsecutiveExpired clears the expired-on-arrival streak counter. The
// surrounding consumer loop calls this after advancing the stream cursor to
// the tail on a backlog-skip, so the next message isn't counted against an
// already-escaped streak.
func (r *Router) ResetConsecutiveExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters.ConsecutiveExpired = 0
}

// GetOpportunities returns a snapshot of every currently stored opportunity.
func (r *Router) GetOpportunities() []opportunity.Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]opportunity.Opportunity, 0, len(r.opportunities))
	for _, o := range r.opportunities {
		out = append(out, *o)
	}
	return out
}

// Size returns the number of currently stored opportunities.
func (r *Router) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.opportunities)
}

// Shutdown marks the router as shutting down: subsequent retry iterations in
// an in-flight forward loop abort at their next check, but any in-flight
// xadd is allowed to complete. Cheap and lock-free so it never waits behind
// a forward loop's backoff sleep.
func (r *Router) Shutdown() {
	r.shuttingDown.Store(true)
}

// ProcessOpportunity ingests a raw, duck-typed wire record. It returns
// true if the opportunity was stored
// (whether or not it was ultimately forwarded), false if rejected outright.
func (r *Router) ProcessOpportunity(ctx context.Context, data opportunity.Wire, isLeader bool, traceContext map[string]string) bool {
	now := opportunity.NowMs()

	id := data["id"]
	if id == "" {
		r.log.Debug("rejecting opportunity with empty id", nil)
		return false
	}

	timestamp := now
	if ts, ok := parseWireTimestamp(data["timestamp"]); ok {
		timestamp = ts
	}

	r.mu.Lock()
	if existing, ok := r.opportunities[id]; ok {
		if abs64(existing.Timestamp-timestamp) < r.duplicateWindowMs() {
			r.mu.Unlock()
			r.log.Debug("rejecting duplicate opportunity", logging.Fields{"id": id})
			return false
		}
	}
	r.mu.Unlock()

	if raw := data["profitPercentage"]; raw != "" {
		if pct, ok := parseWireFloat(raw); ok {
			min, max := r.profitBounds()
			if pct < min {
				r.log.Warn("rejecting opportunity below min profit", logging.Fields{"id": id, "profitPercentage": pct, "reason": "below"})
				return false
			}
			if pct > max {
				r.log.Warn("rejecting opportunity above max profit", logging.Fields{"id": id, "profitPercentage": pct, "reason": "above"})
				return false
			}
		}
	}

	if raw := data["chain"]; raw != "" {
		normalized := strings.ToLower(strings.TrimSpace(raw))
		if !opportunity.CanonicalChains[normalized] {
			r.log.Warn("rejecting opportunity with unrecognized chain", logging.Fields{"id": id, "chain": raw})
			return false
		}
	}

	o := opportunity.FromWire(data, now)
	o.TokenIn = o.EffectiveTokenIn()
	o.TokenOut = o.EffectiveTokenOut()

	r.mu.Lock()
	r.opportunities[id] = &o
	r.counters.TotalOpportunities++
	r.mu.Unlock()

	if o.ExpiresAt != 0 && o.ExpiresAt < now {
		r.mu.Lock()
		r.counters.ConsecutiveExpired++
		n := r.counters.ConsecutiveExpired
		r.mu.Unlock()

		if n == ConsecutiveExpiredWarnThreshold || (n > ConsecutiveExpiredWarnThreshold && (n-ConsecutiveExpiredWarnThreshold)%100 == 0) {
			r.log.Warn("opportunity expired on arrival, consecutive streak continues", logging.Fields{"consecutiveExpired": n})
		}
		return true
	}

	r.mu.Lock()
	if r.counters.ConsecutiveExpired > 0 {
		r.log.Info("expired-on-arrival streak recovered", logging.Fields{"previousStreak": r.counters.ConsecutiveExpired})
		r.counters.ConsecutiveExpired = 0
	}
	r.mu.Unlock()

	status := o.EffectiveStatus()
	if isLeader && status == opportunity.StatusPending {
		r.forwardToExecutionEngine(ctx, &o, traceContext)
	} else {
		reason := "status_not_pending"
		if !isLeader {
			reason = "not_leader"
		}
		r.log.Debug("not forwarding opportunity", logging.Fields{"id": id, "reason": reason})
	}

	return true
}

func (r *Router) duplicateWindowMs() int64 {
	if r.cfg.DuplicateWindowMs <= 0 {
		return 5000
	}
	return r.cfg.DuplicateWindowMs
}

func (r *Router) profitBounds() (float64, float64) {
	min, max := r.cfg.MinProfitPercentage, r.cfg.MaxProfitPercentage
	if min == 0 && max == 0 {
		return -100, 100
	}
	return min, max
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func parseWireTimestamp(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, ok := parseWireFloat(s)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

func parseWireFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
