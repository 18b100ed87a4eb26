// Package publisher implements the OpportunityPublisher: it writes
// engine-detected opportunities onto the shared opportunity stream with
// bounded retry and a self-disabling cooldown.
//
// The teacher has no direct analogue to a publish-with-backoff loop; the
// retry shape here is grounded on github.com/cenkalti/backoff/v4 (a teacher
// dependency, previously only indirect via the ClickHouse driver's retry
// internals, promoted to direct use here) the way other pack examples wrap
// retryable calls to an external service.
package publisher

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/stream"
	"github.com/sonicx222/arbitrage-coordinator/internal/tracectx"
)

const (
	// MaxAttempts bounds the publish retry loop.
	MaxAttempts = 3
	// BaseDelay is the starting exponential backoff delay.
	BaseDelay = 50 * time.Millisecond
	// FailureThreshold self-disables the publisher after this many
	// consecutive total failures.
	FailureThreshold = 10
	// CooldownPeriod is how long the publisher stays disabled before a
	// single probe attempt resets it.
	CooldownPeriod = 60 * time.Second
)

// Config tunes the publisher.
type Config struct {
	StreamName  string // default "stream:opportunities"
	ServiceName string // used to stamp trace context
}

// Publisher is the OpportunityPublisher.
type Publisher struct {
	client stream.Client
	cfg    Config
	log    logging.Logger

	mu                  sync.Mutex
	consecutiveFailures int
	isDisabled          bool
	disabledAt          time.Time

	// RedisPublishingDisabled is emitted when the publisher self-disables,
	// a bounded buffered channel standing in for an event emitter.
	RedisPublishingDisabled chan struct{}
}

// New constructs a Publisher. client may be nil in tests exercising only the
// disable/cooldown bookkeeping.
func New(client stream.Client, cfg Config, log logging.Logger) *Publisher {
	if log == nil {
		log = logging.Nop{}
	}
	if cfg.StreamName == "" {
		cfg.StreamName = "stream:opportunities"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "solana-arbitrage-engine"
	}
	return &Publisher{
		client:                  client,
		cfg:                     cfg,
		log:                     log,
		RedisPublishingDisabled: make(chan struct{}, 1),
	}
}

// Publish serializes op to its wire form, merges a trace context, and
// attempts up to MaxAttempts publishes with exponential backoff. While
// disabled, Publish is a no-op until CooldownPeriod elapses.
func (p *Publisher) Publish(ctx context.Context, op opportunity.Opportunity) {
	if p.client == nil {
		p.log.Warn("publisher has no stream client configured", nil)
		return
	}

	if !p.shouldAttempt() {
		return
	}

	wire := op.ToWire(opportunity.NowMs())
	trace := tracectx.New(p.cfg.ServiceName)
	trace.Merge(wire)

	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = BaseDelay
	retrier := backoff.WithMaxRetries(boff, uint64(MaxAttempts-1))

	err := backoff.Retry(func() error {
		_, err := p.client.XAddWithLimit(ctx, p.cfg.StreamName, wire)
		return err
	}, retrier)

	if err == nil {
		p.recordSuccess()
		return
	}
	p.recordFailure()
	p.log.Error("failed to publish opportunity after retries", logging.Fields{
		"opportunityId": op.ID, "error": err.Error(),
	})
}

// shouldAttempt checks (and, on cooldown expiry, resets) the disabled state.
func (p *Publisher) shouldAttempt() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isDisabled {
		return true
	}
	if time.Since(p.disabledAt) < CooldownPeriod {
		return false
	}

	// Cooldown elapsed: reset state now and allow the attempt. A failed probe
	// counts as the first failure of a fresh run; the publisher disables
	// again only after FailureThreshold consecutive failures.
	p.isDisabled = false
	p.consecutiveFailures = 0
	return true
}

func (p *Publisher) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consecutiveFailures = 0
}

func (p *Publisher) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.consecutiveFailures++
	if p.consecutiveFailures >= FailureThreshold && !p.isDisabled {
		p.isDisabled = true
		p.disabledAt = time.Now()
		select {
		case p.RedisPublishingDisabled <- struct{}{}:
		default:
		}
	}
}

// IsDisabled reports whether the publisher is currently self-disabled.
func (p *Publisher) IsDisabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isDisabled
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (p *Publisher) ConsecutiveFailures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consecutiveFailures
}
