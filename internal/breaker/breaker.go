// Package breaker implements the CircuitBreaker primitive shared by the
// execution-forward path (router) and the detection path (solanaengine).
//
// Shape is grounded on the reference implementation's internal/discovery/active_detector.go
// idiom: a plain mutex-guarded struct tracking counters and an in-memory
// "already seen" style map, generalized here to failures/cooldown instead of
// spike-detection windows. No third-party circuit-breaker library
// (e.g. sony/gobreaker) appears anywhere in the retrieved pack, so this stays
// a small stdlib-only primitive — it has no feature surface those libraries
// add that the {open, failures, lastFailure, half-open} contract here
// doesn't already cover directly.
package breaker

import (
	"sync"
	"time"
)

// Config tunes the breaker's threshold and cooldown.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int
	// CooldownPeriod is how long the breaker stays open before allowing a
	// half-open probe attempt.
	CooldownPeriod time.Duration
}

// Status is the read-only snapshot exposed to callers
// (isOpen, failures, lastFailureTime, inHalfOpenState).
type Status struct {
	IsOpen          bool
	Failures        int
	LastFailureTime time.Time
	// InHalfOpenState is derived, not stored: open && cooldown has elapsed.
	// Kept derived rather than introducing a third stored state.
	InHalfOpenState bool
}

// CircuitBreaker is a closed/open/(derived)half-open failure gate.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg   Config
	now   func() time.Time
	open  bool
	fails int
	last  time.Time
}

// New creates a CircuitBreaker with the given configuration.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CooldownPeriod <= 0 {
		cfg.CooldownPeriod = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow reports whether a call should be attempted: true when closed, or when
// open but the cooldown has elapsed (a half-open probe).
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return true
	}
	return cb.now().Sub(cb.last) >= cb.cfg.CooldownPeriod
}

// IsOpen reports whether the breaker is currently open (ignoring half-open
// eligibility) — used where callers need the raw "open" state, e.g. to decide
// whether to suppress an alert.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open
}

// RecordSuccess resets the breaker to closed with zero consecutive failures.
// Returns true if this success represents a recovery (breaker was open).
func (cb *CircuitBreaker) RecordSuccess() (recovered bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	recovered = cb.open
	cb.open = false
	cb.fails = 0
	return recovered
}

// RecordFailure increments the consecutive-failure counter, opening the
// breaker if the threshold is reached. Returns true if this call is the one
// that just opened the breaker (i.e. threshold crossed on this call).
func (cb *CircuitBreaker) RecordFailure() (justOpened bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.fails++
	cb.last = cb.now()

	if !cb.open && cb.fails >= cb.cfg.FailureThreshold {
		cb.open = true
		return true
	}
	return false
}

// Status returns a snapshot of the breaker's current state.
func (cb *CircuitBreaker) Status() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	halfOpen := cb.open && cb.now().Sub(cb.last) >= cb.cfg.CooldownPeriod
	return Status{
		IsOpen:          cb.open,
		Failures:        cb.fails,
		LastFailureTime: cb.last,
		InHalfOpenState: halfOpen,
	}
}

// Reset clears all state, for tests only.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.open = false
	cb.fails = 0
	cb.last = time.Time{}
}

// withClock overrides the time source, for tests only.
func (cb *CircuitBreaker) withClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	return cb
}
