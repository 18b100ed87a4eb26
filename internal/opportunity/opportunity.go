// Package opportunity defines the arbitrage opportunity record, its flat
// wire representation, and the factory that constructs detector-produced
// variants.
//
// The internal/wire split is grounded on the reference implementation's internal/domain
// package: a plain struct per entity, with field comments noting storage
// semantics, generalized here to also carry an opaque passthrough map so
// fields this service doesn't recognize still survive a round trip —
// upstream detectors are treated as duck-typed producers, never a fixed
// schema this service fully owns.
package opportunity

import (
	"math"
	"time"
)

// Type enumerates the arbitrage variants a detector can produce.
type Type string

const (
	TypeSimple       Type = "simple"
	TypeIntraSolana  Type = "intra-solana"
	TypeTriangular   Type = "triangular"
	TypeCrossChain   Type = "cross-chain"
	defaultType           = TypeSimple
)

// Status tracks where an opportunity is in its execution lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusExecuting Status = "executing"
	StatusExecuted  Status = "executed"
	StatusFailed    Status = "failed"
)

// CanonicalChains is the fixed whitelist normalized chain ids must belong to.
var CanonicalChains = map[string]bool{
	"ethereum":  true,
	"bsc":       true,
	"arbitrum":  true,
	"polygon":   true,
	"optimism":  true,
	"base":      true,
	"avalanche": true,
	"fantom":    true,
	"zksync":    true,
	"linea":     true,
	"solana":    true,
}

const unknownChain = "unknown"

// Opportunity is the canonical internal record.
type Opportunity struct {
	ID      string
	Type    Type
	Chain   string
	// SourceChain/TargetChain are populated for cross-chain opportunities only.
	SourceChain string
	TargetChain string

	BuyDex  string
	SellDex string
	BuyPair string
	SellPair string

	Token0 string
	Token1 string
	// TokenIn/TokenOut mirror Token0/Token1 when not independently supplied.
	TokenIn  string
	TokenOut string
	AmountIn string

	BuyPrice         float64
	SellPrice        float64
	ProfitPercentage float64
	Confidence       float64

	Timestamp int64 // ms since epoch
	ExpiresAt int64 // ms since epoch, 0 means unset

	Status       Status
	BlockNumber  int64
	UseFlashLoan bool

	PipelineTimestamps map[string]int64

	// Extra holds any field this service does not recognize by name, so
	// forwarding stays lossless for duck-typed upstream producers.
	Extra map[string]any
}

// EffectiveTokenIn returns TokenIn, falling back to Token0 per the
// "tokenIn ?? token0" rule.
func (o Opportunity) EffectiveTokenIn() string {
	if o.TokenIn != "" {
		return o.TokenIn
	}
	return o.Token0
}

// EffectiveTokenOut returns TokenOut, falling back to Token1.
func (o Opportunity) EffectiveTokenOut() string {
	if o.TokenOut != "" {
		return o.TokenOut
	}
	return o.Token1
}

// EffectiveStatus returns Status, defaulting to pending when unset — the
// zero value of Status is "" so this makes "undefined treated as pending"
// explicit at every call site instead of baking it into the
// zero value.
func (o Opportunity) EffectiveStatus() Status {
	if o.Status == "" {
		return StatusPending
	}
	return o.Status
}

// IsFresh reports whether o has not yet passed its expiry, given now.
func (o Opportunity) IsFresh(nowMs int64) bool {
	if o.ExpiresAt == 0 {
		return true
	}
	return o.ExpiresAt >= nowMs
}

// NowMs returns the current time in milliseconds since epoch, the unit every
// timestamp field in this package uses.
func NowMs() int64 {
	return time.Now().UnixMilli()
}

func isFiniteNumber(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
