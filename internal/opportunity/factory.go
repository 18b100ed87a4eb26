package opportunity

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Confidence values are fixed per type.
const (
	ConfidenceIntraSolana = 0.85
	ConfidenceTriangular  = 0.75
	ConfidenceCrossChain  = 0.60
)

// DefaultCrossChainExpiryFactor multiplies expiryMs for cross-chain
// opportunities, since bridge latency dominates their settlement time.
const DefaultCrossChainExpiryFactor = 10

// Factory builds detector-produced opportunity variants with unique,
// monotonically ordered ids. Grounded on the reference implementation's internal/idhash
// deterministic-id technique, generalized to a process-prefix + counter
// scheme since an ordered counter is required here, not a content hash.
type Factory struct {
	processPrefix string
	counter       uint64
}

// NewFactory creates a Factory with a fresh process-unique prefix.
func NewFactory() *Factory {
	return &Factory{processPrefix: shortProcessPrefix()}
}

func shortProcessPrefix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// nextID returns the next id of the form sol-<type>-<process-prefix>-<base36-counter>.
func (f *Factory) nextID(t Type) string {
	n := atomic.AddUint64(&f.counter, 1)
	return fmt.Sprintf("sol-%s-%s-%s", t, f.processPrefix, strconv.FormatUint(n, 36))
}

// IntraSolanaInput carries the fields needed to build an intra-DEX opportunity.
type IntraSolanaInput struct {
	Chain            string
	BuyDex, SellDex  string
	BuyPair, SellPair string
	Token0, Token1   string
	BuyPrice, SellPrice float64
	ProfitPercentage float64
	AmountIn         string
	Timestamp        int64
	ExpiryMs         int64
}

// NewIntraSolana builds an intra-DEX opportunity.
func (f *Factory) NewIntraSolana(in IntraSolanaInput) Opportunity {
	ts := in.Timestamp
	if ts == 0 {
		ts = NowMs()
	}
	return Opportunity{
		ID:               f.nextID(TypeIntraSolana),
		Type:             TypeIntraSolana,
		Chain:            in.Chain,
		BuyDex:           in.BuyDex,
		SellDex:          in.SellDex,
		BuyPair:          in.BuyPair,
		SellPair:         in.SellPair,
		Token0:           in.Token0,
		Token1:           in.Token1,
		BuyPrice:         in.BuyPrice,
		SellPrice:        in.SellPrice,
		ProfitPercentage: in.ProfitPercentage,
		Confidence:       ConfidenceIntraSolana,
		Timestamp:        ts,
		ExpiresAt:        ts + in.ExpiryMs,
		Status:           StatusPending,
		AmountIn:         in.AmountIn,
	}
}

// TriangularInput carries the fields needed to build a triangular opportunity.
type TriangularInput struct {
	Chain            string
	Path             []string // token symbols visited in order, starting with the start token; Token0/Token1 come from its first and last entries
	ProfitPercentage float64
	AmountIn         string
	Timestamp        int64
	ExpiryMs         int64
}

// NewTriangular builds a triangular-path opportunity.
func (f *Factory) NewTriangular(in TriangularInput) Opportunity {
	ts := in.Timestamp
	if ts == 0 {
		ts = NowMs()
	}
	o := Opportunity{
		ID:               f.nextID(TypeTriangular),
		Type:             TypeTriangular,
		Chain:            in.Chain,
		ProfitPercentage: in.ProfitPercentage,
		Confidence:       ConfidenceTriangular,
		Timestamp:        ts,
		ExpiresAt:        ts + in.ExpiryMs,
		Status:           StatusPending,
		AmountIn:         in.AmountIn,
	}
	if len(in.Path) > 0 {
		o.Token0 = in.Path[0]
		o.Token1 = in.Path[len(in.Path)-1]
		o.Extra = map[string]any{"path": append([]string(nil), in.Path...)}
	}
	return o
}

// CrossChainInput carries the fields needed to build a cross-chain opportunity.
type CrossChainInput struct {
	SourceChain, TargetChain string
	Direction                string // "buy-solana-sell-evm" or the inverse
	Token0, Token1           string
	ProfitPercentage         float64
	EstimatedGasCost         float64
	AmountIn                 string
	Timestamp                int64
	ExpiryMs                 int64
	ExpiryFactor             int64
}

// NewCrossChain builds a cross-chain opportunity. Expiry is multiplied by
// ExpiryFactor (default
// DefaultCrossChainExpiryFactor) since bridge settlement latency dominates.
func (f *Factory) NewCrossChain(in CrossChainInput) Opportunity {
	ts := in.Timestamp
	if ts == 0 {
		ts = NowMs()
	}
	factor := in.ExpiryFactor
	if factor <= 0 {
		factor = DefaultCrossChainExpiryFactor
	}
	return Opportunity{
		ID:               f.nextID(TypeCrossChain),
		Type:             TypeCrossChain,
		Chain:            in.SourceChain,
		SourceChain:      in.SourceChain,
		TargetChain:      in.TargetChain,
		Token0:           in.Token0,
		Token1:           in.Token1,
		ProfitPercentage: in.ProfitPercentage,
		Confidence:       ConfidenceCrossChain,
		Timestamp:        ts,
		ExpiresAt:        ts + in.ExpiryMs*factor,
		Status:           StatusPending,
		AmountIn:         in.AmountIn,
		Extra: map[string]any{
			"direction":        in.Direction,
			"estimatedGasCost": in.EstimatedGasCost,
		},
	}
}
