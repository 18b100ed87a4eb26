package detection

import (
	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

// EvmPriceUpdate is one externally-observed EVM-chain price tick fed into
// the cross-chain kernel.
type EvmPriceUpdate struct {
	Chain  string
	Token0 string
	Token1 string
	Price  float64
	FeeBps int
}

// CrossChain compares a batch of EVM price updates against this engine's
// Solana pools under the same normalized pair key.
func CrossChain(store *pool.Store, factory *opportunity.Factory, updates []EvmPriceUpdate, cfg Config, log logging.Logger) Result {
	if log == nil {
		log = logging.Nop{}
	}
	start := nowMs()
	now := start

	var res Result
	threshold := cfg.thresholdFraction()

	for _, update := range updates {
		t0 := pool.NormalizeForCrossChain(update.Token0)
		t1 := pool.NormalizeForCrossChain(update.Token1)
		pairKey := pool.PairKey(t0, t1)

		solanaPools := freshValidPools(store.GetPoolsForPair(pairKey), now, cfg.PriceStalenessMs, &res.StalePoolsSkipped)
		if len(solanaPools) == 0 {
			continue
		}
		if !isFinite(update.Price) || update.Price < pool.MinValidPrice {
			continue
		}

		for _, sp := range solanaPools {
			op, ok := compareCrossChain(sp, update, factory, cfg, threshold, now)
			if ok {
				res.Opportunities = append(res.Opportunities, op)
			}
		}
	}

	res.LatencyMs = nowMs() - start
	return res
}

func compareCrossChain(solanaPool pool.Pool, update EvmPriceUpdate, factory *opportunity.Factory, cfg Config, threshold float64, now int64) (opportunity.Opportunity, bool) {
	gross := (solanaPool.Price - update.Price) / update.Price
	grossAbsPercent := abs(gross) * 100

	solanaFee := feeFraction(solanaPool.Fee)
	evmFee := feeFraction(update.FeeBps)

	gasUsd, ok := cfg.PerChainEvmGasUsd[update.Chain]
	if !ok {
		gasUsd = cfg.DefaultEvmGasUsd
	}
	gasCost := (gasUsd + cfg.SolanaTxUsd) / cfg.DefaultTradeValueUsd

	totalCosts := solanaFee + evmFee + cfg.BridgeFee + gasCost + cfg.LatencyRiskPremium
	net := grossAbsPercent/100 - totalCosts
	if net < threshold {
		return opportunity.Opportunity{}, false
	}

	direction := "buy-solana-sell-evm"
	if solanaPool.Price >= update.Price {
		direction = "buy-evm-sell-solana"
	}

	op := factory.NewCrossChain(opportunity.CrossChainInput{
		SourceChain:      "solana",
		TargetChain:      update.Chain,
		Direction:        direction,
		Token0:           solanaPool.NormalizedToken0,
		Token1:           solanaPool.NormalizedToken1,
		ProfitPercentage: net * 100,
		EstimatedGasCost: gasCost,
		Timestamp:        now,
		ExpiryMs:         cfg.OpportunityExpiryMs,
	})
	return op, true
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
