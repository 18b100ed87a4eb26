package detection

import (
	"github.com/shopspring/decimal"

	"github.com/sonicx222/arbitrage-coordinator/internal/logging"
	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

// IntraDEX scans every pair key in store for a same-pair price discrepancy
// across two distinct pools.
func IntraDEX(store *pool.Store, factory *opportunity.Factory, cfg Config, log logging.Logger) Result {
	if log == nil {
		log = logging.Nop{}
	}
	start := nowMs()
	now := start

	var res Result
	threshold := cfg.thresholdFraction()

	for _, pairKey := range store.GetPairKeys() {
		candidates := freshValidPools(store.GetPoolsForPair(pairKey), now, cfg.PriceStalenessMs, &res.StalePoolsSkipped)
		if len(candidates) < 2 {
			continue
		}

		compared := 0
	pairLoop:
		for i := 0; i < len(candidates); i++ {
			for j := i + 1; j < len(candidates); j++ {
				compared++
				if compared > MaxComparisonsPerPair {
					log.Warn("intra-dex comparison bound exceeded, aborting pair", logging.Fields{
						"pairKey": pairKey,
					})
					break pairLoop
				}

				op, ok := compareIntraPools(pairKey, candidates[i], candidates[j], factory, cfg, threshold, now)
				if ok {
					res.Opportunities = append(res.Opportunities, op)
				}
			}
		}
	}

	res.LatencyMs = nowMs() - start
	return res
}

func freshValidPools(pools []pool.Pool, now, stalenessMs int64, stalePoolsSkipped *int) []pool.Pool {
	out := make([]pool.Pool, 0, len(pools))
	for _, p := range pools {
		if !p.HasValidPrice() {
			continue
		}
		if p.IsStale(now, stalenessMs) {
			*stalePoolsSkipped++
			continue
		}
		out = append(out, p)
	}
	return out
}

func compareIntraPools(pairKey string, a, b pool.Pool, factory *opportunity.Factory, cfg Config, threshold float64, now int64) (opportunity.Opportunity, bool) {
	lo, hi := a, b
	if lo.Price > hi.Price {
		lo, hi = hi, lo
	}

	grossD := decimal.NewFromFloat(hi.Price).Sub(decimal.NewFromFloat(lo.Price)).Div(decimal.NewFromFloat(lo.Price))
	feesD := decimal.NewFromFloat(feeFraction(lo.Fee)).Add(decimal.NewFromFloat(feeFraction(hi.Fee)))
	netD := grossD.Sub(feesD)

	net, _ := netD.Float64()
	if net < threshold {
		return opportunity.Opportunity{}, false
	}

	gasCost := cfg.SolanaFlatGasUsd / cfg.DefaultTradeValueUsd

	op := factory.NewIntraSolana(opportunity.IntraSolanaInput{
		Chain:            "solana",
		BuyDex:           lo.Dex,
		SellDex:          hi.Dex,
		BuyPair:          pairKey,
		SellPair:         pairKey,
		Token0:           lo.NormalizedToken0,
		Token1:           lo.NormalizedToken1,
		BuyPrice:         lo.Price,
		SellPrice:        hi.Price,
		ProfitPercentage: net * 100,
		Timestamp:        now,
		ExpiryMs:         cfg.OpportunityExpiryMs,
	})
	if op.Extra == nil {
		op.Extra = map[string]any{}
	}
	op.Extra["estimatedGasCost"] = gasCost
	op.Extra["buyPoolAddress"] = lo.Address
	op.Extra["sellPoolAddress"] = hi.Address

	return op, true
}
