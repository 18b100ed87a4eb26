package solanaengine

import (
	"fmt"

	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
	"github.com/sonicx222/arbitrage-coordinator/internal/pool"
)

// AddPoolInput carries the raw, not-yet-validated fields a pool update
// arrives with.
type AddPoolInput struct {
	Address     string
	ProgramID   string
	Dex         string
	Token0Mint  string
	Token0Sym   string
	Token0Dec   int
	Token1Mint  string
	Token1Sym   string
	Token1Dec   int
	FeeBps      int
	Reserve0    float64
	Reserve1    float64
	Price       float64
	LastUpdated int64 // 0 means "use now"
}

// AddPool runs the eight-step ingestion pipeline. It returns an error
// describing the first validation failure encountered, or nil on success.
func (e *Engine) AddPool(in AddPoolInput) error {
	now := opportunity.NowMs()

	// 1. Rate-limit.
	if !e.cooldown.Allow(in.Address, now, PoolUpdateCooldownMs) {
		e.counters.poolsRejected.Add(1)
		return fmt.Errorf("solanaengine: pool %q updated within cooldown window", in.Address)
	}

	// 2. Address format.
	if !pool.ValidateAddress(in.Address, e.cfg.StrictAddressValidation) {
		e.counters.poolsRejected.Add(1)
		return fmt.Errorf("solanaengine: pool %q has invalid address format", in.Address)
	}

	// 3. Fee.
	if !pool.ValidateFee(in.FeeBps) {
		e.counters.poolsRejected.Add(1)
		return fmt.Errorf("solanaengine: pool %q has invalid fee %d bps", in.Address, in.FeeBps)
	}

	// 4. Sanitize symbols.
	sym0 := pool.SanitizeSymbol(in.Token0Sym)
	sym1 := pool.SanitizeSymbol(in.Token1Sym)
	if sym0 == "" || sym1 == "" {
		e.counters.poolsRejected.Add(1)
		return fmt.Errorf("solanaengine: pool %q has empty token symbol after sanitization", in.Address)
	}

	// 5. Normalize, via the shared cache.
	norm0 := e.normalize(sym0)
	norm1 := e.normalize(sym1)

	// 6. Pair key.
	pairKey := pool.PairKey(norm0, norm1)

	// 7. Fill lastUpdated, persist.
	lastUpdated := in.LastUpdated
	if lastUpdated == 0 {
		lastUpdated = now
	}

	var oldPrice float64
	var hadPrior bool
	if existing, ok := e.store.Get(in.Address); ok {
		oldPrice = existing.Price
		hadPrior = true
	}

	p := pool.Pool{
		Address:          in.Address,
		ProgramID:        in.ProgramID,
		Dex:              in.Dex,
		Token0:           pool.TokenInfo{Mint: in.Token0Mint, Symbol: sym0, Decimals: in.Token0Dec},
		Token1:           pool.TokenInfo{Mint: in.Token1Mint, Symbol: sym1, Decimals: in.Token1Dec},
		Fee:              in.FeeBps,
		Reserve0:         in.Reserve0,
		Reserve1:         in.Reserve1,
		Price:            in.Price,
		LastUpdated:      lastUpdated,
		NormalizedToken0: norm0,
		NormalizedToken1: norm1,
		PairKey:          pairKey,
	}
	e.store.Set(p)
	e.counters.poolsAdded.Add(1)
	e.events.emitPoolUpdate(p)

	// 8. Emit price-update when a prior price differs.
	if hadPrior && oldPrice != in.Price {
		e.events.emitPriceUpdate(PriceUpdate{
			Address:  in.Address,
			PairKey:  pairKey,
			OldPrice: oldPrice,
			NewPrice: in.Price,
		})
		e.counters.priceUpdatesEmitted.Add(1)
	}

	return nil
}

// RemovePool deletes address from the pool store, emitting PoolRemoved if it
// was present.
func (e *Engine) RemovePool(address string) bool {
	removed := e.store.Delete(address)
	if removed {
		e.events.emitPoolRemoved(address)
	}
	return removed
}

func (e *Engine) normalize(symbol string) string {
	if cached, ok := e.normCache.Get(symbol); ok {
		return cached
	}
	normalized := pool.NormalizeForPricing(symbol)
	e.normCache.Set(symbol, normalized)
	return normalized
}
