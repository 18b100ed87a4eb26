package solanaengine

import "sync"

// addressCooldown tracks the last successful pool update per address, so
// addPool can reject updates arriving within PoolUpdateCooldownMs of the
// previous one, grounded on
// internal/discovery/active_detector.go's mutex-guarded seenMints cache.
type addressCooldown struct {
	mu   sync.Mutex
	last map[string]int64
}

func newAddressCooldown() *addressCooldown {
	return &addressCooldown{last: make(map[string]int64)}
}

// Allow reports whether address may be updated at nowMs, and if so records
// nowMs as its new last-update time. The check-and-set happens atomically
// under the lock so concurrent callers can't both pass the check.
func (c *addressCooldown) Allow(address string, nowMs, cooldownMs int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.last[address]
	if ok && nowMs-last < cooldownMs {
		return false
	}
	c.last[address] = nowMs
	return true
}
