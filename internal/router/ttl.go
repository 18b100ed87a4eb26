package router

import (
	"container/heap"

	"github.com/sonicx222/arbitrage-coordinator/internal/opportunity"
)

// CleanupExpiredOpportunities removes expired entries and, if the store is
// still over capacity afterward, evicts the oldest-by-timestamp entries down
// to MaxOpportunities using a bounded-k max-heap. Returns the total number
// removed.
func (r *Router) CleanupExpiredOpportunities() int {
	now := opportunity.NowMs()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0

	// Phase 1+2: mark and delete expired entries.
	for id, o := range r.opportunities {
		if r.isExpiredLocked(o, now) {
			delete(r.opportunities, id)
			removed++
		}
	}

	// Phase 3: bounded-k heap eviction of the oldest remaining entries when
	// still over capacity.
	max := r.maxOpportunities()
	if max > 0 && len(r.opportunities) > max {
		k := len(r.opportunities) - max
		victims := oldestK(r.opportunities, k)
		for _, id := range victims {
			delete(r.opportunities, id)
			removed++
		}
	}

	return removed
}

func (r *Router) isExpiredLocked(o *opportunity.Opportunity, now int64) bool {
	if o.ExpiresAt != 0 {
		return o.ExpiresAt < now
	}
	return now-o.Timestamp > r.ttlForChain(o.Chain)
}

func (r *Router) ttlForChain(chain string) int64 {
	if ttl, ok := r.cfg.PerChainTTLMs[chain]; ok {
		return ttl
	}
	if r.cfg.OpportunityTTLMs > 0 {
		return r.cfg.OpportunityTTLMs
	}
	return 60000
}

func (r *Router) maxOpportunities() int {
	return r.cfg.MaxOpportunities
}

// entryHeap is a max-heap over timestamp, used to keep the k smallest
// timestamps seen (classic bounded-k selection: O(n log k), O(k) memory).
type heapEntry struct {
	id        string
	timestamp int64
}

type entryHeap []heapEntry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].timestamp > h[j].timestamp } // max-heap
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x interface{}) { *h = append(*h, x.(heapEntry)) }
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// oldestK returns the ids of the k entries with the smallest timestamp,
// using a size-bounded max-heap so memory stays O(k) regardless of map size.
func oldestK(entries map[string]*opportunity.Opportunity, k int) []string {
	if k <= 0 {
		return nil
	}
	h := &entryHeap{}
	heap.Init(h)
	for id, o := range entries {
		if h.Len() < k {
			heap.Push(h, heapEntry{id: id, timestamp: o.Timestamp})
			continue
		}
		if o.Timestamp < (*h)[0].timestamp {
			heap.Pop(h)
			heap.Push(h, heapEntry{id: id, timestamp: o.Timestamp})
		}
	}

	ids := make([]string, 0, h.Len())
	for _, e := range *h {
		ids = append(ids, e.id)
	}
	return ids
}
