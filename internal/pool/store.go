package pool

import (
	"container/list"
	"sync"
)

// DefaultMaxSize is the default pool-store capacity before LRU eviction
// kicks in.
const DefaultMaxSize = 50000

// Store is the VersionedPoolStore: address -> pool, a
// secondary pairKey -> set-of-addresses index, insertion/touch order for LRU
// eviction, and a monotonically increasing version counter.
type Store struct {
	mu sync.Mutex

	byAddress map[string]Pool
	byPair    map[string]map[string]struct{}

	order    *list.List               // front = least-recently-touched, back = most-recently-touched
	elements map[string]*list.Element // address -> its node in order

	version uint64
	maxSize int
}

// NewStore creates an empty Store. maxSize <= 0 uses DefaultMaxSize.
func NewStore(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		byAddress: make(map[string]Pool),
		byPair:    make(map[string]map[string]struct{}),
		order:     list.New(),
		elements:  make(map[string]*list.Element),
		maxSize:   maxSize,
	}
}

// Set upserts p, evicting the least-recently-touched entry first if this is
// a new address at capacity. Always increments the version and refreshes LRU
// touch order.
func (s *Store) Set(p Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAddress[p.Address]; ok {
		if existing.PairKey != p.PairKey {
			s.removeFromPairIndex(existing.PairKey, p.Address)
			s.addToPairIndex(p.PairKey, p.Address)
		}
		s.byAddress[p.Address] = p
		s.touch(p.Address)
		s.version++
		return
	}

	if len(s.byAddress) >= s.maxSize {
		s.evictOldest()
	}

	s.byAddress[p.Address] = p
	s.addToPairIndex(p.PairKey, p.Address)
	elem := s.order.PushBack(p.Address)
	s.elements[p.Address] = elem
	s.version++
}

// evictOldest removes the least-recently-touched entry as its own
// version-incrementing operation, distinct from the insert that triggered
// it, so an eviction bumps the version twice in total.
func (s *Store) evictOldest() {
	oldest := s.order.Front()
	if oldest == nil {
		return
	}
	address := oldest.Value.(string)
	if p, ok := s.byAddress[address]; ok {
		s.removeFromPairIndex(p.PairKey, address)
	}
	delete(s.byAddress, address)
	delete(s.elements, address)
	s.order.Remove(oldest)
	s.version++
}

func (s *Store) touch(address string) {
	if elem, ok := s.elements[address]; ok {
		s.order.MoveToBack(elem)
	}
}

func (s *Store) addToPairIndex(pairKey, address string) {
	set, ok := s.byPair[pairKey]
	if !ok {
		set = make(map[string]struct{})
		s.byPair[pairKey] = set
	}
	set[address] = struct{}{}
}

func (s *Store) removeFromPairIndex(pairKey, address string) {
	set, ok := s.byPair[pairKey]
	if !ok {
		return
	}
	delete(set, address)
	if len(set) == 0 {
		delete(s.byPair, pairKey)
	}
}

// Get returns a copy of the pool at address, if present.
func (s *Store) Get(address string) (Pool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byAddress[address]
	return p, ok
}

// Has reports whether address is stored.
func (s *Store) Has(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byAddress[address]
	return ok
}

// Delete removes address, returning whether it was present. Increments the
// version only when a removal actually happened.
func (s *Store) Delete(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byAddress[address]
	if !ok {
		return false
	}
	s.removeFromPairIndex(p.PairKey, address)
	delete(s.byAddress, address)
	if elem, ok := s.elements[address]; ok {
		s.order.Remove(elem)
		delete(s.elements, address)
	}
	s.version++
	return true
}

// Size returns the number of stored pools.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byAddress)
}

// GetVersion returns the current monotonic version counter.
func (s *Store) GetVersion() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// GetPoolsForPair returns a snapshot of pools under pairKey, order unspecified.
func (s *Store) GetPoolsForPair(pairKey string) []Pool {
	s.mu.Lock()
	defer s.mu.Unlock()

	addresses, ok := s.byPair[pairKey]
	if !ok {
		return nil
	}
	out := make([]Pool, 0, len(addresses))
	for addr := range addresses {
		if p, ok := s.byAddress[addr]; ok {
			out = append(out, p)
		}
	}
	return out
}

// GetPairKeys returns a snapshot of all known pair keys.
func (s *Store) GetPairKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.byPair))
	for k := range s.byPair {
		keys = append(keys, k)
	}
	return keys
}

// GetAllPools returns a snapshot of every stored pool.
func (s *Store) GetAllPools() []Pool {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Pool, 0, len(s.byAddress))
	for _, p := range s.byAddress {
		out = append(out, p)
	}
	return out
}

// PoolsIterator calls fn for every stored pool, stopping early if fn returns
// false. It operates over a snapshot taken under the lock, so fn may safely
// call back into the store without deadlocking.
func (s *Store) PoolsIterator(fn func(Pool) bool) {
	for _, p := range s.GetAllPools() {
		if !fn(p) {
			return
		}
	}
}

// PruneStale removes every pool whose price is stale relative to nowMs and
// stalenessMs, returning the number removed. Used by the cleanup scheduler
// to keep the store from accumulating dead pools a detection kernel will
// skip anyway.
func (s *Store) PruneStale(nowMs, stalenessMs int64) int {
	removed := 0
	for _, p := range s.GetAllPools() {
		if p.IsStale(nowMs, stalenessMs) && s.Delete(p.Address) {
			removed++
		}
	}
	return removed
}

// Clear removes every pool and resets the indices, incrementing the version.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byAddress = make(map[string]Pool)
	s.byPair = make(map[string]map[string]struct{})
	s.order = list.New()
	s.elements = make(map[string]*list.Element)
	s.version++
}
