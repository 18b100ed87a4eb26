package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func makePool(address, pairKey string) Pool {
	return Pool{Address: address, PairKey: pairKey, Price: 1.0, LastUpdated: 1}
}

func TestSetIncrementsVersion(t *testing.T) {
	s := NewStore(0)
	v0 := s.GetVersion()
	s.Set(makePool("a", "x-y"))
	require.Equal(t, v0+1, s.GetVersion())
}

func TestGetReturnsStoredPool(t *testing.T) {
	s := NewStore(0)
	s.Set(makePool("a", "x-y"))
	p, ok := s.Get("a")
	require.True(t, ok)
	require.Equal(t, "a", p.Address)
}

func TestDeleteRemovesFromBothIndices(t *testing.T) {
	s := NewStore(0)
	s.Set(makePool("a", "x-y"))
	require.True(t, s.Delete("a"))
	require.False(t, s.Has("a"))
	require.Empty(t, s.GetPoolsForPair("x-y"))
}

func TestDeleteMissingReturnsFalseAndDoesNotBumpVersion(t *testing.T) {
	s := NewStore(0)
	v0 := s.GetVersion()
	require.False(t, s.Delete("missing"))
	require.Equal(t, v0, s.GetVersion())
}

func TestGetPoolsForPairReturnsAllAddressesSharingPairKey(t *testing.T) {
	s := NewStore(0)
	s.Set(makePool("a", "x-y"))
	s.Set(makePool("b", "x-y"))
	s.Set(makePool("c", "other"))

	pools := s.GetPoolsForPair("x-y")
	require.Len(t, pools, 2)
}

func TestUpdatingExistingAddressMovesAcrossPairIndexWhenPairKeyChanges(t *testing.T) {
	s := NewStore(0)
	s.Set(makePool("a", "x-y"))
	require.Len(t, s.GetPoolsForPair("x-y"), 1)

	updated := makePool("a", "x-z")
	s.Set(updated)

	require.Empty(t, s.GetPoolsForPair("x-y"))
	require.Len(t, s.GetPoolsForPair("x-z"), 1)
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	const maxSize = 3
	s := NewStore(maxSize)
	v0 := s.GetVersion()

	for i := 0; i < maxSize+1; i++ {
		s.Set(makePool(string(rune('a'+i)), "p"))
	}

	require.Equal(t, maxSize, s.Size())
	require.False(t, s.Has("a"), "first-inserted address should have been evicted")
	require.True(t, s.Has("b"))
	require.True(t, s.Has(string(rune('a' + maxSize))))
	require.Equal(t, v0+uint64(maxSize+2), s.GetVersion())
}

func TestTouchOnUpdateProtectsFromEviction(t *testing.T) {
	const maxSize = 2
	s := NewStore(maxSize)

	s.Set(makePool("a", "p"))
	s.Set(makePool("b", "p"))
	// touch "a" again so "b" becomes the least-recently-touched
	s.Set(makePool("a", "p"))
	s.Set(makePool("c", "p"))

	require.True(t, s.Has("a"))
	require.False(t, s.Has("b"))
	require.True(t, s.Has("c"))
}

func TestClearResetsStoreAndBumpsVersion(t *testing.T) {
	s := NewStore(0)
	s.Set(makePool("a", "x-y"))
	v0 := s.GetVersion()

	s.Clear()

	require.Equal(t, 0, s.Size())
	require.Equal(t, v0+1, s.GetVersion())
	require.Empty(t, s.GetPairKeys())
}

func TestHasValidPrice(t *testing.T) {
	require.True(t, Pool{Price: 1.0}.HasValidPrice())
	require.False(t, Pool{Price: 0}.HasValidPrice())
	require.False(t, Pool{Price: MinValidPrice / 10}.HasValidPrice())
}

func TestIsStale(t *testing.T) {
	p := Pool{LastUpdated: 1000}
	require.False(t, p.IsStale(1000+DefaultPriceStalenessMs, DefaultPriceStalenessMs))
	require.True(t, p.IsStale(1000+DefaultPriceStalenessMs+1, DefaultPriceStalenessMs))
	require.True(t, Pool{}.IsStale(1000, DefaultPriceStalenessMs))
}

func TestPairKeyIsSortedLexicographically(t *testing.T) {
	require.Equal(t, "SOL-USDC", PairKey("USDC", "SOL"))
	require.Equal(t, "SOL-USDC", PairKey("SOL", "USDC"))
}

func TestPruneStaleRemovesOnlyStalePools(t *testing.T) {
	s := NewStore(0)
	fresh := makePool("a", "x-y")
	fresh.LastUpdated = 10000
	stale := makePool("b", "x-z")
	stale.LastUpdated = 0
	s.Set(fresh)
	s.Set(stale)

	removed := s.PruneStale(10000, DefaultPriceStalenessMs)

	require.Equal(t, 1, removed)
	require.True(t, s.Has("a"))
	require.False(t, s.Has("b"))
}
