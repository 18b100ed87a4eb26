package opportunity

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIntraSolanaSetsConfidenceAndExpiry(t *testing.T) {
	f := NewFactory()
	o := f.NewIntraSolana(IntraSolanaInput{
		Chain: "solana", Token0: "SOL", Token1: "USDC",
		Timestamp: 1000, ExpiryMs: 500,
	})

	require.Equal(t, ConfidenceIntraSolana, o.Confidence)
	require.Equal(t, int64(1500), o.ExpiresAt)
	require.True(t, strings.HasPrefix(o.ID, "sol-intra-solana-"))
}

func TestNewTriangularSetsPathInExtra(t *testing.T) {
	f := NewFactory()
	o := f.NewTriangular(TriangularInput{
		Chain: "solana", Path: []string{"SOL", "USDC", "JUP", "SOL"},
		Timestamp: 1000, ExpiryMs: 500,
	})

	require.Equal(t, ConfidenceTriangular, o.Confidence)
	require.Equal(t, "SOL", o.Token0)
	require.Equal(t, "SOL", o.Token1)
	require.Equal(t, []string{"SOL", "USDC", "JUP", "SOL"}, o.Extra["path"])
}

func TestNewCrossChainMultipliesExpiryByFactor(t *testing.T) {
	f := NewFactory()
	o := f.NewCrossChain(CrossChainInput{
		SourceChain: "solana", TargetChain: "ethereum",
		Timestamp: 1000, ExpiryMs: 500,
	})

	require.Equal(t, ConfidenceCrossChain, o.Confidence)
	require.Equal(t, int64(1000+500*DefaultCrossChainExpiryFactor), o.ExpiresAt)
	require.Equal(t, "solana", o.Chain)
	require.Equal(t, "ethereum", o.TargetChain)
}

func TestIDsAreUniqueAndOrderedByCounter(t *testing.T) {
	f := NewFactory()
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		o := f.NewIntraSolana(IntraSolanaInput{Chain: "solana", Timestamp: 1, ExpiryMs: 1})
		require.False(t, ids[o.ID], "id %s generated twice", o.ID)
		require.True(t, strings.HasSuffix(o.ID, "-"+strconv.FormatUint(uint64(i+1), 36)), "id %s out of counter order", o.ID)
		ids[o.ID] = true
	}
}

func TestDifferentFactoriesHaveDifferentProcessPrefixes(t *testing.T) {
	f1 := NewFactory()
	f2 := NewFactory()
	require.NotEqual(t, f1.processPrefix, f2.processPrefix)
}
