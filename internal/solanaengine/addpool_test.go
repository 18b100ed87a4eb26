package solanaengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validPoolInput(address string) AddPoolInput {
	return AddPoolInput{
		Address:    address,
		ProgramID:  "raydium-amm",
		Dex:        "raydium",
		Token0Mint: "So11111111111111111111111111111111111111112",
		Token0Sym:  "SOL",
		Token0Dec:  9,
		Token1Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Token1Sym:  "USDC",
		Token1Dec:  6,
		FeeBps:     25,
		Reserve0:   1000,
		Reserve1:   50000,
		Price:      50,
	}
}

func TestAddPoolStoresAndCountsSuccess(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	err := e.AddPool(validPoolInput("pool:sol-usdc:raydium"))
	require.NoError(t, err)
	require.EqualValues(t, 1, e.Counters().PoolsAdded)

	p, ok := e.Store().Get("pool:sol-usdc:raydium")
	require.True(t, ok)
	require.Equal(t, "SOL", p.Token0.Symbol)
}

func TestAddPoolRejectsWithinCooldown(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	in := validPoolInput("pool:sol-usdc:raydium")
	in.LastUpdated = 1000
	require.NoError(t, e.AddPool(in))

	err := e.AddPool(in)
	require.Error(t, err)
	require.EqualValues(t, 1, e.Counters().PoolsRejected)
}

func TestAddPoolRejectsInvalidFee(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	in := validPoolInput("pool:sol-usdc:raydium")
	in.FeeBps = 20000

	err := e.AddPool(in)
	require.Error(t, err)
	require.EqualValues(t, 1, e.Counters().PoolsRejected)
}

func TestAddPoolEmitsPriceUpdateOnChange(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	first := validPoolInput("pool:sol-usdc:raydium")
	first.LastUpdated = 1000
	require.NoError(t, e.AddPool(first))

	time.Sleep(PoolUpdateCooldownMs * time.Millisecond)

	second := first
	second.LastUpdated = 2000
	second.Price = 51
	require.NoError(t, e.AddPool(second))

	select {
	case update := <-e.Events().PriceUpdates:
		require.Equal(t, 50.0, update.OldPrice)
		require.Equal(t, 51.0, update.NewPrice)
	default:
		t.Fatal("expected a price update event")
	}
}

func TestRemovePoolEmitsEvent(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)
	require.NoError(t, e.AddPool(validPoolInput("pool:sol-usdc:raydium")))

	require.True(t, e.RemovePool("pool:sol-usdc:raydium"))
	require.False(t, e.RemovePool("pool:sol-usdc:raydium"))

	select {
	case addr := <-e.Events().PoolRemoved:
		require.Equal(t, "pool:sol-usdc:raydium", addr)
	default:
		t.Fatal("expected a pool-removed event")
	}
}
