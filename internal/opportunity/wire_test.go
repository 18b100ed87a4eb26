package opportunity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToWireAppliesOrDefaultForTypeChainTimestamp(t *testing.T) {
	o := Opportunity{ID: "o1"}
	w := o.ToWire(1234)

	require.Equal(t, string(TypeSimple), w[keyType])
	require.Equal(t, unknownChain, w[keyChain])
	require.Equal(t, "1234", w[keyTimestamp])
}

func TestToWirePreservesExplicitValues(t *testing.T) {
	o := Opportunity{ID: "o1", Type: TypeIntraSolana, Chain: "ethereum", Timestamp: 999}
	w := o.ToWire(1234)

	require.Equal(t, string(TypeIntraSolana), w[keyType])
	require.Equal(t, "ethereum", w[keyChain])
	require.Equal(t, "999", w[keyTimestamp])
}

func TestToWireNullishDefaultPreservesEmptyString(t *testing.T) {
	o := Opportunity{ID: "o1", BuyDex: ""}
	w := o.ToWire(1234)

	require.Equal(t, "", w[keyBuyDex])
}

func TestToWireTokenInOutFallsBackToToken0Token1(t *testing.T) {
	o := Opportunity{ID: "o1", Token0: "SOL", Token1: "USDC"}
	w := o.ToWire(1234)

	require.Equal(t, "SOL", w[keyTokenIn])
	require.Equal(t, "USDC", w[keyTokenOut])
}

func TestToWireTokenInOutPrefersExplicit(t *testing.T) {
	o := Opportunity{ID: "o1", Token0: "SOL", Token1: "USDC", TokenIn: "WSOL", TokenOut: "USDC.e"}
	w := o.ToWire(1234)

	require.Equal(t, "WSOL", w[keyTokenIn])
	require.Equal(t, "USDC.e", w[keyTokenOut])
}

func TestRoundTripPreservesRecognizedFields(t *testing.T) {
	o := Opportunity{
		ID:               "o1",
		Type:             TypeCrossChain,
		Chain:            "solana",
		BuyDex:           "raydium",
		SellDex:          "orca",
		Token0:           "SOL",
		Token1:           "USDC",
		ProfitPercentage: 2.5,
		Confidence:       0.6,
		Timestamp:        1000,
		ExpiresAt:        2000,
		Status:           StatusPending,
	}

	w := o.ToWire(1234)
	back := FromWire(w, 5678)

	require.Equal(t, o.ID, back.ID)
	require.Equal(t, o.Type, back.Type)
	require.Equal(t, o.Chain, back.Chain)
	require.Equal(t, o.BuyDex, back.BuyDex)
	require.Equal(t, o.SellDex, back.SellDex)
	require.Equal(t, o.Token0, back.Token0)
	require.Equal(t, o.Token1, back.Token1)
	require.Equal(t, o.ProfitPercentage, back.ProfitPercentage)
	require.Equal(t, o.Timestamp, back.Timestamp)
	require.Equal(t, o.ExpiresAt, back.ExpiresAt)
	require.Equal(t, o.Status, back.Status)
}

func TestFromWireEmptyTypeChainUseDefaults(t *testing.T) {
	o := FromWire(Wire{keyID: "o1"}, 9999)

	require.Equal(t, defaultType, o.Type)
	require.Equal(t, unknownChain, o.Chain)
	require.Equal(t, int64(9999), o.Timestamp)
}

func TestFromWirePreservesUnknownFieldsInExtra(t *testing.T) {
	w := Wire{keyID: "o1", "customField": "customValue"}
	o := FromWire(w, 1)

	require.Equal(t, "customValue", o.Extra["customField"])
}

func TestFromWireIgnoresTraceFields(t *testing.T) {
	w := Wire{keyID: "o1", "_trace_traceId": "abc"}
	o := FromWire(w, 1)

	require.Nil(t, o.Extra)
}
