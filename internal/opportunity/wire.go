package opportunity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Wire is the flat map[string]string representation an opportunity takes on
// a stream entry. Every field is a
// string regardless of its internal type — numbers are formatted, JSON blobs
// are embedded as strings.
type Wire map[string]string

const (
	keyID                  = "id"
	keyType                = "type"
	keyChain               = "chain"
	keySourceChain         = "sourceChain"
	keyTargetChain         = "targetChain"
	keyBuyDex              = "buyDex"
	keySellDex             = "sellDex"
	keyBuyPair             = "buyPair"
	keySellPair            = "sellPair"
	keyToken0              = "token0"
	keyToken1              = "token1"
	keyTokenIn             = "tokenIn"
	keyTokenOut            = "tokenOut"
	keyAmountIn            = "amountIn"
	keyBuyPrice            = "buyPrice"
	keySellPrice           = "sellPrice"
	keyProfitPercentage    = "profitPercentage"
	keyConfidence          = "confidence"
	keyTimestamp           = "timestamp"
	keyExpiresAt           = "expiresAt"
	keyStatus              = "status"
	keyBlockNumber         = "blockNumber"
	keyUseFlashLoan        = "useFlashLoan"
	keyPipelineTimestamps  = "pipelineTimestamps"
	keyForwardedBy         = "forwardedBy"
	keyForwardedAt         = "forwardedAt"
)

// orDefault mirrors JS `x || fallback`: empty string or missing key falls back.
func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// ToWire flattens o into its stream representation. `type`/`chain`/
// `timestamp` use OR-default, every other optional string uses
// nullish-default (empty string preserved as-is).
func (o Opportunity) ToWire(nowMs int64) Wire {
	w := Wire{
		keyID:               o.ID,
		keyType:              orDefault(string(o.Type), string(defaultType)),
		keyChain:             orDefault(o.Chain, unknownChain),
		keyBuyDex:            o.BuyDex,
		keySellDex:           o.SellDex,
		keyBuyPair:           o.BuyPair,
		keySellPair:          o.SellPair,
		keyToken0:            o.Token0,
		keyToken1:            o.Token1,
		keyTokenIn:           o.EffectiveTokenIn(),
		keyTokenOut:          o.EffectiveTokenOut(),
		keyAmountIn:          o.AmountIn,
		keyBuyPrice:          formatFloat(o.BuyPrice),
		keySellPrice:         formatFloat(o.SellPrice),
		keyProfitPercentage:  formatFloat(o.ProfitPercentage),
		keyConfidence:        formatFloat(o.Confidence),
		keyTimestamp:         strconv.FormatInt(orDefaultInt(o.Timestamp, nowMs), 10),
		keyExpiresAt:         formatOptionalInt(o.ExpiresAt),
		keyStatus:            string(o.EffectiveStatus()),
		keyUseFlashLoan:      strconv.FormatBool(o.UseFlashLoan),
	}

	if o.SourceChain != "" {
		w[keySourceChain] = o.SourceChain
	}
	if o.TargetChain != "" {
		w[keyTargetChain] = o.TargetChain
	}
	if o.BlockNumber != 0 {
		w[keyBlockNumber] = strconv.FormatInt(o.BlockNumber, 10)
	}
	if len(o.PipelineTimestamps) > 0 {
		if blob, err := json.Marshal(o.PipelineTimestamps); err == nil {
			w[keyPipelineTimestamps] = string(blob)
		}
	}

	for k, v := range o.Extra {
		if _, known := w[k]; known {
			continue
		}
		w[k] = toWireString(v)
	}

	return w
}

// FromWire reconstructs an Opportunity from a flat wire map, applying the
// same OR/nullish-default policy used by ToWire. Unrecognized keys are
// preserved verbatim in Extra so forwarding stays lossless.
func FromWire(w Wire, nowMs int64) Opportunity {
	o := Opportunity{
		ID:               w[keyID],
		Type:             Type(orDefault(w[keyType], string(defaultType))),
		Chain:            orDefault(w[keyChain], unknownChain),
		SourceChain:      w[keySourceChain],
		TargetChain:      w[keyTargetChain],
		BuyDex:           w[keyBuyDex],
		SellDex:          w[keySellDex],
		BuyPair:          w[keyBuyPair],
		SellPair:         w[keySellPair],
		Token0:           w[keyToken0],
		Token1:           w[keyToken1],
		TokenIn:          w[keyTokenIn],
		TokenOut:         w[keyTokenOut],
		AmountIn:         w[keyAmountIn],
		BuyPrice:         parseFloat(w[keyBuyPrice]),
		SellPrice:        parseFloat(w[keySellPrice]),
		ProfitPercentage: parseFloat(w[keyProfitPercentage]),
		Confidence:       parseFloat(w[keyConfidence]),
		Timestamp:        orDefaultParsedInt(w[keyTimestamp], nowMs),
		ExpiresAt:        parseOptionalInt(w[keyExpiresAt]),
		Status:           Status(w[keyStatus]),
		BlockNumber:      parseOptionalInt(w[keyBlockNumber]),
		UseFlashLoan:     w[keyUseFlashLoan] == "true",
	}

	if raw := w[keyPipelineTimestamps]; raw != "" {
		var ts map[string]int64
		if err := json.Unmarshal([]byte(raw), &ts); err == nil {
			o.PipelineTimestamps = ts
		}
	}

	known := map[string]bool{
		keyID: true, keyType: true, keyChain: true, keySourceChain: true, keyTargetChain: true,
		keyBuyDex: true, keySellDex: true, keyBuyPair: true, keySellPair: true,
		keyToken0: true, keyToken1: true, keyTokenIn: true, keyTokenOut: true, keyAmountIn: true,
		keyBuyPrice: true, keySellPrice: true, keyProfitPercentage: true, keyConfidence: true,
		keyTimestamp: true, keyExpiresAt: true, keyStatus: true, keyBlockNumber: true,
		keyUseFlashLoan: true, keyPipelineTimestamps: true, keyForwardedBy: true, keyForwardedAt: true,
	}
	for k, v := range w {
		if known[k] || strings.HasPrefix(k, "_trace_") {
			continue
		}
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[k] = v
	}

	return o
}

func formatFloat(f float64) string {
	if !isFiniteNumber(f) {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func orDefaultInt(v, fallback int64) int64 {
	if v == 0 {
		return fallback
	}
	return v
}

func orDefaultParsedInt(s string, fallback int64) int64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func formatOptionalInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

func parseOptionalInt(s string) int64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func toWireString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		if blob, err := json.Marshal(t); err == nil {
			return string(blob)
		}
		return ""
	}
}
