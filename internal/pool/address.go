package pool

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// minAddressLen/maxAddressLen bound a base58-encoded Solana public key
//.
const (
	minAddressLen = 32
	maxAddressLen = 44
)

// ValidateAddress reports whether address is an acceptable pool address: a
// plausible base58-encoded Solana public key, or the permissive
// colon-delimited synthetic format tests use for pairKey-style addresses
// (e.g. "SOL:USDC:raydium"). When strict is true, base58 candidates are also
// required to decode to exactly 32 bytes and land on the ed25519 curve.
func ValidateAddress(address string, strict bool) bool {
	if address == "" {
		return false
	}
	if containsColon(address) {
		return true
	}
	if len(address) < minAddressLen || len(address) > maxAddressLen {
		return false
	}

	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	if !strict {
		return true
	}
	if len(decoded) != 32 {
		return false
	}

	var bytes32 [32]byte
	copy(bytes32[:], decoded)
	_, err = new(edwards25519.Point).SetBytes(bytes32[:])
	return err == nil
}

func containsColon(s string) bool {
	for _, r := range s {
		if r == ':' {
			return true
		}
	}
	return false
}

// ValidateFee reports whether fee is a valid basis-points value
//.
func ValidateFee(feeBps int) bool {
	return feeBps >= 0 && feeBps <= 10000
}
