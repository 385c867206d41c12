package solana

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the decimal precision of SOL itself: one SOL is 10^9
// lamports on every cluster. Unlike SPL tokens this never varies with the
// environment.
const NativeDecimals uint8 = 9

var maxRawAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ToMinorUnits converts a human-readable amount into the asset's smallest
// integer unit by shifting the decimal point right by decimals and
// truncating. Digits below the asset's precision are dropped, not rounded:
// round-tripping through ToHumanUnits is lossy only below that precision.
func ToMinorUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, &ValidationError{Reason: "amount must not be negative"}
	}
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if raw.Cmp(maxRawAmount) > 0 {
		return 0, &ValidationError{Reason: "amount exceeds the maximum representable raw amount"}
	}
	return raw.BigInt().Uint64(), nil
}

// ToHumanUnits converts a raw minor-unit amount back to a human-readable
// decimal by shifting the decimal point left by decimals. The division is
// exact; no precision is lost in this direction.
func ToHumanUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// LamportsToHuman is ToHumanUnits for raw amounts already held as uint64,
// which is how the RPC layer reports lamport and token balances.
func LamportsToHuman(raw uint64, decimals uint8) decimal.Decimal {
	return ToHumanUnits(new(big.Int).SetUint64(raw), decimals)
}
