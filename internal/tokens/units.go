package tokens

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToUnits converts a decimal amount into raw token units, truncating dust.
func ToUnits(amount float64, decimals int) (uint64, error) {
	if decimals < 0 {
		return 0, fmt.Errorf("negative decimals %d", decimals)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %v", amount)
	}
	units := decimal.NewFromFloat(amount).Shift(int32(decimals)).Truncate(0)
	if !units.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %v with %d decimals overflows uint64", amount, decimals)
	}
	return units.BigInt().Uint64(), nil
}

// FromUnits converts raw token units into a decimal amount.
func FromUnits(units uint64, decimals int) float64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimals)).InexactFloat64()
}

// FromUnitsString converts a raw amount string, as found in token balances, into a decimal amount.
func FromUnitsString(units string, decimals int) (float64, error) {
	d, err := decimal.NewFromString(units)
	if err != nil {
		return 0, fmt.Errorf("parse units %q: %w", units, err)
	}
	return d.Shift(-int32(decimals)).InexactFloat64(), nil
}
