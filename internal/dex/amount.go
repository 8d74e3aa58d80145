package dex

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FormatTokenAmount renders a raw token amount in whole units.
func FormatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// TransferTax returns the share of expected that did not arrive, in percent.
// Zero when expected is unknown or nothing was lost.
func TransferTax(expected *big.Int, received *big.Int) decimal.Decimal {
	if expected == nil || expected.Sign() <= 0 || received == nil || received.Cmp(expected) >= 0 {
		return decimal.Zero
	}
	lost := new(big.Int).Sub(expected, received)
	return decimal.NewFromBigInt(lost, 0).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromBigInt(expected, 0)).
		Round(2)
}
