package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// BaseAsset is the reference currency a candidate token is paired against.
type BaseAsset struct {
	Symbol   string
	Address  common.Address
	Native   bool
	Decimals uint8
	// Outlay is the fixed buy size in whole units.
	Outlay decimal.Decimal
}

var (
	WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	ETH = BaseAsset{
		Symbol:   "ETH",
		Address:  WETHAddress,
		Native:   true,
		Decimals: 18,
		Outlay:   decimal.RequireFromString("0.1"),
	}
	USDC = BaseAsset{
		Symbol:   "USDC",
		Address:  USDCAddress,
		Decimals: 6,
		Outlay:   decimal.NewFromInt(500),
	}
)

// ParseBaseAsset resolves a base asset by symbol.
func ParseBaseAsset(symbol string) (BaseAsset, error) {
	switch strings.ToLower(strings.TrimSpace(symbol)) {
	case "", "eth", "weth":
		return ETH, nil
	case "usdc":
		return USDC, nil
	default:
		return BaseAsset{}, fmt.Errorf("unsupported base asset: %s", symbol)
	}
}

// OutlayUnits returns the fixed outlay in the asset's smallest unit.
func (b BaseAsset) OutlayUnits() *big.Int {
	return ToUnits(b.Outlay, b.Decimals)
}

// ToUnits scales a whole-unit amount to the smallest unit, truncating any remainder.
func ToUnits(amount decimal.Decimal, decimals uint8) *big.Int {
	return amount.Shift(int32(decimals)).BigInt()
}
