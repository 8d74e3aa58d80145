package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PoolToken is one side of a discovered pool.
type PoolToken struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// Pool is a liquidity pool pairing a candidate token (Token0) with a base asset (Token1).
type Pool struct {
	ID          string          `json:"id"`
	Token0      PoolToken       `json:"token0"`
	Token1      PoolToken       `json:"token1"`
	LockedValue decimal.Decimal `json:"locked_value"`
}

// Label renders the pool as "SYM0/SYM1 id".
func (p Pool) Label() string {
	return p.Token0.Symbol + "/" + p.Token1.Symbol + " " + p.ID
}

// SamePool reports whether two pool ids refer to the same pool.
func SamePool(a, b string) bool {
	return strings.EqualFold(a, b)
}
