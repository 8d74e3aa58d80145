package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRowToModel(t *testing.T) {
	row := poolRow{
		id:      "0xAbC",
		token0:  "0x1111111111111111111111111111111111111111",
		symbol0: "HNY",
		token1:  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		symbol1: "WETH",
		locked:  "1.000000000000000000",
	}
	pool, err := row.toModel()
	require.NoError(t, err)
	assert.Equal(t, "0xabc", pool.ID)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", pool.Token1.ID)
	assert.Equal(t, "1", pool.LockedValue.String())
	assert.Equal(t, "HNY", pool.Token0.Symbol)
}

func TestPoolRowRejectsBadNumeric(t *testing.T) {
	_, err := poolRow{id: "0x1", locked: "NaN"}.toModel()
	assert.Error(t, err)
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}
