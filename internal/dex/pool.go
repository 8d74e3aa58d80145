package dex

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"

	"honeypotScope/internal/chain"
)

// PoolFeeCache caches V3 pool fee tiers by pool address. Fee tiers never change.
type PoolFeeCache struct {
	cache *lru.Cache
}

func NewPoolFeeCache(size int) (*PoolFeeCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create fee cache: %w", err)
	}
	return &PoolFeeCache{cache: cache}, nil
}

func (c *PoolFeeCache) Get(pool common.Address) (uint32, bool) {
	value, ok := c.cache.Get(pool)
	if !ok {
		return 0, false
	}
	return value.(uint32), true
}

func (c *PoolFeeCache) Set(pool common.Address, fee uint32) {
	c.cache.Add(pool, fee)
}

// FetchPoolFee reads the fee tier of a V3 pool, consulting cache first when non-nil.
func FetchPoolFee(ctx context.Context, caller chain.Caller, pool common.Address, cache *PoolFeeCache) (uint32, error) {
	if cache != nil {
		if fee, ok := cache.Get(pool); ok {
			return fee, nil
		}
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, caller, pool, poolABI, "fee")
	if err != nil {
		return 0, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return 0, fmt.Errorf("fee: %w", err)
	}
	fee := uint32(feeInt.Uint64())

	if cache != nil {
		cache.Set(pool, fee)
	}
	return fee, nil
}
