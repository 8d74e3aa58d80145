package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"honeypotScope/internal/chain"
	"honeypotScope/internal/model"
)

const defaultCacheSize = 1024

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	cache *lru.Cache
}

func NewTokenMetaCache(size int) (*TokenMetaCache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &TokenMetaCache{cache: cache}, nil
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	value, ok := c.cache.Get(address)
	if !ok {
		return model.TokenMeta{}, false
	}
	return value.(model.TokenMeta), true
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.cache.Add(address, meta)
}

// Resolve returns cached metadata or fetches and caches it.
func (c *TokenMetaCache) Resolve(ctx context.Context, caller chain.Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	if meta, ok := c.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return meta, err
	}
	c.Set(token, meta)
	return meta, nil
}

func callMethod(ctx context.Context, caller chain.Caller, to common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := caller.Call(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// FetchTokenMeta reads decimals, symbol and name of token. Only decimals is
// required; symbol and name fall back to the bytes32 getters older tokens use
// and stay empty when neither answers.
func FetchTokenMeta(ctx context.Context, caller chain.Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain caller is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	parsed, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, parsed, "decimals")
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(values[0]); err != nil {
		return meta, err
	}

	for _, field := range []struct {
		method string
		dst    *string
	}{
		{"symbol", &meta.Symbol},
		{"name", &meta.Name},
	} {
		text, err := readText(ctx, caller, token, field.method)
		if err != nil {
			logger.Debug("token text getter failed",
				zap.String("token", token.Hex()), zap.String("method", field.method), zap.Error(err))
			continue
		}
		*field.dst = text
	}
	return meta, nil
}

// readText calls a string getter, retrying with the bytes32 variant.
func readText(ctx context.Context, caller chain.Caller, token common.Address, method string) (string, error) {
	stringABI, err := ERC20ABI()
	if err != nil {
		return "", err
	}
	values, err := callMethod(ctx, caller, token, stringABI, method)
	if err == nil {
		if text, ok := values[0].(string); ok {
			return text, nil
		}
	}

	bytes32ABI, abiErr := erc20ABIBytes32Instance()
	if abiErr != nil {
		return "", abiErr
	}
	values, err = callMethod(ctx, caller, token, bytes32ABI, method)
	if err != nil {
		return "", err
	}
	raw, ok := values[0].([32]byte)
	if !ok {
		return "", fmt.Errorf("%s: unsupported type %T", method, values[0])
	}
	return string(bytes.TrimRight(raw[:], "\x00")), nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 out of range: %s", v)
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
