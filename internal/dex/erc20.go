package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"honeypotScope/internal/chain"
)

// BalanceOf returns the ERC20 balance of owner.
func BalanceOf(ctx context.Context, caller chain.Caller, token common.Address, owner common.Address) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, parsed, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Approve grants spender an allowance of exactly amount from the executor's account.
func Approve(ctx context.Context, exec chain.Executor, token common.Address, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := parsed.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	receipt, err := exec.Send(ctx, token, nil, data)
	if err != nil {
		return nil, fmt.Errorf("approve %s: %w", token.Hex(), err)
	}
	return receipt, nil
}
