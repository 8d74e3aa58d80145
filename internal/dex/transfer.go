package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Transfer is a decoded ERC20 Transfer event.
type Transfer struct {
	Token common.Address
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeTransfers extracts the Transfer events of token from a receipt.
// Logs of other contracts or with other signatures are skipped.
func DecodeTransfers(receipt *types.Receipt, token common.Address) ([]Transfer, error) {
	if receipt == nil {
		return nil, nil
	}
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	event := parsed.Events["Transfer"]

	var transfers []Transfer
	for _, log := range receipt.Logs {
		if log == nil || log.Address != token {
			continue
		}
		if len(log.Topics) != 3 || log.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpack transfer: %w", err)
		}
		value, err := asBigInt(values[0])
		if err != nil {
			return nil, fmt.Errorf("transfer value: %w", err)
		}
		transfers = append(transfers, Transfer{
			Token: token,
			From:  common.BytesToAddress(log.Topics[1].Bytes()),
			To:    common.BytesToAddress(log.Topics[2].Bytes()),
			Value: value,
		})
	}
	return transfers, nil
}

// NetTransferred sums the token amount moved into account minus the amount moved out.
func NetTransferred(transfers []Transfer, account common.Address) *big.Int {
	net := new(big.Int)
	for _, transfer := range transfers {
		if transfer.To == account {
			net.Add(net, transfer.Value)
		}
		if transfer.From == account {
			net.Sub(net, transfer.Value)
		}
	}
	return net
}
