package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Caller performs read-only contract calls against the latest state.
type Caller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Executor is a chain handle owning one account: it reads state and sends
// transactions from Sender. A fork session and any test double implement it.
type Executor interface {
	Caller
	Sender() common.Address
	Head(ctx context.Context) (*types.Header, error)
	// Send submits a transaction and waits for its receipt. A reverted
	// transaction is reported as a *RevertError.
	Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error)
}
