// Package chaintest provides an in-memory chain.Executor for tests.
package chaintest

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Message is one recorded call or transaction.
type Message struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Selector returns the 4-byte method id of the message.
func (m Message) Selector() [4]byte {
	var id [4]byte
	copy(id[:], m.Data)
	return id
}

// Executor records every interaction and delegates answers to its hooks.
type Executor struct {
	Account  common.Address
	HeadTime uint64

	OnCall func(to common.Address, data []byte) ([]byte, error)
	OnSend func(to common.Address, value *big.Int, data []byte) (*types.Receipt, error)

	mu    sync.Mutex
	heads int
	calls []Message
	sends []Message
	nonce uint64
}

func (e *Executor) Sender() common.Address { return e.Account }

func (e *Executor) Head(_ context.Context) (*types.Header, error) {
	e.mu.Lock()
	e.heads++
	e.mu.Unlock()
	return &types.Header{Number: big.NewInt(1), Time: e.HeadTime}, nil
}

func (e *Executor) Call(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, Message{To: to, Data: common.CopyBytes(data)})
	e.mu.Unlock()
	if e.OnCall == nil {
		return nil, errors.New("no call handler")
	}
	return e.OnCall(to, data)
}

func (e *Executor) Send(_ context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	e.mu.Lock()
	e.sends = append(e.sends, Message{To: to, Value: value, Data: common.CopyBytes(data)})
	e.nonce++
	nonce := e.nonce
	e.mu.Unlock()

	if e.OnSend == nil {
		return Receipt(nonce), nil
	}
	receipt, err := e.OnSend(to, value, data)
	if receipt != nil && receipt.TxHash == (common.Hash{}) {
		receipt.TxHash = txHash(nonce)
	}
	return receipt, err
}

// Calls returns the recorded read-only calls.
func (e *Executor) Calls() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Message(nil), e.calls...)
}

// Sends returns the recorded transactions.
func (e *Executor) Sends() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Message(nil), e.sends...)
}

// Interactions counts every head read, call and transaction.
func (e *Executor) Interactions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heads + len(e.calls) + len(e.sends)
}

// Receipt returns a successful receipt with a deterministic hash.
func Receipt(seq uint64) *types.Receipt {
	return &types.Receipt{
		Status:  types.ReceiptStatusSuccessful,
		TxHash:  txHash(seq),
		GasUsed: 21000,
	}
}

func txHash(seq uint64) common.Hash {
	return crypto.Keccak256Hash(new(big.Int).SetUint64(seq).Bytes())
}
