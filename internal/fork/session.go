package fork

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os/exec"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"honeypotScope/internal/chain"
	"honeypotScope/internal/dex"
)

// Session is one running fork with its funded account. It implements chain.Executor.
type Session struct {
	client    *chain.Client
	key       *ecdsa.PrivateKey
	sender    common.Address
	chainID   *big.Int
	txGas     uint64
	forkBlock uint64
	proc      *exec.Cmd
	logger    *zap.Logger

	// sendMu keeps nonce assignment and mining strictly sequential.
	sendMu sync.Mutex
}

var _ chain.Executor = (*Session)(nil)

func (s *Session) Sender() common.Address { return s.sender }

// ForkBlock returns the upstream block height the fork was pinned to.
func (s *Session) ForkBlock() uint64 { return s.forkBlock }

// Head returns the latest block header of the fork.
func (s *Session) Head(ctx context.Context) (*types.Header, error) {
	return s.client.HeaderByNumber(ctx, nil)
}

// Call runs a read-only call from the session account against the latest fork state.
func (s *Session) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{From: s.sender, To: &to, Data: data}
	return s.client.CallContract(ctx, msg, nil)
}

// Send signs a legacy transaction with the session key and waits until it is mined.
func (s *Session) Send(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if value == nil {
		value = new(big.Int)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.sender)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      s.txGas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, s.client, signed)
	if err != nil {
		return nil, fmt.Errorf("wait tx %s: %w", signed.Hash().Hex(), err)
	}

	s.logger.Debug("tx mined",
		zap.String("tx", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("status", receipt.Status),
		zap.Uint64("gas_used", receipt.GasUsed),
	)

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &chain.RevertError{
			TxHash:  signed.Hash(),
			GasUsed: receipt.GasUsed,
			Reason:  s.replay(ctx, to, value, data, receipt.BlockNumber),
		}
	}
	return receipt, nil
}

// replay re-executes a reverted transaction as a call on the state it saw
// to recover the revert reason.
func (s *Session) replay(ctx context.Context, to common.Address, value *big.Int, data []byte, minedIn *big.Int) string {
	var parent *big.Int
	if minedIn != nil && minedIn.Sign() > 0 {
		parent = new(big.Int).Sub(minedIn, big.NewInt(1))
	}
	msg := ethereum.CallMsg{From: s.sender, To: &to, Gas: s.txGas, Value: value, Data: data}
	if _, err := s.client.CallContract(ctx, msg, parent); err != nil {
		return chain.RevertReason(err)
	}
	return ""
}

// Snapshot records the current fork state and returns its id.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := s.client.RawCall(ctx, &id, "evm_snapshot"); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return id, nil
}

// Revert restores the fork to a snapshot. A snapshot can be restored once.
func (s *Session) Revert(ctx context.Context, id string) error {
	var ok bool
	if err := s.client.RawCall(ctx, &ok, "evm_revert", id); err != nil {
		return fmt.Errorf("revert %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("revert %s: snapshot not found", id)
	}
	return nil
}

// Isolate runs fn on top of a snapshot and restores the snapshot afterwards.
func (s *Session) Isolate(ctx context.Context, fn func(context.Context) error) error {
	id, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	runErr := fn(ctx)
	if err := s.Revert(ctx, id); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w (and %v)", runErr, err)
		}
		return err
	}
	return runErr
}

// Close releases the RPC connection and stops a launched node.
func (s *Session) Close() error {
	s.client.Close()
	return stopProcess(s.proc)
}

func (s *Session) fund(ctx context.Context, f Funding) error {
	routerABI, err := dex.V2RouterABI()
	if err != nil {
		return fmt.Errorf("parse router abi: %w", err)
	}
	head, err := s.Head(ctx)
	if err != nil {
		return fmt.Errorf("get head: %w", err)
	}
	deadline := new(big.Int).SetUint64(head.Time + 1000)
	path := []common.Address{f.WETH, f.Token}

	data, err := routerABI.Pack("swapExactETHForTokens", big.NewInt(0), path, s.sender, deadline)
	if err != nil {
		return fmt.Errorf("pack swapExactETHForTokens: %w", err)
	}
	if _, err := s.Send(ctx, f.Router, f.Spend, data); err != nil {
		return err
	}

	balance, err := dex.BalanceOf(ctx, s, f.Token, s.sender)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return fmt.Errorf("funding swap returned no %s", f.Token.Hex())
	}
	s.logger.Info("account funded", zap.String("token", f.Token.Hex()), zap.String("balance", balance.String()))
	return nil
}
