package venue

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"honeypotScope/internal/chain"
	"honeypotScope/internal/dex"
)

// SingleHop drives the UniswapV3 SwapRouter through exactInputSingle.
// The fee tier comes from the pool contract itself and the native side of a
// swap is the router's WETH9.
type SingleHop struct {
	venue  Venue
	exec   chain.Executor
	fees   *dex.PoolFeeCache
	logger *zap.Logger

	wrappedMu sync.Mutex
	wrapped   common.Address
}

func (s *SingleHop) Name() string { return s.venue.Name }

func (s *SingleHop) Router() common.Address { return s.venue.Router }

func (s *SingleHop) fee(ctx context.Context, pool common.Address) (*big.Int, error) {
	fee, err := dex.FetchPoolFee(ctx, s.exec, pool, s.fees)
	if err != nil {
		return nil, fmt.Errorf("read pool fee: %w", err)
	}
	return new(big.Int).SetUint64(uint64(fee)), nil
}

// wrappedNative reads the router's WETH9 once.
func (s *SingleHop) wrappedNative(ctx context.Context) (common.Address, error) {
	s.wrappedMu.Lock()
	defer s.wrappedMu.Unlock()
	if s.wrapped != (common.Address{}) {
		return s.wrapped, nil
	}

	routerABI, err := dex.V3RouterABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse router abi: %w", err)
	}
	data, err := routerABI.Pack("WETH9")
	if err != nil {
		return common.Address{}, fmt.Errorf("pack WETH9: %w", err)
	}
	resp, err := s.exec.Call(ctx, s.venue.Router, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("call WETH9: %w", err)
	}
	values, err := routerABI.Unpack("WETH9", resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack WETH9: %w", err)
	}
	if len(values) == 0 {
		return common.Address{}, fmt.Errorf("unpack WETH9: empty result")
	}
	wrapped, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unpack WETH9: unexpected %T", values[0])
	}
	s.wrapped = wrapped
	return wrapped, nil
}

// QuoteBuy asks the V3 Quoter for the output of a single-pool swap.
func (s *SingleHop) QuoteBuy(ctx context.Context, req BuyRequest) (*big.Int, error) {
	if s.venue.Quoter == (common.Address{}) {
		return nil, fmt.Errorf("%s has no quoter", s.venue.Name)
	}
	fee, err := s.fee(ctx, req.Pool)
	if err != nil {
		return nil, err
	}

	quoterABI, err := dex.V3QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	data, err := quoterABI.Pack("quoteExactInputSingle", req.TokenIn, req.TokenOut, fee, req.AmountIn, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("pack quoteExactInputSingle: %w", err)
	}
	resp, err := s.exec.Call(ctx, s.venue.Quoter, data)
	if err != nil {
		return nil, fmt.Errorf("call quoteExactInputSingle: %w", err)
	}
	values, err := quoterABI.Unpack("quoteExactInputSingle", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack quoteExactInputSingle: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack quoteExactInputSingle: empty result")
	}
	out, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack quoteExactInputSingle: unexpected %T", values[0])
	}
	return out, nil
}

// Buy swaps exactly AmountIn. The quote is informational only and a failing
// quoter does not block the swap.
func (s *SingleHop) Buy(ctx context.Context, req BuyRequest) (*Swap, error) {
	if req.NativeIn {
		wrapped, err := s.wrappedNative(ctx)
		if err != nil {
			return nil, fmt.Errorf("buy via %s: %w", s.venue.Name, err)
		}
		req.TokenIn = wrapped
	}

	quoted, err := s.QuoteBuy(ctx, req)
	if err != nil {
		s.logger.Debug("quote failed", zap.String("venue", s.venue.Name), zap.String("pool", req.Pool.Hex()), zap.Error(err))
		quoted = nil
	}

	var value *big.Int
	if req.NativeIn {
		value = req.AmountIn
	}
	receipt, err := s.swap(ctx, req.Pool, req.TokenIn, req.TokenOut, req.AmountIn, req.Deadline, value)
	if err != nil {
		return nil, fmt.Errorf("buy via %s: %w", s.venue.Name, err)
	}
	return &Swap{Receipt: receipt, Quoted: quoted}, nil
}

// Sell swaps the full AmountIn into TokenOut. The router pays out the
// wrapped token; NativeOut is not unwrapped.
func (s *SingleHop) Sell(ctx context.Context, req SellRequest) (*Swap, error) {
	if req.NativeOut {
		wrapped, err := s.wrappedNative(ctx)
		if err != nil {
			return nil, fmt.Errorf("sell via %s: %w", s.venue.Name, err)
		}
		req.TokenOut = wrapped
	}

	receipt, err := s.swap(ctx, req.Pool, req.TokenIn, req.TokenOut, req.AmountIn, req.Deadline, nil)
	if err != nil {
		return nil, fmt.Errorf("sell via %s: %w", s.venue.Name, err)
	}
	return &Swap{Receipt: receipt}, nil
}

func (s *SingleHop) swap(ctx context.Context, pool, tokenIn, tokenOut common.Address, amountIn, deadline, value *big.Int) (*types.Receipt, error) {
	fee, err := s.fee(ctx, pool)
	if err != nil {
		return nil, err
	}

	routerABI, err := dex.V3RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	params := dex.ExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               fee,
		Recipient:         s.exec.Sender(),
		Deadline:          deadline,
		AmountIn:          amountIn,
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	}
	data, err := routerABI.Pack("exactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("pack exactInputSingle: %w", err)
	}
	return s.exec.Send(ctx, s.venue.Router, value, data)
}
