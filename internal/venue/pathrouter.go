package venue

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"honeypotScope/internal/chain"
	"honeypotScope/internal/dex"
)

// PathRouter drives UniswapV2Router02-compatible routers.
type PathRouter struct {
	venue Venue
	exec  chain.Executor
}

func (p *PathRouter) Name() string { return p.venue.Name }

func (p *PathRouter) Router() common.Address { return p.venue.Router }

// QuoteBuy returns the output of getAmountsOut along [TokenIn, TokenOut].
func (p *PathRouter) QuoteBuy(ctx context.Context, req BuyRequest) (*big.Int, error) {
	routerABI, err := dex.V2RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	data, err := routerABI.Pack("getAmountsOut", req.AmountIn, []common.Address{req.TokenIn, req.TokenOut})
	if err != nil {
		return nil, fmt.Errorf("pack getAmountsOut: %w", err)
	}
	resp, err := p.exec.Call(ctx, p.venue.Router, data)
	if err != nil {
		return nil, fmt.Errorf("call getAmountsOut: %w", err)
	}
	values, err := routerABI.Unpack("getAmountsOut", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack getAmountsOut: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack getAmountsOut: empty result")
	}
	amounts, ok := values[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("unpack getAmountsOut: unexpected %T", values[0])
	}
	return amounts[len(amounts)-1], nil
}

// Buy quotes the exact output first and then requests exactly that amount,
// spending at most AmountIn.
func (p *PathRouter) Buy(ctx context.Context, req BuyRequest) (*Swap, error) {
	quoted, err := p.QuoteBuy(ctx, req)
	if err != nil {
		return nil, err
	}

	routerABI, err := dex.V2RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	path := []common.Address{req.TokenIn, req.TokenOut}
	to := p.exec.Sender()

	var (
		data  []byte
		value *big.Int
	)
	if req.NativeIn {
		data, err = routerABI.Pack("swapETHForExactTokens", quoted, path, to, req.Deadline)
		value = req.AmountIn
	} else {
		data, err = routerABI.Pack("swapTokensForExactTokens", quoted, req.AmountIn, path, to, req.Deadline)
	}
	if err != nil {
		return nil, fmt.Errorf("pack buy: %w", err)
	}

	receipt, err := p.exec.Send(ctx, p.venue.Router, value, data)
	if err != nil {
		return nil, fmt.Errorf("buy via %s: %w", p.venue.Name, err)
	}
	return &Swap{Receipt: receipt, Quoted: quoted}, nil
}

// Sell swaps the full AmountIn with a zero minimum output.
func (p *PathRouter) Sell(ctx context.Context, req SellRequest) (*Swap, error) {
	routerABI, err := dex.V2RouterABI()
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	path := []common.Address{req.TokenIn, req.TokenOut}
	to := p.exec.Sender()
	method := "swapExactTokensForTokens"
	if req.NativeOut {
		method = "swapExactTokensForETH"
	}

	data, err := routerABI.Pack(method, req.AmountIn, big.NewInt(0), path, to, req.Deadline)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := p.exec.Send(ctx, p.venue.Router, nil, data)
	if err != nil {
		return nil, fmt.Errorf("sell via %s: %w", p.venue.Name, err)
	}
	return &Swap{Receipt: receipt}, nil
}
