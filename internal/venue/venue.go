package venue

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"honeypotScope/internal/chain"
	"honeypotScope/internal/dex"
)

// Kind selects how a venue shapes its swap calls.
type Kind int

const (
	// KindPathRouter routes through an ordered token path (UniswapV2-style routers).
	KindPathRouter Kind = iota
	// KindSingleHop swaps through one fee-tiered pool (UniswapV3 SwapRouter).
	KindSingleHop
)

func (k Kind) String() string {
	switch k {
	case KindPathRouter:
		return "path-router"
	case KindSingleHop:
		return "single-hop"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Venue describes one exchange deployment.
type Venue struct {
	Name     string
	Kind     Kind
	Router   common.Address
	Quoter   common.Address
	Subgraph string
	// Floor is the minimum locked base-asset value a pool needs before it is probed.
	Floor decimal.Decimal
	// FloorExclusive makes a pool sitting exactly on the floor ineligible.
	FloorExclusive bool
}

// MeetsFloor reports whether locked passes the venue's liquidity floor.
func (v Venue) MeetsFloor(locked decimal.Decimal) bool {
	if v.FloorExclusive {
		return locked.GreaterThan(v.Floor)
	}
	return locked.GreaterThanOrEqual(v.Floor)
}

var defaultFloor = decimal.RequireFromString("0.2")

var (
	UniswapV2 = Venue{
		Name:     "uniswapv2",
		Kind:     KindPathRouter,
		Router:   common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"),
		Subgraph: "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v2",
		Floor:    defaultFloor,
	}
	Sushiswap = Venue{
		Name:     "sushiswap",
		Kind:     KindPathRouter,
		Router:   common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"),
		Subgraph: "https://api.thegraph.com/subgraphs/name/sushiswap/exchange",
		Floor:    defaultFloor,
	}
	UniswapV3 = Venue{
		Name:     "uniswapv3",
		Kind:     KindSingleHop,
		Router:   common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564"),
		Quoter:   common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6"),
		Subgraph: "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v3",
		Floor:    defaultFloor,
	}
)

// All lists the supported venues.
func All() []Venue {
	return []Venue{UniswapV2, UniswapV3, Sushiswap}
}

// Lookup finds a venue by name.
func Lookup(name string) (Venue, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, v := range All() {
		if v.Name == name {
			return v, nil
		}
	}
	return Venue{}, fmt.Errorf("unknown venue: %s", name)
}

// BuyRequest spends AmountIn of TokenIn on TokenOut. NativeIn sends the
// amount as value instead of moving an ERC20 balance.
type BuyRequest struct {
	Pool     common.Address
	TokenIn  common.Address
	TokenOut common.Address
	NativeIn bool
	AmountIn *big.Int
	Deadline *big.Int
}

// SellRequest sells AmountIn of TokenIn for TokenOut. NativeOut asks for the
// native coin instead of its wrapped token where the venue supports it.
type SellRequest struct {
	Pool      common.Address
	TokenIn   common.Address
	TokenOut  common.Address
	NativeOut bool
	AmountIn  *big.Int
	Deadline  *big.Int
}

// Swap is a mined swap. Quoted is the output the venue promised before the
// swap, nil when no quote was taken.
type Swap struct {
	Receipt *types.Receipt
	Quoted  *big.Int
}

// Adapter shapes generic buy and sell intents into venue calls. Every swap
// is sent with a zero minimum output.
type Adapter interface {
	Name() string
	Router() common.Address
	QuoteBuy(ctx context.Context, req BuyRequest) (*big.Int, error)
	Buy(ctx context.Context, req BuyRequest) (*Swap, error)
	Sell(ctx context.Context, req SellRequest) (*Swap, error)
}

// NewAdapter builds the adapter variant for v on top of exec.
func NewAdapter(v Venue, exec chain.Executor, fees *dex.PoolFeeCache, logger *zap.Logger) (Adapter, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	switch v.Kind {
	case KindPathRouter:
		return &PathRouter{venue: v, exec: exec}, nil
	case KindSingleHop:
		return &SingleHop{venue: v, exec: exec, fees: fees, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported venue kind: %s", v.Kind)
	}
}
