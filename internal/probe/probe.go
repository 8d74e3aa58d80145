package probe

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"honeypotScope/internal/chain"
	"honeypotScope/internal/dex"
	"honeypotScope/internal/metrics"
	"honeypotScope/internal/model"
	"honeypotScope/internal/venue"
)

var (
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrBuyFailed             = errors.New("buy failed")
	ErrSellFailed            = errors.New("sell failed")
	ErrProbeInFlight         = errors.New("probe already in flight")
)

// DeadlineOffset is added to the simulated head timestamp to form swap deadlines.
const DeadlineOffset = 1000

// Config holds the fixed parameters of a probe runner.
type Config struct {
	Venue venue.Venue
	Base  model.BaseAsset
	// OnPhase observes every state machine move, including the initial Idle.
	OnPhase func(Phase)
	Metrics *metrics.Recorder
}

// Runner probes pools of one venue for honeypot behaviour: it buys a fixed
// outlay of the candidate token and then tries to sell the whole balance.
// One probe runs at a time.
type Runner struct {
	cfg      Config
	adapter  venue.Adapter
	exec     chain.Executor
	logger   *zap.Logger
	inFlight atomic.Bool
}

func NewRunner(cfg Config, adapter venue.Adapter, exec chain.Executor, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{cfg: cfg, adapter: adapter, exec: exec, logger: logger}
}

// ResultError maps a finished result to ErrBuyFailed or ErrSellFailed, nil on success.
func ResultError(result *model.ProbeResult) error {
	if result == nil {
		return nil
	}
	switch result.Stage {
	case model.StageBuyFailed:
		return fmt.Errorf("%w: %s", ErrBuyFailed, result.Reason)
	case model.StageSellFailed:
		return fmt.Errorf("%w: %s", ErrSellFailed, result.Reason)
	default:
		return nil
	}
}

// Run probes pool. Buy and sell failures are reported in the result, not as errors.
// A chain read failing after the buy is mined is returned as an error together
// with the partial result.
// Pools below the venue floor are rejected before any chain access.
func (r *Runner) Run(ctx context.Context, pool model.Pool) (*model.ProbeResult, error) {
	if !r.cfg.Venue.MeetsFloor(pool.LockedValue) {
		return nil, fmt.Errorf("%w: pool %s locks %s, floor %s",
			ErrInsufficientLiquidity, pool.ID, pool.LockedValue.String(), r.cfg.Venue.Floor.String())
	}
	if r.adapter == nil || r.exec == nil {
		return nil, fmt.Errorf("probe runner is not wired")
	}
	if !common.IsHexAddress(pool.Token0.ID) {
		return nil, fmt.Errorf("pool %s: invalid candidate token %q", pool.ID, pool.Token0.ID)
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return nil, ErrProbeInFlight
	}
	defer r.inFlight.Store(false)

	p := &run{
		Runner: r,
		token:  common.HexToAddress(pool.Token0.ID),
		addr:   common.HexToAddress(pool.ID),
		result: model.NewProbeResult(),
		phase:  PhaseIdle,
		log: r.logger.With(
			zap.String("venue", r.cfg.Venue.Name),
			zap.String("pool", pool.ID),
			zap.String("token", pool.Token0.ID),
		),
	}
	r.notify(PhaseIdle)

	start := time.Now()
	err := p.execute(ctx)
	r.cfg.Metrics.ObserveProbe(r.cfg.Venue.Name, p.result.Stage.String(), time.Since(start))
	if err != nil {
		return p.result, err
	}

	p.log.Info("probe finished",
		zap.String("stage", p.result.Stage.String()),
		zap.Bool("honeypot", p.result.Honeypot()),
		zap.String("reason", p.result.Reason),
	)
	return p.result, nil
}

func (r *Runner) notify(phase Phase) {
	if r.cfg.OnPhase != nil {
		r.cfg.OnPhase(phase)
	}
}

// run is the state of one probe.
type run struct {
	*Runner
	token  common.Address
	addr   common.Address
	result *model.ProbeResult
	phase  Phase
	log    *zap.Logger
}

func (p *run) move(next Phase) {
	if !canMove(p.phase, next) {
		p.log.Error("illegal phase move", zap.Stringer("from", p.phase), zap.Stringer("to", next))
		return
	}
	p.log.Debug("phase", zap.Stringer("from", p.phase), zap.Stringer("to", next))
	p.phase = next
	p.notify(next)
}

func (p *run) deadline(ctx context.Context) (*big.Int, error) {
	head, err := p.exec.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}
	return new(big.Int).SetUint64(head.Time + DeadlineOffset), nil
}

func (p *run) execute(ctx context.Context) error {
	deadline, err := p.deadline(ctx)
	if err != nil {
		return err
	}

	p.move(PhaseBuyInFlight)
	swap, buyErr := p.buy(ctx, deadline)
	if buyErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.result.BuyFailed(chain.RevertReason(buyErr)); err != nil {
			return err
		}
		p.log.Warn("buy failed", zap.Error(buyErr))
		p.move(PhaseFailed)
		return nil
	}
	// The buy is mined from here on; failures are no longer buy outcomes.
	if err := p.recordBuy(ctx, swap); err != nil {
		p.move(PhaseFailed)
		return err
	}

	p.move(PhaseSellInFlight)
	sellErr := p.sell(ctx)
	if sellErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if remaining, err := dex.BalanceOf(ctx, p.exec, p.token, p.exec.Sender()); err == nil {
		p.result.Remaining = remaining
	}
	if sellErr != nil {
		if err := p.result.SellFailed(chain.RevertReason(sellErr)); err != nil {
			return err
		}
		p.log.Warn("sell failed", zap.Error(sellErr))
		p.move(PhaseFailed)
		return nil
	}
	if err := p.result.SellSucceeded(); err != nil {
		return err
	}
	p.move(PhaseDone)
	return nil
}

func (p *run) buy(ctx context.Context, deadline *big.Int) (*venue.Swap, error) {
	base := p.cfg.Base
	outlay := base.OutlayUnits()

	if !base.Native {
		if _, err := dex.Approve(ctx, p.exec, base.Address, p.adapter.Router(), outlay); err != nil {
			return nil, err
		}
	}

	return p.adapter.Buy(ctx, venue.BuyRequest{
		Pool:     p.addr,
		TokenIn:  base.Address,
		TokenOut: p.token,
		NativeIn: base.Native,
		AmountIn: outlay,
		Deadline: deadline,
	})
}

// recordBuy reads the bought balance and moves the result to BuySucceeded.
func (p *run) recordBuy(ctx context.Context, swap *venue.Swap) error {
	sender := p.exec.Sender()
	if swap != nil && swap.Receipt != nil {
		p.result.BuyTx = swap.Receipt.TxHash.Hex()
		p.result.BuyGas = swap.Receipt.GasUsed
	}

	balance, err := dex.BalanceOf(ctx, p.exec, p.token, sender)
	if err != nil {
		return fmt.Errorf("read balance after buy %s: %w", p.result.BuyTx, err)
	}
	if err := p.result.BuySucceeded(balance); err != nil {
		return err
	}
	if swap != nil && swap.Receipt != nil {
		if transfers, err := dex.DecodeTransfers(swap.Receipt, p.token); err == nil && len(transfers) > 0 {
			received := dex.NetTransferred(transfers, sender)
			p.result.BuyTax = dex.TransferTax(swap.Quoted, received).String()
		}
	}

	base := p.cfg.Base
	p.log.Info("buy succeeded",
		zap.String("outlay", dex.FormatTokenAmount(base.OutlayUnits(), base.Decimals)+" "+base.Symbol),
		zap.String("balance", balance.String()),
		zap.String("tx", p.result.BuyTx),
	)
	return nil
}

func (p *run) sell(ctx context.Context) error {
	sender := p.exec.Sender()
	balance, err := dex.BalanceOf(ctx, p.exec, p.token, sender)
	if err != nil {
		return fmt.Errorf("read balance before sell: %w", err)
	}
	if _, err := dex.Approve(ctx, p.exec, p.token, p.adapter.Router(), balance); err != nil {
		return err
	}
	deadline, err := p.deadline(ctx)
	if err != nil {
		return err
	}

	swap, err := p.adapter.Sell(ctx, venue.SellRequest{
		Pool:      p.addr,
		TokenIn:   p.token,
		TokenOut:  p.cfg.Base.Address,
		NativeOut: p.cfg.Base.Native,
		AmountIn:  balance,
		Deadline:  deadline,
	})
	if err != nil {
		return err
	}
	if swap.Receipt != nil {
		p.result.SellTx = swap.Receipt.TxHash.Hex()
		p.result.SellGas = swap.Receipt.GasUsed
	}
	return nil
}
