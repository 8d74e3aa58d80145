package main

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"honeypotScope/internal/model"
	"honeypotScope/internal/probe"
)

func pools() []model.Pool {
	return []model.Pool{
		{ID: "0xaaa", Token0: model.PoolToken{Symbol: "CAND"}, Token1: model.PoolToken{Symbol: "WETH"}, LockedValue: decimal.NewFromInt(5)},
		{ID: "0xbbb", Token0: model.PoolToken{Symbol: "CAND"}, Token1: model.PoolToken{Symbol: "WETH"}, LockedValue: decimal.NewFromInt(1)},
	}
}

func TestSelectPools(t *testing.T) {
	selected, err := selectPools(pools(), nil, false)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "0xaaa", selected[0].ID)

	selected, err = selectPools(pools(), nil, true)
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	selected, err = selectPools(pools(), []string{"0xBBB"}, false)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "0xbbb", selected[0].ID)

	_, err = selectPools(pools(), []string{"0xccc"}, false)
	require.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	meta := model.TokenMeta{Symbol: "CAND", Decimals: 3}
	pool := pools()[0]

	result := model.NewProbeResult()
	require.NoError(t, result.BuySucceeded(big.NewInt(1500)))
	require.NoError(t, result.SellFailed("TRANSFER_FAILED"))

	var buf bytes.Buffer
	printResult(&buf, pool, result, meta, model.ETH)
	assert.Equal(t, "CAND/WETH 0xaaa: HONEYPOT, bought 1.5 CAND with 0.1 ETH but the sell reverted: TRANSFER_FAILED\n", buf.String())

	result = model.NewProbeResult()
	require.NoError(t, result.BuyFailed("EXCESSIVE_INPUT_AMOUNT"))
	buf.Reset()
	printResult(&buf, pool, result, meta, model.ETH)
	assert.Equal(t, "CAND/WETH 0xaaa: unable to buy CAND with 0.1 ETH: EXCESSIVE_INPUT_AMOUNT\n", buf.String())
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger("loud")
	require.Error(t, err)

	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

type scriptedRunner struct {
	results map[string]*model.ProbeResult
	errs    map[string]error
	runs    []string
}

func (r *scriptedRunner) Run(_ context.Context, pool model.Pool) (*model.ProbeResult, error) {
	r.runs = append(r.runs, pool.ID)
	return r.results[pool.ID], r.errs[pool.ID]
}

type memorySink struct {
	reports []model.ProbeReport
}

func (s *memorySink) PutReports(reports []model.ProbeReport) error {
	s.reports = append(s.reports, reports...)
	return nil
}

func sold() *model.ProbeResult {
	result := model.NewProbeResult()
	_ = result.BuySucceeded(big.NewInt(10))
	_ = result.SellSucceeded()
	return result
}

func newChecker(runner poolRunner, sink *memorySink, out *bytes.Buffer) (*checker, *int) {
	isolated := 0
	return &checker{
		isolate: func(ctx context.Context, fn func(context.Context) error) error {
			isolated++
			return fn(ctx)
		},
		runner: runner,
		sink:   sink,
		out:    out,
		meta:   model.TokenMeta{Symbol: "CAND"},
		base:   model.ETH,
		report: model.ProbeReport{Venue: "sushiswap", Base: "ETH", ForkBlock: 19_000_000},
		logger: zap.NewNop(),
	}, &isolated
}

func TestCheckerWritesCollectedReportsBeforeFailing(t *testing.T) {
	targets := append(pools(), model.Pool{ID: "0xccc", LockedValue: decimal.NewFromInt(1)})
	runner := &scriptedRunner{
		results: map[string]*model.ProbeResult{"0xaaa": sold()},
		errs:    map[string]error{"0xbbb": errors.New("get head: connection refused")},
	}
	sink := &memorySink{}
	var out bytes.Buffer
	c, isolated := newChecker(runner, sink, &out)

	err := c.check(context.Background(), targets)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xbbb")
	assert.Equal(t, []string{"0xaaa", "0xbbb"}, runner.runs, "stops at the first failing pool")
	assert.Equal(t, 2, *isolated)

	require.Len(t, sink.reports, 1)
	assert.Equal(t, "0xaaa", sink.reports[0].Pool.ID)
	assert.Equal(t, uint64(19_000_000), sink.reports[0].ForkBlock)
	assert.Equal(t, model.StageSellSucceeded, sink.reports[0].Result.Stage)
}

func TestCheckerKeepsPartialResultOfFailedPool(t *testing.T) {
	partial := model.NewProbeResult()
	partial.BuyTx = "0xfeed"
	runner := &scriptedRunner{
		results: map[string]*model.ProbeResult{"0xaaa": partial},
		errs:    map[string]error{"0xaaa": errors.New("read balance after buy 0xfeed: timeout")},
	}
	sink := &memorySink{}
	c, _ := newChecker(runner, sink, &bytes.Buffer{})

	require.Error(t, c.check(context.Background(), pools()))
	require.Len(t, sink.reports, 1)
	assert.Equal(t, "0xfeed", sink.reports[0].Result.BuyTx)
}

func TestCheckerSkipsPoolsBelowFloor(t *testing.T) {
	runner := &scriptedRunner{
		results: map[string]*model.ProbeResult{"0xaaa": sold()},
		errs:    map[string]error{"0xbbb": probe.ErrInsufficientLiquidity},
	}
	sink := &memorySink{}
	var out bytes.Buffer
	c, _ := newChecker(runner, sink, &out)

	require.NoError(t, c.check(context.Background(), pools()))
	require.Len(t, sink.reports, 1)
	assert.Contains(t, out.String(), "0xbbb: skipped")
	assert.Contains(t, out.String(), "tradeable")
}
