package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"honeypotScope/internal/config"
	"honeypotScope/internal/dex"
	"honeypotScope/internal/fork"
	"honeypotScope/internal/metrics"
	"honeypotScope/internal/model"
	"honeypotScope/internal/probe"
	"honeypotScope/internal/storage"
	"honeypotScope/internal/venue"
)

// stablecoinFunding is the native amount swapped into an ERC20 base asset at fork start.
var stablecoinFunding = new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))

func runCheck(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCheck(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Discovery.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Discovery.Token == "" {
		return fmt.Errorf("token is required")
	}
	v, err := venue.Lookup(cfg.Discovery.Venue)
	if err != nil {
		return err
	}
	base, err := model.ParseBaseAsset(cfg.Discovery.Base)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, registry, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	client, closeSource, err := newDiscovery(ctx, cfg.Discovery, v, recorder, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	discovered, err := client.Discover(ctx, cfg.Discovery.Token, base)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(discovered) == 0 {
		fmt.Fprintf(out, "no %s pool pairs %s with %s\n", v.Name, cfg.Discovery.Token, base.Symbol)
		return nil
	}
	targets, err := selectPools(discovered, cfg.Pools, cfg.All)
	if err != nil {
		return err
	}

	forkCfg := fork.Config{
		UpstreamURL: cfg.RPCURL,
		ForkURL:     cfg.ForkRPC,
		AnvilPath:   cfg.AnvilPath,
		AnvilPort:   cfg.AnvilPort,
		Dialect:     cfg.ForkDialect,
		Seed:        cfg.Seed,
		GasLimit:    cfg.GasLimit,
		InitRetries: cfg.InitRetries,
		InitBackoff: cfg.InitBackoff,
	}
	if !base.Native {
		forkCfg.Funding = &fork.Funding{
			Router: venue.UniswapV2.Router,
			WETH:   model.WETHAddress,
			Token:  base.Address,
			Spend:  stablecoinFunding,
		}
	}
	session, err := fork.NewProvider(forkCfg, logger).Start(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	fees, err := dex.NewPoolFeeCache(0)
	if err != nil {
		return err
	}
	adapter, err := venue.NewAdapter(v, session, fees, logger)
	if err != nil {
		return err
	}
	runner := probe.NewRunner(probe.Config{
		Venue:   v,
		Base:    base,
		Metrics: recorder,
		OnPhase: func(phase probe.Phase) {
			logger.Debug("probe phase", zap.Stringer("phase", phase))
		},
	}, adapter, session, logger)

	tokens, err := dex.NewTokenMetaCache(0)
	if err != nil {
		return err
	}
	meta, err := tokens.Resolve(ctx, session, common.HexToAddress(targets[0].Token0.ID), logger)
	if err != nil {
		logger.Warn("token metadata unavailable", zap.Error(err))
		meta = model.TokenMeta{Symbol: targets[0].Token0.Symbol, Decimals: 18}
	}

	logger.Info("check start",
		zap.String("venue", v.Name),
		zap.String("token", cfg.Discovery.Token),
		zap.String("base", base.Symbol),
		zap.Int("pools", len(targets)),
		zap.Uint64("fork_block", session.ForkBlock()),
	)

	var sink storage.ReportSink
	if cfg.Report != "" {
		sink = storage.NewJsonlStorage(cfg.Report)
	}
	c := &checker{
		isolate: session.Isolate,
		runner:  runner,
		sink:    sink,
		out:     out,
		meta:    meta,
		base:    base,
		report: model.ProbeReport{
			Venue:     v.Name,
			Base:      base.Symbol,
			Token:     cfg.Discovery.Token,
			ForkBlock: session.ForkBlock(),
		},
		logger: logger,
	}
	return c.check(ctx, targets)
}

type poolRunner interface {
	Run(ctx context.Context, pool model.Pool) (*model.ProbeResult, error)
}

// checker probes pools one by one, each inside its own fork snapshot.
type checker struct {
	isolate func(context.Context, func(context.Context) error) error
	runner  poolRunner
	sink    storage.ReportSink
	out     io.Writer
	meta    model.TokenMeta
	base    model.BaseAsset
	// report carries the fields shared by every report of the run.
	report model.ProbeReport
	logger *zap.Logger
}

// check probes targets in order and stops at the first probe error. Reports
// collected up to that point are written either way.
func (c *checker) check(ctx context.Context, targets []model.Pool) error {
	var (
		reports []model.ProbeReport
		runErr  error
	)
	for _, pool := range targets {
		report := c.report
		report.Pool = pool
		report.StartedAt = time.Now().UTC()

		var result *model.ProbeResult
		err := c.isolate(ctx, func(ctx context.Context) error {
			var err error
			result, err = c.runner.Run(ctx, pool)
			return err
		})
		report.FinishedAt = time.Now().UTC()

		if errors.Is(err, probe.ErrInsufficientLiquidity) {
			fmt.Fprintf(c.out, "%s: skipped, %v\n", pool.Label(), err)
			continue
		}
		if result != nil {
			report.Result = result
			reports = append(reports, report)
		}
		if err != nil {
			runErr = fmt.Errorf("probe %s: %w", pool.ID, err)
			break
		}
		printResult(c.out, pool, result, c.meta, c.base)
	}

	if err := c.flush(reports); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (c *checker) flush(reports []model.ProbeReport) error {
	if c.sink == nil || len(reports) == 0 {
		return nil
	}
	if err := c.sink.PutReports(reports); err != nil {
		return err
	}
	c.logger.Info("reports written", zap.Int("count", len(reports)))
	return nil
}

// selectPools narrows the discovered pools, richest first, to the probe targets:
// the listed ids, every pool, or the deepest one.
func selectPools(pools []model.Pool, ids []string, all bool) ([]model.Pool, error) {
	if all {
		return pools, nil
	}
	if len(ids) == 0 {
		return pools[:1], nil
	}

	selected := make([]model.Pool, 0, len(ids))
	for _, id := range ids {
		found := false
		for _, pool := range pools {
			if model.SamePool(pool.ID, id) {
				selected = append(selected, pool)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("pool %s was not discovered", id)
		}
	}
	return selected, nil
}

func printResult(w io.Writer, pool model.Pool, result *model.ProbeResult, meta model.TokenMeta, base model.BaseAsset) {
	outlay := base.Outlay.String() + " " + base.Symbol
	switch result.Stage {
	case model.StageBuyFailed:
		fmt.Fprintf(w, "%s: unable to buy %s with %s: %s\n", pool.Label(), meta.Display(), outlay, result.Reason)
	case model.StageSellFailed:
		fmt.Fprintf(w, "%s: HONEYPOT, bought %s %s with %s but the sell reverted: %s\n",
			pool.Label(), dex.FormatTokenAmount(result.Balance, meta.Decimals), meta.Display(), outlay, result.Reason)
	case model.StageSellSucceeded:
		line := fmt.Sprintf("%s: tradeable, bought %s %s with %s and sold it back",
			pool.Label(), dex.FormatTokenAmount(result.Balance, meta.Decimals), meta.Display(), outlay)
		if result.BuyTax != "" && result.BuyTax != "0" {
			line += fmt.Sprintf(" (buy tax %s%%)", result.BuyTax)
		}
		fmt.Fprintln(w, line)
	default:
		fmt.Fprintf(w, "%s: probe ended in %s\n", pool.Label(), result.Stage)
	}
}
