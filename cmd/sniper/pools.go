package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"honeypotScope/internal/config"
	"honeypotScope/internal/discovery"
	"honeypotScope/internal/metrics"
	"honeypotScope/internal/model"
	"honeypotScope/internal/storage/postgres"
	"honeypotScope/internal/venue"
)

func runPools(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPools(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	v, err := venue.Lookup(cfg.Venue)
	if err != nil {
		return err
	}
	base, err := model.ParseBaseAsset(cfg.Base)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, closeSource, err := newDiscovery(ctx, cfg, v, nil, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	pools, err := client.Discover(ctx, cfg.Token, base)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no %s pool pairs %s with %s\n", v.Name, cfg.Token, base.Symbol)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "POOL\tPAIR\tLOCKED %s\tELIGIBLE\n", base.Symbol)
	for _, pool := range pools {
		fmt.Fprintf(w, "%s\t%s/%s\t%s\t%t\n",
			pool.ID, pool.Token0.Symbol, pool.Token1.Symbol, pool.LockedValue.String(), v.MeetsFloor(pool.LockedValue))
	}
	return w.Flush()
}

// newDiscovery builds a discovery client on the configured index. The returned
// func releases the index connection.
func newDiscovery(ctx context.Context, cfg config.DiscoveryConfig, v venue.Venue, rec *metrics.Recorder, logger *zap.Logger) (*discovery.Client, func(), error) {
	opts := discovery.Options{
		QueryRate:  cfg.QueryRate,
		QueryBurst: cfg.QueryBurst,
		Metrics:    rec,
	}

	switch cfg.Index {
	case config.IndexPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("pool index", zap.String("index", cfg.Index), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
		return discovery.NewClient(v.Name, store, opts, logger), store.Close, nil
	default:
		source := discovery.NewSubgraphSource(cfg.Subgraph, &http.Client{Timeout: 30 * time.Second})
		logger.Info("pool index", zap.String("index", cfg.Index), zap.Int("overrides", len(cfg.Subgraph)))
		return discovery.NewClient(v.Name, source, opts, logger), func() {}, nil
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
