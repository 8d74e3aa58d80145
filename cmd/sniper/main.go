package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"honeypotScope/internal/venue"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "sniper",
		Short:        "Honeypot detector for DEX-listed tokens",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(&cobra.Command{
		Use:   "venues",
		Short: "List supported venues",
		Args:  cobra.NoArgs,
		RunE:  runVenues,
	})

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Discover the pools pairing a token with a base asset",
		Args:  cobra.NoArgs,
		RunE:  runPools,
	}
	addDiscoveryFlags(poolsCmd)
	root.AddCommand(poolsCmd)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Buy and sell a token on a fork to detect a honeypot",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	addDiscoveryFlags(checkCmd)
	checkCmd.Flags().String("rpc", "", "upstream Ethereum RPC URL to fork from")
	checkCmd.Flags().String("fork-rpc", "", "RPC URL of a running fork node (anvil or hardhat)")
	checkCmd.Flags().String("fork-dialect", "anvil", "node control namespace (anvil, hardhat)")
	checkCmd.Flags().String("anvil-path", "", "anvil binary to launch when no fork-rpc is given")
	checkCmd.Flags().Int("anvil-port", 8545, "port for a launched anvil")
	checkCmd.Flags().String("seed", "", "seed phrase the simulated account key is derived from")
	checkCmd.Flags().Uint64("gas-limit", 1_000_000_000, "fork block gas limit")
	checkCmd.Flags().Int("init-retries", 5, "retries while the fork comes up")
	checkCmd.Flags().Duration("init-backoff", 500*time.Millisecond, "initial fork init backoff")
	checkCmd.Flags().StringSlice("pool", nil, "pool ids to probe (comma-separated), default the deepest pool")
	checkCmd.Flags().Bool("all", false, "probe every discovered pool")
	checkCmd.Flags().String("report", "./data/probe_reports.jsonl", "JSONL report output path, empty to disable")
	checkCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	root.AddCommand(checkCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().String("venue", "uniswapv2", "venue (uniswapv2, uniswapv3, sushiswap)")
	cmd.Flags().String("token", "", "candidate token address")
	cmd.Flags().String("base", "eth", "base asset (eth, usdc)")
	cmd.Flags().String("index", "subgraph", "pool index backend (subgraph, postgres)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres index")
	cmd.Flags().String("subgraph", "", "subgraph endpoint overrides (comma-separated venue=url)")
	cmd.Flags().Float64("query-rate", 2, "maximum index queries per second")
	cmd.Flags().Int("query-burst", 1, "index query burst")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func runVenues(cmd *cobra.Command, _ []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VENUE\tKIND\tROUTER\tFLOOR")
	for _, v := range venue.All() {
		floor := ">= " + v.Floor.String()
		if v.FloorExclusive {
			floor = "> " + v.Floor.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, v.Kind, v.Router.Hex(), floor)
	}
	return w.Flush()
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
