package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CheckConfig holds everything the check command needs: discovery plus the fork.
type CheckConfig struct {
	Discovery DiscoveryConfig

	RPCURL      string
	ForkRPC     string
	ForkDialect string
	AnvilPath   string
	AnvilPort   int
	Seed        string
	GasLimit    uint64
	InitRetries int
	InitBackoff time.Duration

	Pools       []string
	All         bool
	Report      string
	MetricsAddr string
}

func setCheckDefaults(v *viper.Viper) {
	v.SetDefault("fork-dialect", "anvil")
	v.SetDefault("anvil-port", 8545)
	v.SetDefault("gas-limit", uint64(1_000_000_000))
	v.SetDefault("init-retries", 5)
	v.SetDefault("init-backoff", 500*time.Millisecond)
	v.SetDefault("report", "./data/probe_reports.jsonl")
}

// LoadCheck merges config file, environment variables, and flags into CheckConfig.
func LoadCheck(cfgFile string, flags *pflag.FlagSet) (CheckConfig, error) {
	v, err := readConfig(cfgFile, flags, setCheckDefaults)
	if err != nil {
		return CheckConfig{}, err
	}
	discovery, err := loadDiscovery(v)
	if err != nil {
		return CheckConfig{}, err
	}

	cfg := CheckConfig{
		Discovery:   discovery,
		RPCURL:      v.GetString("rpc"),
		ForkRPC:     v.GetString("fork-rpc"),
		ForkDialect: v.GetString("fork-dialect"),
		AnvilPath:   v.GetString("anvil-path"),
		AnvilPort:   v.GetInt("anvil-port"),
		Seed:        v.GetString("seed"),
		GasLimit:    v.GetUint64("gas-limit"),
		InitRetries: v.GetInt("init-retries"),
		InitBackoff: durationOr(v, "init-backoff", 500*time.Millisecond),
		Pools:       getStringSlice(v, "pool"),
		All:         v.GetBool("all"),
		Report:      v.GetString("report"),
		MetricsAddr: v.GetString("metrics-addr"),
	}

	switch cfg.ForkDialect {
	case "anvil", "hardhat":
	default:
		return CheckConfig{}, fmt.Errorf("unknown fork dialect: %s", cfg.ForkDialect)
	}
	if cfg.All && len(cfg.Pools) > 0 {
		return CheckConfig{}, fmt.Errorf("--all and --pool are mutually exclusive")
	}
	return cfg, nil
}
