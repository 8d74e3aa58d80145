package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SNIPER"

// Index backends for pool discovery.
const (
	IndexSubgraph = "subgraph"
	IndexPostgres = "postgres"
)

// DiscoveryConfig selects the venue, the token pair and the pool index to query.
type DiscoveryConfig struct {
	Venue      string
	Token      string
	Base       string
	Index      string
	PGDSN      string
	Subgraph   map[string]string
	QueryRate  float64
	QueryBurst int
	LogLevel   string
}

// LoadPools merges config file, environment variables, and flags into DiscoveryConfig.
func LoadPools(cfgFile string, flags *pflag.FlagSet) (DiscoveryConfig, error) {
	v, err := readConfig(cfgFile, flags)
	if err != nil {
		return DiscoveryConfig{}, err
	}
	return loadDiscovery(v)
}

func setDiscoveryDefaults(v *viper.Viper) {
	v.SetDefault("venue", "uniswapv2")
	v.SetDefault("base", "eth")
	v.SetDefault("index", IndexSubgraph)
	v.SetDefault("query-rate", 2.0)
	v.SetDefault("query-burst", 1)
	v.SetDefault("log-level", "info")
}

func loadDiscovery(v *viper.Viper) (DiscoveryConfig, error) {
	cfg := DiscoveryConfig{
		Venue:      strings.ToLower(strings.TrimSpace(v.GetString("venue"))),
		Token:      strings.TrimSpace(v.GetString("token")),
		Base:       v.GetString("base"),
		Index:      strings.ToLower(strings.TrimSpace(v.GetString("index"))),
		PGDSN:      v.GetString("pg-dsn"),
		Subgraph:   getStringMap(v, "subgraph"),
		QueryRate:  v.GetFloat64("query-rate"),
		QueryBurst: v.GetInt("query-burst"),
		LogLevel:   v.GetString("log-level"),
	}

	switch cfg.Index {
	case IndexSubgraph:
	case IndexPostgres:
		if cfg.PGDSN == "" {
			return DiscoveryConfig{}, fmt.Errorf("pg-dsn is required for the postgres index")
		}
	default:
		return DiscoveryConfig{}, fmt.Errorf("unknown index: %s", cfg.Index)
	}
	return cfg, nil
}

func readConfig(cfgFile string, flags *pflag.FlagSet, defaults ...func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	setDiscoveryDefaults(v)
	for _, setDefaults := range defaults {
		setDefaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// getStringMap reads a venue->value map, either nested in the config file
// or flattened as "k=v,k=v" in a flag or env var.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	switch typed := v.Get(key).(type) {
	case map[string]string:
		return lowerKeys(typed)
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, val := range typed {
			out[k] = fmt.Sprintf("%v", val)
		}
		return lowerKeys(out)
	case string:
		return lowerKeys(parseStringMap(typed))
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitAndClean(input) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	return cleanStrings(strings.Split(input, ","))
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// durationOr returns the duration under key, or fallback when unset or invalid.
func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}
