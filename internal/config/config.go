package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deltafi-trade/swap-core/internal/account"
)

// Well-known program and account identities, hex-encoded. These are the
// mainnet defaults; test deployments override them.
const (
	DefaultPythProgramID    = "dce5ebe1e49c3b9f114cb5544c50a99ec0d692d63f56795ae029ac83d9ea8be2"
	DefaultSerumProgramID   = "850f2d6e02a47af824d09ab69dc42d70cb28cbfa249fb7ee57b9d256c12762ef"
	DefaultSentinelReferrer = "4b981764a8c1722314f5bfcc80dcaba67fdda68b6f190125cadb6d31674c59d3"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	PythProgramID          string
	SerumProgramID         string
	SentinelReferrer       string
	RewardMint             string
	SwapOutLimitPercentage uint8
	StateFile              string
	Journal                string
	PostgresDSN            string
	LogLevel               string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("pyth-program-id", DefaultPythProgramID)
	v.SetDefault("serum-program-id", DefaultSerumProgramID)
	v.SetDefault("sentinel-referrer", DefaultSentinelReferrer)
	v.SetDefault("swap-out-limit", uint(10))
	v.SetDefault("state-file", "./data/pool.json")
	v.SetDefault("journal", "")
	v.SetDefault("pg-dsn", "")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	limit := v.GetUint("swap-out-limit")
	if limit == 0 || limit > 100 {
		return Config{}, fmt.Errorf("swap-out-limit %d outside (0,100]", limit)
	}

	cfg := Config{
		PythProgramID:          v.GetString("pyth-program-id"),
		SerumProgramID:         v.GetString("serum-program-id"),
		SentinelReferrer:       v.GetString("sentinel-referrer"),
		RewardMint:             v.GetString("reward-mint"),
		SwapOutLimitPercentage: uint8(limit),
		StateFile:              v.GetString("state-file"),
		Journal:                v.GetString("journal"),
		PostgresDSN:            v.GetString("pg-dsn"),
		LogLevel:               v.GetString("log-level"),
	}

	return cfg, nil
}

// Keys decodes the hex-encoded identities into account keys.
func (c Config) Keys() (pyth, serum, sentinel, rewardMint account.Key, err error) {
	if pyth, err = account.KeyFromHex(c.PythProgramID); err != nil {
		return pyth, serum, sentinel, rewardMint, fmt.Errorf("pyth-program-id: %w", err)
	}
	if serum, err = account.KeyFromHex(c.SerumProgramID); err != nil {
		return pyth, serum, sentinel, rewardMint, fmt.Errorf("serum-program-id: %w", err)
	}
	if sentinel, err = account.KeyFromHex(c.SentinelReferrer); err != nil {
		return pyth, serum, sentinel, rewardMint, fmt.Errorf("sentinel-referrer: %w", err)
	}
	if c.RewardMint != "" {
		if rewardMint, err = account.KeyFromHex(c.RewardMint); err != nil {
			return pyth, serum, sentinel, rewardMint, fmt.Errorf("reward-mint: %w", err)
		}
	}
	return pyth, serum, sentinel, rewardMint, nil
}
