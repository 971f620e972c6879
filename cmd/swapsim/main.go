package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/config"
	"github.com/deltafi-trade/swap-core/internal/engine"
	"github.com/deltafi-trade/swap-core/internal/fees"
	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
	"github.com/deltafi-trade/swap-core/internal/oracle"
	"github.com/deltafi-trade/swap-core/internal/pool"
)

func main() {
	root := &cobra.Command{
		Use:          "swapsim",
		Short:        "Oracle-driven AMM simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("state-file", "./data/pool.json", "simulation state file")
	root.PersistentFlags().String("journal", "", "trade journal JSONL path")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for trade mirroring")
	root.PersistentFlags().String("pyth-program-id", config.DefaultPythProgramID, "Pyth program id (hex)")
	root.PersistentFlags().String("serum-program-id", config.DefaultSerumProgramID, "order-book program id (hex)")
	root.PersistentFlags().String("sentinel-referrer", config.DefaultSentinelReferrer, "sentinel referrer key (hex)")
	root.PersistentFlags().String("reward-mint", "", "reward token mint (hex)")
	root.PersistentFlags().Uint("swap-out-limit", 10, "per-trade output limit, percent of reserve")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pool from pre-funded vaults",
		RunE:  runInit,
	}
	initCmd.Flags().String("base-mint", "", "base token mint (hex)")
	initCmd.Flags().String("quote-mint", "", "quote token mint (hex)")
	initCmd.Flags().Uint8("base-decimals", 9, "base token decimals")
	initCmd.Flags().Uint8("quote-decimals", 6, "quote token decimals")
	initCmd.Flags().String("swap-type", "normal", "pool kind (normal, stable)")
	initCmd.Flags().String("oracle", "pyth", "price source (pyth, serum)")
	initCmd.Flags().String("slope", "0.1", "curve slope in [0,1]")
	initCmd.Flags().String("mid-price", "", "fallback price when the oracle is unavailable")
	initCmd.Flags().Uint64("base-amount", 0, "initial base vault funding")
	initCmd.Flags().Uint64("quote-amount", 0, "initial quote vault funding")
	initCmd.Flags().Uint64("trade-fee-num", 5, "trade fee numerator")
	initCmd.Flags().Uint64("trade-fee-denom", 1000, "trade fee denominator")
	initCmd.Flags().Uint64("admin-trade-fee-num", 20, "admin trade fee numerator")
	initCmd.Flags().Uint64("admin-trade-fee-denom", 100, "admin trade fee denominator")
	initCmd.Flags().Uint64("withdraw-fee-num", 2, "withdraw fee numerator")
	initCmd.Flags().Uint64("withdraw-fee-denom", 1000, "withdraw fee denominator")
	initCmd.Flags().Uint64("admin-withdraw-fee-num", 20, "admin withdraw fee numerator")
	initCmd.Flags().Uint64("admin-withdraw-fee-denom", 100, "admin withdraw fee denominator")
	initCmd.Flags().Uint64("trade-reward-num", 1, "trade reward numerator")
	initCmd.Flags().Uint64("trade-reward-denom", 1000, "trade reward denominator")
	initCmd.Flags().Uint64("trade-reward-cap", 1_000_000_000, "trade reward cap")
	initCmd.Flags().Uint64("referral-reward-num", 10, "referral reward numerator")
	initCmd.Flags().Uint64("referral-reward-denom", 100, "referral reward denominator")
	initCmd.Flags().Uint8("reward-decimals", 6, "reward token decimals")
	initCmd.Flags().Uint64("slot", 1, "simulated slot")
	addOracleDumpFlags(initCmd)
	root.AddCommand(initCmd)

	root.AddCommand(newFundCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newSwapCmd())
	root.AddCommand(newDepositCmd())
	root.AddCommand(newWithdrawCmd())
	root.AddCommand(newSetReferrerCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addOracleDumpFlags(cmd *cobra.Command) {
	cmd.Flags().String("pyth-base-product", "", "Pyth base product account dump")
	cmd.Flags().String("pyth-base-price", "", "Pyth base price account dump")
	cmd.Flags().String("pyth-quote-product", "", "Pyth quote product account dump")
	cmd.Flags().String("pyth-quote-price", "", "Pyth quote price account dump")
	cmd.Flags().String("serum-market", "", "order-book market account dump")
	cmd.Flags().String("serum-bids", "", "order-book bids account dump")
	cmd.Flags().String("serum-asks", "", "order-book asks account dump")
}

func oracleAccountsFromFlags(cmd *cobra.Command) (engine.OracleAccounts, error) {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return loadOracleAccounts(
		get("pyth-base-product"), get("pyth-base-price"),
		get("pyth-quote-product"), get("pyth-quote-price"),
		get("serum-market"), get("serum-bids"), get("serum-asks"),
	)
}

// commandEnv is everything a subcommand needs after config load.
type commandEnv struct {
	cfg    config.Config
	logger *zap.Logger
	eng    *engine.Engine
	state  *simState
}

// setupEnv loads config, the logger, the state file and builds the
// engine. loadState=false starts a fresh simulation (init only).
func setupEnv(cmd *cobra.Command, loadState bool) (*commandEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	state := newSimState()
	if loadState {
		if state, err = loadSimState(cfg.StateFile); err != nil {
			return nil, err
		}
	}

	pythID, serumID, sentinel, rewardMint, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if rewardMint.IsZero() {
		rewardMint = deriveKey("reward-mint")
	}
	resolver := oracle.NewResolver(pythID, serumID, logger)
	eng := engine.New(resolver, state.Ledger, state.Referrals, engine.Config{
		SentinelReferrer: sentinel,
		RewardMint:       rewardMint,
	}, logger)

	return &commandEnv{cfg: cfg, logger: logger, eng: eng, state: state}, nil
}

func runInit(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, false)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	flags := cmd.Flags()
	getStr := func(name string) string { v, _ := flags.GetString(name); return v }
	getU64 := func(name string) uint64 { v, _ := flags.GetUint64(name); return v }
	getU8 := func(name string) uint8 { v, _ := flags.GetUint8(name); return v }

	baseMint, err := keyFlag(getStr("base-mint"), "base-mint")
	if err != nil {
		return err
	}
	quoteMint, err := keyFlag(getStr("quote-mint"), "quote-mint")
	if err != nil {
		return err
	}

	var swapType engine.SwapType
	switch getStr("swap-type") {
	case "normal":
		swapType = engine.SwapTypeNormal
	case "stable":
		swapType = engine.SwapTypeStable
	default:
		return fmt.Errorf("unknown swap type %q", getStr("swap-type"))
	}

	var priority oracle.Priority
	switch getStr("oracle") {
	case "pyth":
		priority = oracle.PriorityPythOnly
	case "serum":
		priority = oracle.PrioritySerumOnly
	default:
		return fmt.Errorf("unknown oracle source %q", getStr("oracle"))
	}

	slope, err := fixedpoint.Parse(getStr("slope"))
	if err != nil {
		return err
	}
	midPrice := fixedpoint.Zero()
	if s := getStr("mid-price"); s != "" {
		if midPrice, err = fixedpoint.Parse(s); err != nil {
			return err
		}
	}

	state := env.state
	state.PoolKey = deriveKey("pool", baseMint.String(), quoteMint.String())
	state.Slot, _ = flags.GetUint64("slot")

	p := state.Pool
	p.SwapType = swapType
	p.OraclePriority = priority
	p.BaseMint = baseMint
	p.QuoteMint = quoteMint
	p.BaseVault = deriveKey("base-vault", state.PoolKey.String())
	p.QuoteVault = deriveKey("quote-vault", state.PoolKey.String())
	p.PoolMint = deriveKey("pool-mint", state.PoolKey.String())
	p.AdminFeeBase = deriveKey("admin-fee-base", state.PoolKey.String())
	p.AdminFeeQuote = deriveKey("admin-fee-quote", state.PoolKey.String())
	p.BaseDecimals = getU8("base-decimals")
	p.QuoteDecimals = getU8("quote-decimals")
	p.SwapOutLimitPercentage = env.cfg.SwapOutLimitPercentage
	p.Fees = fees.Fees{
		TradeFeeNumerator:           getU64("trade-fee-num"),
		TradeFeeDenominator:         getU64("trade-fee-denom"),
		AdminTradeFeeNumerator:      getU64("admin-trade-fee-num"),
		AdminTradeFeeDenominator:    getU64("admin-trade-fee-denom"),
		WithdrawFeeNumerator:        getU64("withdraw-fee-num"),
		WithdrawFeeDenominator:      getU64("withdraw-fee-denom"),
		AdminWithdrawFeeNumerator:   getU64("admin-withdraw-fee-num"),
		AdminWithdrawFeeDenominator: getU64("admin-withdraw-fee-denom"),
	}
	p.Rewards = fees.Rewards{
		TradeRewardNumerator:      getU64("trade-reward-num"),
		TradeRewardDenominator:    getU64("trade-reward-denom"),
		TradeRewardCap:            getU64("trade-reward-cap"),
		ReferralRewardNumerator:   getU64("referral-reward-num"),
		ReferralRewardDenominator: getU64("referral-reward-denom"),
		Decimals:                  getU8("reward-decimals"),
	}

	// Pre-fund the vaults; Initialize prices whatever they hold.
	for _, setup := range []struct {
		key  account.Key
		mint account.Key
	}{
		{p.BaseVault, p.BaseMint},
		{p.QuoteVault, p.QuoteMint},
		{p.AdminFeeBase, p.BaseMint},
		{p.AdminFeeQuote, p.QuoteMint},
	} {
		if err := state.Ledger.CreateAccount(setup.key, setup.mint); err != nil {
			return err
		}
	}
	if amount := getU64("base-amount"); amount > 0 {
		if err := state.Ledger.MintTo(p.BaseMint, p.BaseVault, amount); err != nil {
			return err
		}
	}
	if amount := getU64("quote-amount"); amount > 0 {
		if err := state.Ledger.MintTo(p.QuoteMint, p.QuoteVault, amount); err != nil {
			return err
		}
	}

	oracles, err := oracleAccountsFromFlags(cmd)
	if err != nil {
		return err
	}

	minted, err := env.eng.Initialize(p, engine.InitializeParams{
		Slope:            slope,
		MidPrice:         midPrice,
		Oracles:          oracles,
		CurrentSlot:      state.Slot,
		ShareDestination: deriveKey("founder-shares", state.PoolKey.String()),
	})
	if err != nil {
		return err
	}

	if err := saveSimState(env.cfg.StateFile, state); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pool %s initialized, %d shares minted\n", state.PoolKey, minted)
	return nil
}

func direction(name string) (pool.Direction, error) {
	switch name {
	case "sell_base", "sell-base":
		return pool.SellBase, nil
	case "sell_quote", "sell-quote":
		return pool.SellQuote, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", name)
	}
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
