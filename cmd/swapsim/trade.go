package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/engine"
	"github.com/deltafi-trade/swap-core/internal/model"
	"github.com/deltafi-trade/swap-core/internal/pool"
	"github.com/deltafi-trade/swap-core/internal/storage"
	"github.com/deltafi-trade/swap-core/internal/storage/postgres"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a trade against the current pool state",
		RunE:  runQuote,
	}
	cmd.Flags().Uint64("amount-in", 0, "input amount, raw units")
	cmd.Flags().String("direction", "sell_base", "trade direction (sell_base, sell_quote)")
	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	dirName, _ := cmd.Flags().GetString("direction")
	dir, err := direction(dirName)
	if err != nil {
		return err
	}

	p := env.state.Pool
	if !p.IsInitialized {
		return fmt.Errorf("pool not initialized")
	}
	receive, err := p.State.GetOutAmount(amountIn, dir)
	if err != nil {
		return err
	}
	tradeFee, err := p.Fees.TradeFee(receive)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "direction=%s amount_in=%d amount_out=%d trade_fee=%d\n",
		dir, amountIn, receive-tradeFee, tradeFee)
	return nil
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Execute a trade",
		RunE:  runSwap,
	}
	cmd.Flags().Uint64("amount-in", 0, "input amount, raw units")
	cmd.Flags().Uint64("min-out", 0, "minimum acceptable output")
	cmd.Flags().String("direction", "sell_base", "trade direction (sell_base, sell_quote)")
	cmd.Flags().String("owner", "trader", "trader identity (hex key or label)")
	cmd.Flags().Uint64("slot", 0, "simulated slot (0 advances by one)")
	addOracleDumpFlags(cmd)
	return cmd
}

func runSwap(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	flags := cmd.Flags()
	amountIn, _ := flags.GetUint64("amount-in")
	minOut, _ := flags.GetUint64("min-out")
	dirName, _ := flags.GetString("direction")
	ownerName, _ := flags.GetString("owner")
	slot, _ := flags.GetUint64("slot")

	dir, err := direction(dirName)
	if err != nil {
		return err
	}
	owner, err := keyFlag("", "owner", ownerName)
	if err != nil {
		return err
	}
	if slot == 0 {
		slot = env.state.Slot + 1
	}
	env.state.Slot = slot

	oracles, err := oracleAccountsFromFlags(cmd)
	if err != nil {
		return err
	}

	p := env.state.Pool
	sourceMint, destMint := p.BaseMint, p.QuoteMint
	if dir == pool.SellQuote {
		sourceMint, destMint = p.QuoteMint, p.BaseMint
	}
	params := engine.SwapParams{
		SourceMint:      sourceMint,
		DestinationMint: destMint,
		UserSource:      deriveKey("user", ownerName, sourceMint.String()),
		UserDestination: deriveKey("user", ownerName, destMint.String()),
		UserReward:      deriveKey("user-reward", ownerName),
		Owner:           owner,
		AmountIn:        amountIn,
		MinAmountOut:    minOut,
		Oracles:         oracles,
		CurrentSlot:     slot,
	}

	var receipt engine.SwapReceipt
	if p.SwapType == engine.SwapTypeStable {
		receipt, err = env.eng.StableSwap(p, params)
	} else {
		receipt, err = env.eng.Swap(p, params)
	}
	if err != nil {
		return err
	}

	if err := saveSimState(env.cfg.StateFile, env.state); err != nil {
		return err
	}
	if err := mirrorTrade(env, owner, receipt); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "direction=%s amount_in=%d amount_out=%d trade_fee=%d reward=%d\n",
		receipt.Direction, receipt.AmountIn, receipt.AmountOut, receipt.TradeFee, receipt.Reward)
	return nil
}

// mirrorTrade records an executed trade in the JSONL journal and the
// optional Postgres sink.
func mirrorTrade(env *commandEnv, owner account.Key, receipt engine.SwapReceipt) error {
	state := env.state
	record := model.TradeRecord{
		Pool:           state.PoolKey,
		Owner:          owner,
		Direction:      receipt.Direction.String(),
		AmountIn:       receipt.AmountIn,
		AmountOut:      receipt.AmountOut,
		TradeFee:       receipt.TradeFee,
		AdminFee:       receipt.AdminFee,
		Reward:         receipt.Reward,
		ReferralReward: receipt.ReferralReward,
		MarketPrice:    state.Pool.State.MarketPrice.String(),
		Slot:           state.Slot,
		ExecutedAt:     time.Now().UTC(),
	}

	if env.cfg.Journal != "" {
		journal := storage.NewJsonlJournal(env.cfg.Journal)
		if err := journal.PutTradeBatch([]model.TradeRecord{record}); err != nil {
			return err
		}
	}

	if env.cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := postgres.NewStore(ctx, env.cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InsertTrades(ctx, []model.TradeRecord{record}); err != nil {
			return err
		}
		snapshot, err := poolSnapshot(state)
		if err != nil {
			return err
		}
		if err := store.UpsertPoolSnapshots(ctx, []model.PoolSnapshot{snapshot}); err != nil {
			return err
		}
		env.logger.Debug("trade mirrored to postgres", zap.String("pool", state.PoolKey.String()))
	}
	return nil
}

func poolSnapshot(state *simState) (model.PoolSnapshot, error) {
	p := state.Pool
	baseReserve, err := p.State.BaseReserve.TryFloor()
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	quoteReserve, err := p.State.QuoteReserve.TryFloor()
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	return model.PoolSnapshot{
		Pool:         state.PoolKey,
		BaseMint:     p.BaseMint,
		QuoteMint:    p.QuoteMint,
		SwapType:     p.SwapType.String(),
		BaseReserve:  baseReserve,
		QuoteReserve: quoteReserve,
		TotalSupply:  p.State.TotalSupply,
		MarketPrice:  p.State.MarketPrice.String(),
		Slot:         state.Slot,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}
