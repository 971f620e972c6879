package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/engine"
)

func newFundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Mint tokens into a user account",
		RunE:  runFund,
	}
	cmd.Flags().String("owner", "trader", "account owner (label)")
	cmd.Flags().String("side", "base", "token side (base, quote)")
	cmd.Flags().Uint64("amount", 0, "amount to mint")
	return cmd
}

func runFund(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	ownerName, _ := cmd.Flags().GetString("owner")
	side, _ := cmd.Flags().GetString("side")
	amount, _ := cmd.Flags().GetUint64("amount")

	p := env.state.Pool
	mint := p.BaseMint
	switch side {
	case "base":
	case "quote":
		mint = p.QuoteMint
	default:
		return fmt.Errorf("unknown side %q", side)
	}

	dest := deriveKey("user", ownerName, mint.String())
	if err := env.state.Ledger.MintTo(mint, dest, amount); err != nil {
		return err
	}
	if err := saveSimState(env.cfg.StateFile, env.state); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "minted %d %s tokens to %s\n", amount, side, dest)
	return nil
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add two-sided liquidity",
		RunE:  runDeposit,
	}
	cmd.Flags().Uint64("base-amount", 0, "base contribution, raw units")
	cmd.Flags().Uint64("quote-amount", 0, "quote contribution, raw units")
	cmd.Flags().Uint64("min-mint", 0, "minimum acceptable share mint")
	cmd.Flags().String("owner", "trader", "depositor identity (label)")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	flags := cmd.Flags()
	baseAmount, _ := flags.GetUint64("base-amount")
	quoteAmount, _ := flags.GetUint64("quote-amount")
	minMint, _ := flags.GetUint64("min-mint")
	ownerName, _ := flags.GetString("owner")

	p := env.state.Pool
	receipt, err := env.eng.Deposit(p, engine.DepositParams{
		BaseAmount:    baseAmount,
		QuoteAmount:   quoteAmount,
		MinMintAmount: minMint,
		UserBase:      deriveKey("user", ownerName, p.BaseMint.String()),
		UserQuote:     deriveKey("user", ownerName, p.QuoteMint.String()),
		UserShare:     deriveKey("user", ownerName, p.PoolMint.String()),
	})
	if err != nil {
		return err
	}

	if err := saveSimState(env.cfg.StateFile, env.state); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "minted %d shares for %d base / %d quote\n",
		receipt.MintAmount, receipt.BaseAmount, receipt.QuoteAmount)
	return nil
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Redeem pool shares",
		RunE:  runWithdraw,
	}
	cmd.Flags().Uint64("shares", 0, "share amount to redeem")
	cmd.Flags().Uint64("min-base", 0, "minimum acceptable base output")
	cmd.Flags().Uint64("min-quote", 0, "minimum acceptable quote output")
	cmd.Flags().String("owner", "trader", "redeemer identity (label)")
	return cmd
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	flags := cmd.Flags()
	shares, _ := flags.GetUint64("shares")
	minBase, _ := flags.GetUint64("min-base")
	minQuote, _ := flags.GetUint64("min-quote")
	ownerName, _ := flags.GetString("owner")

	p := env.state.Pool
	receipt, err := env.eng.Withdraw(p, engine.WithdrawParams{
		ShareAmount: shares,
		MinBaseOut:  minBase,
		MinQuoteOut: minQuote,
		UserBase:    deriveKey("user", ownerName, p.BaseMint.String()),
		UserQuote:   deriveKey("user", ownerName, p.QuoteMint.String()),
		UserShare:   deriveKey("user", ownerName, p.PoolMint.String()),
	})
	if err != nil {
		return err
	}

	if err := saveSimState(env.cfg.StateFile, env.state); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "redeemed %d shares for %d base / %d quote (fees %d/%d)\n",
		shares, receipt.BaseOut, receipt.QuoteOut, receipt.BaseFee, receipt.QuoteFee)
	return nil
}

func newSetReferrerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-referrer",
		Short: "Record a trader's referrer",
		RunE:  runSetReferrer,
	}
	cmd.Flags().String("owner", "trader", "trader identity (label)")
	cmd.Flags().String("referrer", "", "referrer reward account (hex key or label)")
	return cmd
}

func runSetReferrer(cmd *cobra.Command, _ []string) error {
	env, err := setupEnv(cmd, true)
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	ownerName, _ := cmd.Flags().GetString("owner")
	referrerName, _ := cmd.Flags().GetString("referrer")
	if referrerName == "" {
		return fmt.Errorf("referrer is required")
	}

	owner, err := keyFlag("", "owner", ownerName)
	if err != nil {
		return err
	}
	// A referrer given as a valid hex key is used verbatim; anything
	// else is treated as a label for a derived reward account.
	referrer, err := account.KeyFromHex(referrerName)
	if err != nil {
		referrer = deriveKey("user-reward", referrerName)
	}

	if err := env.eng.SetReferrer(owner, referrer); err != nil {
		return err
	}
	if err := saveSimState(env.cfg.StateFile, env.state); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "referrer %s recorded for %s\n", referrer, owner)
	return nil
}
