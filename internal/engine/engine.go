package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
	"github.com/deltafi-trade/swap-core/internal/oracle"
	"github.com/deltafi-trade/swap-core/internal/pool"
)

// Config carries the engine-wide identities that are not per-pool.
type Config struct {
	// SentinelReferrer marks "no referrer" in the referral store.
	SentinelReferrer account.Key
	// RewardMint is the protocol token minted as trade rewards.
	RewardMint account.Key
}

// Engine executes pool operations against a token ledger. It holds no
// per-pool state of its own: each call receives the PoolInfo it
// operates on with exclusive ownership and mutates it in place.
type Engine struct {
	resolver  *oracle.Resolver
	ledger    TokenLedger
	referrals ReferralStore
	cfg       Config
	logger    *zap.Logger
}

// New builds an Engine. A nil logger disables logging.
func New(resolver *oracle.Resolver, ledger TokenLedger, referrals ReferralStore, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		resolver:  resolver,
		ledger:    ledger,
		referrals: referrals,
		cfg:       cfg,
		logger:    logger,
	}
}

// OracleAccounts bundles the oracle accounts a caller supplies with a
// priced operation. Only the pool's active source is consulted.
type OracleAccounts struct {
	PythBaseProduct  *account.Account
	PythBasePrice    *account.Account
	PythQuoteProduct *account.Account
	PythQuotePrice   *account.Account
	Serum            oracle.SerumAccounts
}

// InitializeParams seeds a new pool. The PoolInfo passed alongside
// already carries the pair, vault, fee and decimal configuration; these
// are the call-scoped inputs.
type InitializeParams struct {
	Slope fixedpoint.Decimal
	// MidPrice is the caller's fallback price, used only when the
	// oracle cannot produce a quote at initialization time.
	MidPrice         fixedpoint.Decimal
	Oracles          OracleAccounts
	CurrentSlot      uint64
	ShareDestination account.Key
}

// Initialize brings a pool record live: it validates the configuration,
// binds the oracle accounts, prices the pre-funded vault balances and
// mints the founding shares.
func (e *Engine) Initialize(p *PoolInfo, params InitializeParams) (uint64, error) {
	if p.IsInitialized {
		return 0, ErrAlreadyInUse
	}
	if p.BaseMint == p.QuoteMint {
		return 0, ErrRepeatedMint
	}
	if params.Slope.Cmp(fixedpoint.One()) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSlope, params.Slope)
	}
	if err := p.Fees.Validate(); err != nil {
		return 0, err
	}
	if err := p.Rewards.Validate(); err != nil {
		return 0, err
	}

	price := fixedpoint.One()
	validSlot := params.CurrentSlot
	if p.SwapType == SwapTypeNormal {
		if err := e.bindOracle(p, params.Oracles); err != nil {
			return 0, err
		}
		quote, err := e.resolver.Resolve(
			p.OraclePriority,
			params.Oracles.PythBasePrice, params.Oracles.PythQuotePrice,
			params.Oracles.Serum,
			params.CurrentSlot,
			p.BaseDecimals, p.QuoteDecimals,
		)
		if err != nil {
			// Only initialization may fall back to the caller's price;
			// every later trade hard-fails on oracle rejection.
			if params.MidPrice.IsZero() {
				return 0, err
			}
			e.logger.Warn("oracle unavailable at init, using mid price",
				zap.Error(err), zap.String("mid_price", params.MidPrice.String()))
			quote = oracle.Quote{Price: params.MidPrice, ValidSlot: params.CurrentSlot}
		}
		price, validSlot = quote.Price, quote.ValidSlot
	}

	state := pool.NewState(pool.InitParams{
		Slope:                    params.Slope,
		LastMarketPrice:          price,
		LastValidMarketPriceSlot: validSlot,
	})
	if err := state.SetMarketPrice(p.BaseDecimals, p.QuoteDecimals, price); err != nil {
		return 0, err
	}

	baseBalance, err := e.ledger.Balance(p.BaseVault)
	if err != nil {
		return 0, err
	}
	quoteBalance, err := e.ledger.Balance(p.QuoteVault)
	if err != nil {
		return 0, err
	}
	mint, baseAccepted, quoteAccepted, err := state.BuyShares(baseBalance, quoteBalance)
	if err != nil {
		return 0, err
	}
	if baseAccepted != baseBalance || quoteAccepted != quoteBalance {
		return 0, ErrInconsistentInitialBalance
	}
	if err := state.CheckReserveAmount(baseBalance, quoteBalance); err != nil {
		return 0, err
	}
	if err := e.ledger.MintTo(p.PoolMint, params.ShareDestination, mint); err != nil {
		return 0, err
	}
	supply, err := e.ledger.Supply(p.PoolMint)
	if err != nil {
		return 0, err
	}
	if err := state.CheckMintSupply(supply); err != nil {
		return 0, err
	}

	p.State = state
	p.IsInitialized = true
	if p.SwapOutLimitPercentage == 0 {
		p.SwapOutLimitPercentage = DefaultSwapOutLimitPercentage
	}
	e.logger.Info("pool initialized",
		zap.String("base_mint", p.BaseMint.String()),
		zap.String("quote_mint", p.QuoteMint.String()),
		zap.String("swap_type", p.SwapType.String()),
		zap.String("market_price", price.String()),
		zap.Uint64("share_mint", mint))
	return mint, nil
}

// bindOracle validates the supplied oracle accounts against the pool's
// configured source and records their identities on the pool.
func (e *Engine) bindOracle(p *PoolInfo, accs OracleAccounts) error {
	switch p.OraclePriority {
	case oracle.PriorityPythOnly:
		if accs.PythBaseProduct == nil || accs.PythBasePrice == nil ||
			accs.PythQuoteProduct == nil || accs.PythQuotePrice == nil {
			return fmt.Errorf("%w: missing pyth account", oracle.ErrInvalidPythConfig)
		}
		if err := oracle.CheckPythAccounts(accs.PythBaseProduct, accs.PythBasePrice, e.resolver.PythProgramID()); err != nil {
			return err
		}
		if err := oracle.CheckPythAccounts(accs.PythQuoteProduct, accs.PythQuotePrice, e.resolver.PythProgramID()); err != nil {
			return err
		}
		p.PythBasePrice = accs.PythBasePrice.Key
		p.PythQuotePrice = accs.PythQuotePrice.Key
	case oracle.PrioritySerumOnly:
		if accs.Serum.Market == nil || accs.Serum.Bids == nil || accs.Serum.Asks == nil {
			return fmt.Errorf("%w: missing market account", oracle.ErrInvalidSerumData)
		}
		if err := oracle.ValidateSerumMarketMints(accs.Serum.Market, p.BaseMint, p.QuoteMint); err != nil {
			return err
		}
		fingerprint := oracle.SerumFingerprint(accs.Serum.Market.Key, accs.Serum.Bids.Key, accs.Serum.Asks.Key)
		if err := oracle.CheckSerumAccounts(accs.Serum, fingerprint, e.resolver.SerumProgramID()); err != nil {
			return err
		}
		p.SerumFingerprint = fingerprint
	default:
		return fmt.Errorf("%w: flag %#x", oracle.ErrUnsupportedOraclePriority, uint8(p.OraclePriority))
	}
	return nil
}

// checkOracleBinding asserts the oracle accounts supplied with a trade
// are the same ones recorded at initialization.
func (e *Engine) checkOracleBinding(p *PoolInfo, accs OracleAccounts) error {
	switch p.OraclePriority {
	case oracle.PriorityPythOnly:
		if accs.PythBasePrice == nil || accs.PythQuotePrice == nil {
			return fmt.Errorf("%w: missing pyth price account", ErrInvalidOracleAccount)
		}
		if accs.PythBasePrice.Key != p.PythBasePrice || accs.PythQuotePrice.Key != p.PythQuotePrice {
			return ErrInvalidOracleAccount
		}
		return nil
	case oracle.PrioritySerumOnly:
		return oracle.CheckSerumAccounts(accs.Serum, p.SerumFingerprint, e.resolver.SerumProgramID())
	default:
		return fmt.Errorf("%w: flag %#x", oracle.ErrUnsupportedOraclePriority, uint8(p.OraclePriority))
	}
}

// SwapParams is one priced trade request.
type SwapParams struct {
	SourceMint      account.Key
	DestinationMint account.Key
	// UserSource/UserDestination are the trader's token accounts on the
	// in and out sides; UserReward receives the protocol token reward.
	UserSource      account.Key
	UserDestination account.Key
	UserReward      account.Key
	// Owner keys the referral lookup.
	Owner        account.Key
	AmountIn     uint64
	MinAmountOut uint64
	Oracles      OracleAccounts
	CurrentSlot  uint64
}

// SwapReceipt reports every amount a trade moved.
type SwapReceipt struct {
	Direction      pool.Direction `json:"direction"`
	AmountIn       uint64         `json:"amount_in"`
	AmountOut      uint64         `json:"amount_out"`
	TradeFee       uint64         `json:"trade_fee"`
	AdminFee       uint64         `json:"admin_fee"`
	Reward         uint64         `json:"reward"`
	ReferralReward uint64         `json:"referral_reward"`
}

// Swap executes one trade on an oracle-priced pool. The market price is
// refreshed from the oracle first; any oracle rejection fails the trade.
func (e *Engine) Swap(p *PoolInfo, params SwapParams) (SwapReceipt, error) {
	if !p.IsInitialized {
		return SwapReceipt{}, ErrNotInitialized
	}
	if p.IsPaused {
		return SwapReceipt{}, ErrIsPaused
	}
	if p.SwapType != SwapTypeNormal {
		return SwapReceipt{}, ErrIncorrectSwapType
	}
	if err := e.checkOracleBinding(p, params.Oracles); err != nil {
		return SwapReceipt{}, err
	}
	quote, err := e.resolver.Resolve(
		p.OraclePriority,
		params.Oracles.PythBasePrice, params.Oracles.PythQuotePrice,
		params.Oracles.Serum,
		params.CurrentSlot,
		p.BaseDecimals, p.QuoteDecimals,
	)
	if err != nil {
		return SwapReceipt{}, err
	}
	if err := p.State.CheckAndUpdateMarketPriceAndSlot(quote.Price, quote.ValidSlot); err != nil {
		return SwapReceipt{}, err
	}
	if err := p.State.SetMarketPrice(p.BaseDecimals, p.QuoteDecimals, quote.Price); err != nil {
		return SwapReceipt{}, err
	}
	return e.executeSwap(p, params)
}

// StableSwap executes one trade on a stable pool. The price is pinned
// to one; no oracle is consulted.
func (e *Engine) StableSwap(p *PoolInfo, params SwapParams) (SwapReceipt, error) {
	if !p.IsInitialized {
		return SwapReceipt{}, ErrNotInitialized
	}
	if p.IsPaused {
		return SwapReceipt{}, ErrIsPaused
	}
	if p.SwapType != SwapTypeStable {
		return SwapReceipt{}, ErrIncorrectSwapType
	}
	if err := p.State.SetMarketPrice(p.BaseDecimals, p.QuoteDecimals, fixedpoint.One()); err != nil {
		return SwapReceipt{}, err
	}
	return e.executeSwap(p, params)
}

func (e *Engine) executeSwap(p *PoolInfo, params SwapParams) (SwapReceipt, error) {
	if params.AmountIn == 0 {
		return SwapReceipt{}, fmt.Errorf("%w: zero amount in", ErrInvalidInput)
	}
	direction, err := p.direction(params.SourceMint, params.DestinationMint)
	if err != nil {
		return SwapReceipt{}, err
	}

	receive, err := p.State.GetOutAmount(params.AmountIn, direction)
	if err != nil {
		return SwapReceipt{}, err
	}
	tradeFee, err := p.Fees.TradeFee(receive)
	if err != nil {
		return SwapReceipt{}, err
	}
	adminFee, err := p.Fees.AdminTradeFee(tradeFee)
	if err != nil {
		return SwapReceipt{}, err
	}
	amountOut := receive - tradeFee

	if err := p.State.CheckSwapOutAmount(amountOut, direction, p.SwapOutLimitPercentage); err != nil {
		return SwapReceipt{}, err
	}
	if amountOut < params.MinAmountOut {
		return SwapReceipt{}, fmt.Errorf("%w: out %d below floor %d",
			pool.ErrExceededSlippage, amountOut, params.MinAmountOut)
	}

	// Rewards accrue on the base-token leg of the trade regardless of
	// direction.
	rewardBasis := params.AmountIn
	if direction == pool.SellQuote {
		rewardBasis = amountOut
	}
	reward, err := p.Rewards.TradeReward(rewardBasis, p.BaseDecimals)
	if err != nil {
		return SwapReceipt{}, err
	}

	// The admin fee leaves the pool alongside the trader's payout; the
	// rest of the trade fee stays in the output reserve for LPs.
	if err := p.State.Swap(params.AmountIn, amountOut+adminFee, direction); err != nil {
		return SwapReceipt{}, err
	}

	inVault, outVault := p.vaults(direction)
	if err := e.ledger.Transfer(params.UserSource, inVault, params.AmountIn); err != nil {
		return SwapReceipt{}, err
	}
	if err := e.ledger.Transfer(outVault, params.UserDestination, amountOut); err != nil {
		return SwapReceipt{}, err
	}
	if adminFee > 0 {
		if err := e.ledger.Transfer(outVault, p.adminFeeDestination(direction), adminFee); err != nil {
			return SwapReceipt{}, err
		}
	}
	if reward > 0 {
		if err := e.ledger.MintTo(e.cfg.RewardMint, params.UserReward, reward); err != nil {
			return SwapReceipt{}, err
		}
	}

	if err := e.checkReserves(p); err != nil {
		return SwapReceipt{}, err
	}

	referralReward, err := e.payReferral(p, params.Owner, reward)
	if err != nil {
		return SwapReceipt{}, err
	}

	receipt := SwapReceipt{
		Direction:      direction,
		AmountIn:       params.AmountIn,
		AmountOut:      amountOut,
		TradeFee:       tradeFee,
		AdminFee:       adminFee,
		Reward:         reward,
		ReferralReward: referralReward,
	}
	e.logger.Info("swap executed",
		zap.String("direction", direction.String()),
		zap.Uint64("amount_in", receipt.AmountIn),
		zap.Uint64("amount_out", receipt.AmountOut),
		zap.Uint64("trade_fee", receipt.TradeFee),
		zap.Uint64("reward", receipt.Reward))
	return receipt, nil
}

// payReferral forwards the referrer's cut of a trade reward, if the
// owner has a real referrer recorded.
func (e *Engine) payReferral(p *PoolInfo, owner account.Key, reward uint64) (uint64, error) {
	if reward == 0 {
		return 0, nil
	}
	referrer, ok, err := e.referrals.Get(owner)
	if err != nil {
		return 0, err
	}
	if !ok || referrer == e.cfg.SentinelReferrer {
		return 0, nil
	}
	referralReward, err := p.Rewards.ReferralReward(reward)
	if err != nil {
		return 0, err
	}
	if referralReward == 0 {
		return 0, nil
	}
	if err := e.ledger.MintTo(e.cfg.RewardMint, referrer, referralReward); err != nil {
		return 0, err
	}
	return referralReward, nil
}

// DepositParams is one liquidity contribution.
type DepositParams struct {
	BaseAmount    uint64
	QuoteAmount   uint64
	MinMintAmount uint64
	UserBase      account.Key
	UserQuote     account.Key
	UserShare     account.Key
}

// DepositReceipt reports a committed contribution.
type DepositReceipt struct {
	MintAmount  uint64 `json:"mint_amount"`
	BaseAmount  uint64 `json:"base_amount"`
	QuoteAmount uint64 `json:"quote_amount"`
}

// Deposit adds two-sided liquidity at the current reserve ratio and
// mints shares for it.
func (e *Engine) Deposit(p *PoolInfo, params DepositParams) (DepositReceipt, error) {
	if !p.IsInitialized {
		return DepositReceipt{}, ErrNotInitialized
	}
	if p.IsPaused {
		return DepositReceipt{}, ErrIsPaused
	}

	// BuyShares commits eagerly; roll back when the mint misses the
	// caller's floor so a failed deposit leaves no trace.
	savedBase, savedQuote, savedSupply := p.State.BaseReserve, p.State.QuoteReserve, p.State.TotalSupply
	mint, baseAccepted, quoteAccepted, err := p.State.BuyShares(params.BaseAmount, params.QuoteAmount)
	if err != nil {
		return DepositReceipt{}, err
	}
	if mint < params.MinMintAmount {
		p.State.BaseReserve, p.State.QuoteReserve, p.State.TotalSupply = savedBase, savedQuote, savedSupply
		return DepositReceipt{}, fmt.Errorf("%w: mint %d below floor %d",
			pool.ErrExceededSlippage, mint, params.MinMintAmount)
	}

	if baseAccepted > 0 {
		if err := e.ledger.Transfer(params.UserBase, p.BaseVault, baseAccepted); err != nil {
			return DepositReceipt{}, err
		}
	}
	if quoteAccepted > 0 {
		if err := e.ledger.Transfer(params.UserQuote, p.QuoteVault, quoteAccepted); err != nil {
			return DepositReceipt{}, err
		}
	}
	if err := e.ledger.MintTo(p.PoolMint, params.UserShare, mint); err != nil {
		return DepositReceipt{}, err
	}

	if err := e.checkReserves(p); err != nil {
		return DepositReceipt{}, err
	}
	supply, err := e.ledger.Supply(p.PoolMint)
	if err != nil {
		return DepositReceipt{}, err
	}
	if err := p.State.CheckMintSupply(supply); err != nil {
		return DepositReceipt{}, err
	}

	e.logger.Info("liquidity deposited",
		zap.Uint64("mint_amount", mint),
		zap.Uint64("base_amount", baseAccepted),
		zap.Uint64("quote_amount", quoteAccepted))
	return DepositReceipt{MintAmount: mint, BaseAmount: baseAccepted, QuoteAmount: quoteAccepted}, nil
}

// WithdrawParams is one share redemption.
type WithdrawParams struct {
	ShareAmount uint64
	MinBaseOut  uint64
	MinQuoteOut uint64
	UserBase    account.Key
	UserQuote   account.Key
	UserShare   account.Key
}

// WithdrawReceipt reports a committed redemption. BaseOut/QuoteOut are
// net of fees.
type WithdrawReceipt struct {
	BaseOut       uint64 `json:"base_out"`
	QuoteOut      uint64 `json:"quote_out"`
	BaseFee       uint64 `json:"base_fee"`
	QuoteFee      uint64 `json:"quote_fee"`
	AdminBaseFee  uint64 `json:"admin_base_fee"`
	AdminQuoteFee uint64 `json:"admin_quote_fee"`
}

// Withdraw redeems shares pro rata. Withdrawals are deliberately not
// pause-gated: LPs can always exit.
func (e *Engine) Withdraw(p *PoolInfo, params WithdrawParams) (WithdrawReceipt, error) {
	if !p.IsInitialized {
		return WithdrawReceipt{}, ErrNotInitialized
	}
	supply, err := e.ledger.Supply(p.PoolMint)
	if err != nil {
		return WithdrawReceipt{}, err
	}
	if supply == 0 {
		return WithdrawReceipt{}, ErrEmptySupply
	}

	baseOut, quoteOut, err := p.State.SellShares(params.ShareAmount, params.MinBaseOut, params.MinQuoteOut)
	if err != nil {
		return WithdrawReceipt{}, err
	}

	baseFee, err := p.Fees.WithdrawFee(baseOut)
	if err != nil {
		return WithdrawReceipt{}, err
	}
	adminBaseFee, err := p.Fees.AdminWithdrawFee(baseFee)
	if err != nil {
		return WithdrawReceipt{}, err
	}
	quoteFee, err := p.Fees.WithdrawFee(quoteOut)
	if err != nil {
		return WithdrawReceipt{}, err
	}
	adminQuoteFee, err := p.Fees.AdminWithdrawFee(quoteFee)
	if err != nil {
		return WithdrawReceipt{}, err
	}

	// The LP-retained fee portion stays in the reserves; only the net
	// payout and the admin cut leave the vaults.
	if err := p.State.CollectTradeFee(baseFee-adminBaseFee, quoteFee-adminQuoteFee); err != nil {
		return WithdrawReceipt{}, err
	}
	netBase := baseOut - baseFee
	netQuote := quoteOut - quoteFee

	if netBase > 0 {
		if err := e.ledger.Transfer(p.BaseVault, params.UserBase, netBase); err != nil {
			return WithdrawReceipt{}, err
		}
	}
	if adminBaseFee > 0 {
		if err := e.ledger.Transfer(p.BaseVault, p.AdminFeeBase, adminBaseFee); err != nil {
			return WithdrawReceipt{}, err
		}
	}
	if netQuote > 0 {
		if err := e.ledger.Transfer(p.QuoteVault, params.UserQuote, netQuote); err != nil {
			return WithdrawReceipt{}, err
		}
	}
	if adminQuoteFee > 0 {
		if err := e.ledger.Transfer(p.QuoteVault, p.AdminFeeQuote, adminQuoteFee); err != nil {
			return WithdrawReceipt{}, err
		}
	}
	if err := e.ledger.Burn(p.PoolMint, params.UserShare, params.ShareAmount); err != nil {
		return WithdrawReceipt{}, err
	}

	if err := e.checkReserves(p); err != nil {
		return WithdrawReceipt{}, err
	}
	supply, err = e.ledger.Supply(p.PoolMint)
	if err != nil {
		return WithdrawReceipt{}, err
	}
	if err := p.State.CheckMintSupply(supply); err != nil {
		return WithdrawReceipt{}, err
	}

	e.logger.Info("liquidity withdrawn",
		zap.Uint64("share_amount", params.ShareAmount),
		zap.Uint64("base_out", netBase),
		zap.Uint64("quote_out", netQuote))
	return WithdrawReceipt{
		BaseOut:       netBase,
		QuoteOut:      netQuote,
		BaseFee:       baseFee,
		QuoteFee:      quoteFee,
		AdminBaseFee:  adminBaseFee,
		AdminQuoteFee: adminQuoteFee,
	}, nil
}

// SetReferrer records a trader's referrer. Records are write-once; the
// sentinel key is accepted and means "opted out".
func (e *Engine) SetReferrer(owner, referrer account.Key) error {
	if owner == referrer {
		return fmt.Errorf("%w: self referral", ErrInvalidInput)
	}
	if _, ok, err := e.referrals.Get(owner); err != nil {
		return err
	} else if ok {
		return ErrReferralExists
	}
	return e.referrals.Set(owner, referrer)
}

// checkReserves re-reads vault balances and asserts they match the
// tracked reserves.
func (e *Engine) checkReserves(p *PoolInfo) error {
	baseBalance, err := e.ledger.Balance(p.BaseVault)
	if err != nil {
		return err
	}
	quoteBalance, err := e.ledger.Balance(p.QuoteVault)
	if err != nil {
		return err
	}
	return p.State.CheckReserveAmount(baseBalance, quoteBalance)
}
