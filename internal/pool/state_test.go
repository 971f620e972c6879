package pool

import (
	"errors"
	"math"
	"testing"

	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// newTestState builds a pool at the given whole-token price with equal
// decimals on both sides, pre-funded via a bootstrap deposit.
func newTestState(t *testing.T, price string, slope string, base, quote uint64) *State {
	t.Helper()
	p, err := fixedpoint.Parse(price)
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	k, err := fixedpoint.Parse(slope)
	if err != nil {
		t.Fatalf("parse slope: %v", err)
	}
	s := NewState(InitParams{
		Slope:                    k,
		LastMarketPrice:          p,
		LastValidMarketPriceSlot: 100,
	})
	if err := s.SetMarketPrice(6, 6, p); err != nil {
		t.Fatalf("SetMarketPrice: %v", err)
	}
	if base > 0 || quote > 0 {
		if _, _, _, err := s.BuyShares(base, quote); err != nil {
			t.Fatalf("BuyShares: %v", err)
		}
	}
	return s
}

func TestSetMarketPriceRebase(t *testing.T) {
	price, _ := fixedpoint.Parse("2")
	s := NewState(InitParams{Slope: fixedpoint.Zero(), LastMarketPrice: price})
	// 9 base decimals vs 6 quote decimals shrinks the raw-unit price by
	// a factor of 1000.
	if err := s.SetMarketPrice(9, 6, price); err != nil {
		t.Fatalf("SetMarketPrice: %v", err)
	}
	want, _ := fixedpoint.Parse("0.002")
	if !s.MarketPrice.Equal(want) {
		t.Fatalf("market price = %s, want %s", s.MarketPrice, want)
	}
}

func TestCheckAndUpdateMarketPriceAndSlot(t *testing.T) {
	s := newTestState(t, "2", "0.5", 0, 0)
	price, _ := fixedpoint.Parse("2.1")

	if err := s.CheckAndUpdateMarketPriceAndSlot(price, 99); !errors.Is(err, ErrStaleMarketPrice) {
		t.Fatalf("err = %v, want ErrStaleMarketPrice", err)
	}
	if err := s.CheckAndUpdateMarketPriceAndSlot(price, 100); err != nil {
		t.Fatalf("same-slot update: %v", err)
	}
	if err := s.CheckAndUpdateMarketPriceAndSlot(price, 105); err != nil {
		t.Fatalf("newer update: %v", err)
	}
	if s.LastValidMarketPriceSlot != 105 {
		t.Fatalf("checkpoint = %d, want 105", s.LastValidMarketPriceSlot)
	}
	if !s.LastMarketPrice.Equal(price) {
		t.Fatalf("last price = %s, want %s", s.LastMarketPrice, price)
	}
}

func TestGetOutAmountZeroInput(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	out, err := s.GetOutAmount(0, SellBase)
	if err != nil || out != 0 {
		t.Fatalf("out = %d, err = %v, want 0, nil", out, err)
	}
}

func TestGetOutAmountPeg(t *testing.T) {
	// Slope zero prices every unit at the oracle peg.
	s := newTestState(t, "2", "0", 1_000_000, 2_000_000)
	out, err := s.GetOutAmount(1000, SellBase)
	if err != nil {
		t.Fatalf("GetOutAmount: %v", err)
	}
	if out != 2000 {
		t.Fatalf("out = %d, want 2000", out)
	}
	out, err = s.GetOutAmount(1000, SellQuote)
	if err != nil {
		t.Fatalf("GetOutAmount: %v", err)
	}
	if out != 500 {
		t.Fatalf("out = %d, want 500", out)
	}
}

func TestGetOutAmountConstantProduct(t *testing.T) {
	// Slope one with the price at the reserve ratio is exactly x*y=k:
	// out = Q*dB/(B+dB), truncated.
	s := newTestState(t, "2", "1", 1_000_000, 2_000_000)
	in := uint64(250_000)
	out, err := s.GetOutAmount(in, SellBase)
	if err != nil {
		t.Fatalf("GetOutAmount: %v", err)
	}
	want := uint64(2_000_000) * in / (1_000_000 + in)
	if out != want {
		t.Fatalf("out = %d, want %d", out, want)
	}
}

func TestGetOutAmountMonotonic(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	var prev uint64
	for _, in := range []uint64{1, 10, 100, 1_000, 10_000, 100_000} {
		out, err := s.GetOutAmount(in, SellBase)
		if err != nil {
			t.Fatalf("GetOutAmount(%d): %v", in, err)
		}
		if out < prev {
			t.Fatalf("output fell from %d to %d at input %d", prev, out, in)
		}
		prev = out
	}
}

func TestGetOutAmountSlippageBelowPeg(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	out, err := s.GetOutAmount(100_000, SellBase)
	if err != nil {
		t.Fatalf("GetOutAmount: %v", err)
	}
	peg := uint64(200_000)
	if out >= peg {
		t.Fatalf("out = %d, want below peg %d", out, peg)
	}
}

func TestBuySharesBootstrap(t *testing.T) {
	s := newTestState(t, "2", "0.5", 0, 0)
	mint, baseAccepted, quoteAccepted, err := s.BuyShares(1_000_000, 2_000_000)
	if err != nil {
		t.Fatalf("BuyShares: %v", err)
	}
	// base*price + quote = 2m + 2m
	if mint != 4_000_000 {
		t.Fatalf("mint = %d, want 4000000", mint)
	}
	if baseAccepted != 1_000_000 || quoteAccepted != 2_000_000 {
		t.Fatalf("accepted %d/%d, want full contribution", baseAccepted, quoteAccepted)
	}
	if s.TotalSupply != mint {
		t.Fatalf("supply = %d, want %d", s.TotalSupply, mint)
	}
}

func TestBuySharesProRataBalanced(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	supply := s.TotalSupply

	// A ratio-exact contribution is accepted integer-exactly.
	mint, baseAccepted, quoteAccepted, err := s.BuyShares(100_000, 200_000)
	if err != nil {
		t.Fatalf("BuyShares: %v", err)
	}
	if baseAccepted != 100_000 || quoteAccepted != 200_000 {
		t.Fatalf("accepted %d/%d, want 100000/200000", baseAccepted, quoteAccepted)
	}
	if mint != supply/10 {
		t.Fatalf("mint = %d, want %d", mint, supply/10)
	}
}

func TestBuySharesProRataClipsExcess(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)

	// Quote is oversupplied; base limits and the excess quote stays with
	// the depositor.
	_, baseAccepted, quoteAccepted, err := s.BuyShares(100_000, 500_000)
	if err != nil {
		t.Fatalf("BuyShares: %v", err)
	}
	if baseAccepted != 100_000 {
		t.Fatalf("base accepted = %d, want 100000", baseAccepted)
	}
	if quoteAccepted != 200_000 {
		t.Fatalf("quote accepted = %d, want clipped 200000", quoteAccepted)
	}
}

func TestBuySharesSupplyOverflow(t *testing.T) {
	s := newTestState(t, "1", "0", 1, 1)
	s.TotalSupply = math.MaxUint64 - 1

	// Pro-rata against a one-unit reserve mints nearly the whole u64
	// range again; the supply must refuse to wrap.
	_, _, _, err := s.BuyShares(1, 1)
	if !errors.Is(err, ErrInconsistentSupply) {
		t.Fatalf("err = %v, want ErrInconsistentSupply", err)
	}
	if s.TotalSupply != math.MaxUint64-1 {
		t.Fatalf("supply changed on failed deposit")
	}
	if err := s.CheckReserveAmount(1, 1); err != nil {
		t.Fatalf("reserves changed on failed deposit: %v", err)
	}
}

func TestSellShares(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	supply := s.TotalSupply

	baseOut, quoteOut, err := s.SellShares(supply/4, 0, 0)
	if err != nil {
		t.Fatalf("SellShares: %v", err)
	}
	if baseOut != 250_000 || quoteOut != 500_000 {
		t.Fatalf("outputs %d/%d, want 250000/500000", baseOut, quoteOut)
	}
	if s.TotalSupply != supply-supply/4 {
		t.Fatalf("supply = %d, want %d", s.TotalSupply, supply-supply/4)
	}
}

func TestSellSharesSlippage(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	supplyBefore := s.TotalSupply

	_, _, err := s.SellShares(s.TotalSupply/4, 300_000, 0)
	if !errors.Is(err, ErrExceededSlippage) {
		t.Fatalf("err = %v, want ErrExceededSlippage", err)
	}
	// Failed redemption must not mutate.
	if s.TotalSupply != supplyBefore {
		t.Fatalf("supply changed on failed redemption")
	}
	if err := s.CheckReserveAmount(1_000_000, 2_000_000); err != nil {
		t.Fatalf("reserves changed on failed redemption: %v", err)
	}
}

func TestDepositWithdrawNeverProfits(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)

	mint, baseIn, quoteIn, err := s.BuyShares(333_333, 666_667)
	if err != nil {
		t.Fatalf("BuyShares: %v", err)
	}
	baseOut, quoteOut, err := s.SellShares(mint, 0, 0)
	if err != nil {
		t.Fatalf("SellShares: %v", err)
	}
	if baseOut > baseIn || quoteOut > quoteIn {
		t.Fatalf("round trip paid out %d/%d for %d/%d in", baseOut, quoteOut, baseIn, quoteIn)
	}
}

func TestSwapReserves(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)

	if err := s.Swap(100_000, 150_000, SellBase); err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if err := s.CheckReserveAmount(1_100_000, 1_850_000); err != nil {
		t.Fatalf("CheckReserveAmount: %v", err)
	}

	if err := s.Swap(1, 5_000_000, SellQuote); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("err = %v, want ErrInsufficientLiquidity", err)
	}
}

func TestCheckSwapOutAmount(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)

	if err := s.CheckSwapOutAmount(200_000, SellBase, 10); err != nil {
		t.Fatalf("CheckSwapOutAmount at limit: %v", err)
	}
	if err := s.CheckSwapOutAmount(200_001, SellBase, 10); !errors.Is(err, ErrExceededSwapOutLimit) {
		t.Fatalf("err = %v, want ErrExceededSwapOutLimit", err)
	}
	// The limit binds the output side, so sell-quote measures base.
	if err := s.CheckSwapOutAmount(100_001, SellQuote, 10); !errors.Is(err, ErrExceededSwapOutLimit) {
		t.Fatalf("err = %v, want ErrExceededSwapOutLimit", err)
	}
}

func TestCheckReserveAmountMismatch(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	if err := s.CheckReserveAmount(1_000_000, 2_000_000); err != nil {
		t.Fatalf("CheckReserveAmount: %v", err)
	}
	if err := s.CheckReserveAmount(1_000_000, 2_000_001); !errors.Is(err, ErrInconsistentReserve) {
		t.Fatalf("err = %v, want ErrInconsistentReserve", err)
	}
	if err := s.CheckReserveAmount(999_999, 2_000_000); !errors.Is(err, ErrInconsistentReserve) {
		t.Fatalf("err = %v, want ErrInconsistentReserve", err)
	}
}

func TestCheckMintSupply(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	if err := s.CheckMintSupply(s.TotalSupply); err != nil {
		t.Fatalf("CheckMintSupply: %v", err)
	}
	if err := s.CheckMintSupply(s.TotalSupply + 1); !errors.Is(err, ErrInconsistentSupply) {
		t.Fatalf("err = %v, want ErrInconsistentSupply", err)
	}
}

func TestCollectTradeFee(t *testing.T) {
	s := newTestState(t, "2", "0.5", 1_000_000, 2_000_000)
	if err := s.CollectTradeFee(0, 1_000); err != nil {
		t.Fatalf("CollectTradeFee: %v", err)
	}
	if err := s.CheckReserveAmount(1_000_000, 2_001_000); err != nil {
		t.Fatalf("CheckReserveAmount: %v", err)
	}
}
