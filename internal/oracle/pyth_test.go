package oracle

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

type pythPriceParams struct {
	magic            uint32
	version          uint32
	accountType      uint32
	priceType        uint32
	exponent         int32
	validSlot        uint64
	prevPrice        int64
	aggPrice         int64
	aggConf          uint64
	aggStatus        uint32
	activePublishers int
}

func defaultPythPrice() pythPriceParams {
	return pythPriceParams{
		magic:            PythMagic,
		version:          PythVersion,
		accountType:      PythAccountPrice,
		priceType:        PythPriceTypePrice,
		exponent:         -2,
		validSlot:        150_000,
		prevPrice:        120_000_000,
		aggPrice:         120_000_000,
		aggConf:          200_000,
		aggStatus:        PythStatusTrading,
		activePublishers: 5,
	}
}

func buildPythPrice(p pythPriceParams) []byte {
	data := make([]byte, pythPriceAccountSize)
	binary.LittleEndian.PutUint32(data[0:4], p.magic)
	binary.LittleEndian.PutUint32(data[4:8], p.version)
	binary.LittleEndian.PutUint32(data[8:12], p.accountType)
	binary.LittleEndian.PutUint32(data[16:20], p.priceType)
	binary.LittleEndian.PutUint32(data[20:24], uint32(p.exponent))
	binary.LittleEndian.PutUint64(data[40:48], p.validSlot)
	binary.LittleEndian.PutUint64(data[176:184], p.validSlot-1)
	binary.LittleEndian.PutUint64(data[184:192], uint64(p.prevPrice))
	binary.LittleEndian.PutUint64(data[208:216], uint64(p.aggPrice))
	binary.LittleEndian.PutUint64(data[216:224], p.aggConf)
	binary.LittleEndian.PutUint32(data[224:228], p.aggStatus)
	for i := 0; i < p.activePublishers; i++ {
		off := 240 + i*pythPriceCompSize
		binary.LittleEndian.PutUint32(data[off+48:off+52], PythStatusTrading)
	}
	return data
}

func buildPythProduct(priceKey account.Key) []byte {
	data := make([]byte, pythProductAccountSize)
	binary.LittleEndian.PutUint32(data[0:4], PythMagic)
	binary.LittleEndian.PutUint32(data[4:8], PythVersion)
	binary.LittleEndian.PutUint32(data[8:12], PythAccountProduct)
	copy(data[16:48], priceKey[:])
	return data
}

func priceAccount(data []byte) *account.Account {
	return &account.Account{Key: testKey(1), Owner: testKey(2), Data: data}
}

func testKey(b byte) account.Key {
	var k account.Key
	k[0] = b
	return k
}

func TestGetPythPrice(t *testing.T) {
	price, slot, err := getPythPrice(priceAccount(buildPythPrice(defaultPythPrice())), 150_001)
	if err != nil {
		t.Fatalf("getPythPrice: %v", err)
	}
	want := fixedpoint.New(1_200_000)
	if !price.Equal(want) {
		t.Fatalf("price = %s, want %s", price, want)
	}
	if slot != 150_000 {
		t.Fatalf("slot = %d, want 150000", slot)
	}
}

func TestGetPythPriceGates(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*pythPriceParams)
		currentSlot uint64
		wantErr     error
	}{
		{
			name:        "halted status",
			mutate:      func(p *pythPriceParams) { p.aggStatus = PythStatusHalted },
			currentSlot: 150_001,
			wantErr:     ErrInvalidPythConfig,
		},
		{
			name:        "wrong price type",
			mutate:      func(p *pythPriceParams) { p.priceType = PythPriceTypeUnknown },
			currentSlot: 150_001,
			wantErr:     ErrInvalidPythConfig,
		},
		{
			name:        "publisher quorum",
			mutate:      func(p *pythPriceParams) { p.activePublishers = 2 },
			currentSlot: 150_001,
			wantErr:     ErrInvalidPythConfig,
		},
		{
			name:        "stale",
			mutate:      func(p *pythPriceParams) {},
			currentSlot: 150_010,
			wantErr:     ErrStalePythPrice,
		},
		{
			name:        "valid slot ahead of current",
			mutate:      func(p *pythPriceParams) {},
			currentSlot: 149_999,
			wantErr:     fixedpoint.ErrCalculation,
		},
		{
			name: "negative price",
			mutate: func(p *pythPriceParams) {
				p.aggPrice = -1
				p.prevPrice = -1
			},
			currentSlot: 150_001,
			wantErr:     ErrInvalidPythConfig,
		},
		{
			name: "inconfident",
			mutate: func(p *pythPriceParams) {
				// conf*50 = 150m > 120m price
				p.aggConf = 3_000_000
			},
			currentSlot: 150_001,
			wantErr:     ErrInconfidentPythPrice,
		},
		{
			name: "unstable move",
			mutate: func(p *pythPriceParams) {
				// |prev-agg|*100 = 200m > 120m price
				p.prevPrice = 122_000_000
			},
			currentSlot: 150_001,
			wantErr:     ErrUnstableMarketPrice,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := defaultPythPrice()
			tc.mutate(&params)
			_, _, err := getPythPrice(priceAccount(buildPythPrice(params)), tc.currentSlot)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestGetPythPriceSlotClamp(t *testing.T) {
	// A current slot behind the publish slot must never become the
	// checkpoint; the reported slot is the older of the two.
	params := defaultPythPrice()
	params.validSlot = 150_000
	_, slot, err := getPythPrice(priceAccount(buildPythPrice(params)), 150_005)
	if err != nil {
		t.Fatalf("getPythPrice: %v", err)
	}
	if slot != 150_000 {
		t.Fatalf("slot = %d, want valid slot 150000", slot)
	}
}

func TestCheckPythAccounts(t *testing.T) {
	programID := testKey(9)
	priceKey := testKey(1)
	price := &account.Account{Key: priceKey, Owner: programID, Data: buildPythPrice(defaultPythPrice())}
	product := &account.Account{Key: testKey(3), Owner: programID, Data: buildPythProduct(priceKey)}

	if err := CheckPythAccounts(product, price, programID); err != nil {
		t.Fatalf("CheckPythAccounts: %v", err)
	}

	wrongOwner := &account.Account{Key: priceKey, Owner: testKey(8), Data: price.Data}
	if err := CheckPythAccounts(product, wrongOwner, programID); !errors.Is(err, ErrInvalidPythProgramID) {
		t.Fatalf("err = %v, want ErrInvalidPythProgramID", err)
	}

	detached := &account.Account{Key: testKey(4), Owner: programID, Data: buildPythProduct(testKey(7))}
	if err := CheckPythAccounts(detached, price, programID); !errors.Is(err, ErrInvalidPythConfig) {
		t.Fatalf("err = %v, want ErrInvalidPythConfig", err)
	}

	bad := buildPythProduct(priceKey)
	binary.LittleEndian.PutUint32(bad[0:4], 0xdeadbeef)
	if err := CheckPythAccounts(&account.Account{Key: testKey(3), Owner: programID, Data: bad}, price, programID); !errors.Is(err, ErrInvalidPythConfig) {
		t.Fatalf("err = %v, want ErrInvalidPythConfig", err)
	}
}

func TestResolvePythCross(t *testing.T) {
	resolver := NewResolver(testKey(9), testKey(10), nil)

	paramsA := defaultPythPrice()
	paramsB := defaultPythPrice()
	// Side B publishes 2.0 at an older slot.
	paramsB.exponent = 0
	paramsB.aggPrice = 2
	paramsB.prevPrice = 2
	paramsB.aggConf = 0
	paramsB.validSlot = 149_995

	quote, err := resolver.ResolvePyth(
		priceAccount(buildPythPrice(paramsA)),
		priceAccount(buildPythPrice(paramsB)),
		150_001,
	)
	if err != nil {
		t.Fatalf("ResolvePyth: %v", err)
	}
	want := fixedpoint.New(600_000)
	if !quote.Price.Equal(want) {
		t.Fatalf("price = %s, want %s", quote.Price, want)
	}
	if quote.ValidSlot != 149_995 {
		t.Fatalf("valid slot = %d, want older side 149995", quote.ValidSlot)
	}
}
