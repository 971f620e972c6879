package oracle

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// Pyth account constants. Layout derived from the pyth client's C
// structs; all fields are little-endian.
const (
	PythMagic   uint32 = 0xa1b2c3d4
	PythVersion uint32 = 2

	pythPriceAccountSize   = 240 + 32*pythPriceCompSize
	pythProductAccountSize = 512
	pythPriceCompSize      = 96

	// StaleAfterSlotsElapsed bounds price age. Each slot is at minimum
	// 400ms, so 10 slots is a 4s staleness window.
	StaleAfterSlotsElapsed uint64 = 10

	// minActivePublishers is the publisher quorum for an aggregate to be
	// trusted.
	minActivePublishers = 3
)

// Pyth account types.
const (
	PythAccountUnknown uint32 = iota
	PythAccountMapping
	PythAccountProduct
	PythAccountPrice
)

// Pyth price statuses.
const (
	PythStatusUnknown uint32 = iota
	PythStatusTrading
	PythStatusHalted
	PythStatusAuction
)

// Pyth price types.
const (
	PythPriceTypeUnknown uint32 = iota
	PythPriceTypePrice
)

// PythPriceInfo is one aggregate or per-publisher price observation.
type PythPriceInfo struct {
	Price      int64
	Confidence uint64
	Status     uint32
	CorpAction uint32
	PubSlot    uint64
}

// PythPriceComp pairs a publisher with its contributed and latest
// observations.
type PythPriceComp struct {
	Publisher account.Key
	Agg       PythPriceInfo
	Latest    PythPriceInfo
}

// PythPrice is the decoded price account.
type PythPrice struct {
	Magic       uint32
	Version     uint32
	AccountType uint32
	Size        uint32
	PriceType   uint32
	Exponent    int32
	Num         uint32
	NumQuoters  uint32
	LastSlot    uint64
	ValidSlot   uint64
	PrevSlot    uint64
	PrevPrice   int64
	PrevConf    uint64
	Agg         PythPriceInfo
	Comp        [32]PythPriceComp
}

// PythProduct is the decoded product account header.
type PythProduct struct {
	Magic       uint32
	Version     uint32
	AccountType uint32
	Size        uint32
	PriceAcc    account.Key
}

func parsePriceInfo(data []byte) PythPriceInfo {
	return PythPriceInfo{
		Price:      int64(binary.LittleEndian.Uint64(data[0:8])),
		Confidence: binary.LittleEndian.Uint64(data[8:16]),
		Status:     binary.LittleEndian.Uint32(data[16:20]),
		CorpAction: binary.LittleEndian.Uint32(data[20:24]),
		PubSlot:    binary.LittleEndian.Uint64(data[24:32]),
	}
}

// ParsePythPrice decodes a price account's binary layout.
func ParsePythPrice(data []byte) (*PythPrice, error) {
	if len(data) < pythPriceAccountSize {
		return nil, fmt.Errorf("%w: price account size %d", ErrInvalidPythConfig, len(data))
	}
	p := &PythPrice{
		Magic:       binary.LittleEndian.Uint32(data[0:4]),
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		AccountType: binary.LittleEndian.Uint32(data[8:12]),
		Size:        binary.LittleEndian.Uint32(data[12:16]),
		PriceType:   binary.LittleEndian.Uint32(data[16:20]),
		Exponent:    int32(binary.LittleEndian.Uint32(data[20:24])),
		Num:         binary.LittleEndian.Uint32(data[24:28]),
		NumQuoters:  binary.LittleEndian.Uint32(data[28:32]),
		LastSlot:    binary.LittleEndian.Uint64(data[32:40]),
		ValidSlot:   binary.LittleEndian.Uint64(data[40:48]),
		PrevSlot:    binary.LittleEndian.Uint64(data[176:184]),
		PrevPrice:   int64(binary.LittleEndian.Uint64(data[184:192])),
		PrevConf:    binary.LittleEndian.Uint64(data[192:200]),
		Agg:         parsePriceInfo(data[208:240]),
	}
	for i := 0; i < len(p.Comp); i++ {
		off := 240 + i*pythPriceCompSize
		copy(p.Comp[i].Publisher[:], data[off:off+32])
		p.Comp[i].Agg = parsePriceInfo(data[off+32 : off+64])
		p.Comp[i].Latest = parsePriceInfo(data[off+64 : off+96])
	}
	return p, nil
}

// ParsePythProduct decodes a product account's binary layout.
func ParsePythProduct(data []byte) (*PythProduct, error) {
	if len(data) < pythProductAccountSize {
		return nil, fmt.Errorf("%w: product account size %d", ErrInvalidPythConfig, len(data))
	}
	p := &PythProduct{
		Magic:       binary.LittleEndian.Uint32(data[0:4]),
		Version:     binary.LittleEndian.Uint32(data[4:8]),
		AccountType: binary.LittleEndian.Uint32(data[8:12]),
		Size:        binary.LittleEndian.Uint32(data[12:16]),
	}
	copy(p.PriceAcc[:], data[16:48])
	return p, nil
}

// IsActive reports whether the publisher's contributed observation is
// in Trading status.
func (c *PythPriceComp) IsActive() bool {
	return c.Agg.Status == PythStatusTrading
}

// CheckPythAccounts validates a product/price account pair against the
// configured oracle program: ownership, magic, version, account type,
// and that the product points at the supplied price account. Run once
// at pool initialization.
func CheckPythAccounts(product, price *account.Account, programID account.Key) error {
	if product.Owner != programID || price.Owner != programID {
		return fmt.Errorf("%w: account owner mismatch", ErrInvalidPythProgramID)
	}
	prod, err := ParsePythProduct(product.Data)
	if err != nil {
		return err
	}
	if prod.Magic != PythMagic {
		return fmt.Errorf("%w: product magic %#x", ErrInvalidPythConfig, prod.Magic)
	}
	if prod.Version != PythVersion {
		return fmt.Errorf("%w: product version %d", ErrInvalidPythConfig, prod.Version)
	}
	if prod.AccountType != PythAccountProduct {
		return fmt.Errorf("%w: product account type %d", ErrInvalidPythConfig, prod.AccountType)
	}
	if prod.PriceAcc != price.Key {
		return fmt.Errorf("%w: product price pointer mismatch", ErrInvalidPythConfig)
	}
	return nil
}

// getPythPrice validates one side's price account and normalizes the
// aggregate into a Decimal. The gate order matters: structural checks,
// quorum, staleness, sign, confidence, volatility, then normalization.
func getPythPrice(priceAcc *account.Account, currentSlot uint64) (fixedpoint.Decimal, uint64, error) {
	p, err := ParsePythPrice(priceAcc.Data)
	if err != nil {
		return fixedpoint.Zero(), 0, err
	}

	if p.PriceType != PythPriceTypePrice {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: price type %d", ErrInvalidPythConfig, p.PriceType)
	}
	if p.Agg.Status != PythStatusTrading {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: status %d", ErrInvalidPythConfig, p.Agg.Status)
	}

	active := 0
	for i := range p.Comp {
		if p.Comp[i].IsActive() {
			active++
		}
	}
	if active < minActivePublishers {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: only %d active publishers", ErrInvalidPythConfig, active)
	}

	if currentSlot < p.ValidSlot {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: valid slot %d ahead of current %d",
			fixedpoint.ErrCalculation, p.ValidSlot, currentSlot)
	}
	if currentSlot-p.ValidSlot >= StaleAfterSlotsElapsed {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: %d slots elapsed", ErrStalePythPrice, currentSlot-p.ValidSlot)
	}

	if p.Agg.Price < 0 {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: negative price %d", ErrInvalidPythConfig, p.Agg.Price)
	}
	price := uint64(p.Agg.Price)

	// The confident range is [price-conf, price+conf]; reject when the
	// interval is wider than 2% of the price.
	if p.Agg.Confidence > 0 {
		scaled, overflow := mulU64(p.Agg.Confidence, 50)
		if overflow {
			return fixedpoint.Zero(), 0, fmt.Errorf("%w: confidence overflow", fixedpoint.ErrCalculation)
		}
		if price < scaled {
			return fixedpoint.Zero(), 0, fmt.Errorf("%w: confidence %d on price %d",
				ErrInconfidentPythPrice, p.Agg.Confidence, price)
		}
	}

	// Inter-update move above 1% of the current price is rejected.
	diff, err := subI64(p.PrevPrice, p.Agg.Price)
	if err != nil {
		return fixedpoint.Zero(), 0, err
	}
	absDiff, err := absI64(diff)
	if err != nil {
		return fixedpoint.Zero(), 0, err
	}
	scaledDiff, err := mulI64(absDiff, 100)
	if err != nil {
		return fixedpoint.Zero(), 0, err
	}
	if p.Agg.Price < scaledDiff {
		return fixedpoint.Zero(), 0, fmt.Errorf("%w: price %d moved %d from previous %d",
			ErrUnstableMarketPrice, p.Agg.Price, absDiff, p.PrevPrice)
	}

	market, err := normalizeExponent(price, p.Exponent)
	if err != nil {
		return fixedpoint.Zero(), 0, err
	}
	return market, min(currentSlot, p.ValidSlot), nil
}

func normalizeExponent(price uint64, exponent int32) (fixedpoint.Decimal, error) {
	d := fixedpoint.New(price)
	if exponent >= 0 {
		scale, err := fixedpoint.TryPow10(uint32(exponent))
		if err != nil {
			return fixedpoint.Zero(), err
		}
		return d.TryMul(scale)
	}
	scale, err := fixedpoint.TryPow10(uint32(-int64(exponent)))
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return d.TryDiv(scale)
}

func mulU64(a, b uint64) (uint64, bool) {
	if a != 0 && b > math.MaxUint64/a {
		return 0, true
	}
	return a * b, false
}

func subI64(a, b int64) (int64, error) {
	r := a - b
	if (b > 0 && r > a) || (b < 0 && r < a) {
		return 0, fmt.Errorf("%w: i64 sub overflow", fixedpoint.ErrCalculation)
	}
	return r, nil
}

func absI64(a int64) (int64, error) {
	if a == math.MinInt64 {
		return 0, fmt.Errorf("%w: i64 abs overflow", fixedpoint.ErrCalculation)
	}
	if a < 0 {
		return -a, nil
	}
	return a, nil
}

func mulI64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if r/b != a {
		return 0, fmt.Errorf("%w: i64 mul overflow", fixedpoint.ErrCalculation)
	}
	return r, nil
}
