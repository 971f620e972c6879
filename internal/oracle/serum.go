package oracle

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// Serum v3 account framing: 5-byte head padding, payload, 7-byte tail
// padding. The payload starts with a u64 of account flags.
var (
	serumHeadPadding = []byte("serum")
	serumTailPadding = []byte("padding")
)

// Serum account flags.
const (
	serumFlagInitialized uint64 = 1 << 0
	serumFlagMarket      uint64 = 1 << 1
	serumFlagBids        uint64 = 1 << 2
	serumFlagAsks        uint64 = 1 << 3
)

// Slab node tags.
const (
	slabNodeUninitialized uint32 = iota
	slabNodeInner
	slabNodeLeaf
	slabNodeFree
	slabNodeLastFree
)

const (
	serumMarketStateSize = 376
	slabHeaderSize       = 32
	slabNodeSize         = 72
)

// SerumMarket is the subset of the market account the resolver needs.
type SerumMarket struct {
	AccountFlags uint64
	BaseMint     account.Key
	QuoteMint    account.Key
	Bids         account.Key
	Asks         account.Key
	BaseLotSize  uint64
	QuoteLotSize uint64
}

// SerumAccounts bundles the three order-book accounts a pool is pinned
// to.
type SerumAccounts struct {
	Market *account.Account
	Bids   *account.Account
	Asks   *account.Account
}

func stripSerumPadding(data []byte) ([]byte, error) {
	if len(data) < len(serumHeadPadding)+len(serumTailPadding) {
		return nil, fmt.Errorf("%w: account too small", ErrInvalidSerumData)
	}
	if !bytes.Equal(data[:len(serumHeadPadding)], serumHeadPadding) {
		return nil, fmt.Errorf("%w: bad head padding", ErrInvalidSerumData)
	}
	if !bytes.Equal(data[len(data)-len(serumTailPadding):], serumTailPadding) {
		return nil, fmt.Errorf("%w: bad tail padding", ErrInvalidSerumData)
	}
	return data[len(serumHeadPadding) : len(data)-len(serumTailPadding)], nil
}

// ParseSerumMarket decodes the market state account.
func ParseSerumMarket(data []byte) (*SerumMarket, error) {
	payload, err := stripSerumPadding(data)
	if err != nil {
		return nil, err
	}
	if len(payload) < serumMarketStateSize {
		return nil, fmt.Errorf("%w: market state size %d", ErrInvalidSerumData, len(payload))
	}
	m := &SerumMarket{
		AccountFlags: binary.LittleEndian.Uint64(payload[0:8]),
		BaseLotSize:  binary.LittleEndian.Uint64(payload[344:352]),
		QuoteLotSize: binary.LittleEndian.Uint64(payload[352:360]),
	}
	copy(m.BaseMint[:], payload[48:80])
	copy(m.QuoteMint[:], payload[80:112])
	copy(m.Bids[:], payload[280:312])
	copy(m.Asks[:], payload[312:344])

	want := serumFlagInitialized | serumFlagMarket
	if m.AccountFlags&want != want {
		return nil, fmt.Errorf("%w: market flags %#x", ErrInvalidSerumData, m.AccountFlags)
	}
	return m, nil
}

// slab is the crit-bit tree holding one side of the order book. Keys
// order entries by price: the upper 64 bits of a leaf key are the price
// in lots.
type slab struct {
	root      uint32
	leafCount uint64
	nodes     []byte
}

func parseSlab(data []byte, wantFlag uint64) (*slab, error) {
	payload, err := stripSerumPadding(data)
	if err != nil {
		return nil, err
	}
	if len(payload) < 8+slabHeaderSize {
		return nil, fmt.Errorf("%w: slab too small", ErrInvalidSerumData)
	}
	flags := binary.LittleEndian.Uint64(payload[0:8])
	want := serumFlagInitialized | wantFlag
	if flags&want != want {
		return nil, fmt.Errorf("%w: order book flags %#x", ErrInvalidSerumData, flags)
	}
	header := payload[8 : 8+slabHeaderSize]
	return &slab{
		root:      binary.LittleEndian.Uint32(header[20:24]),
		leafCount: binary.LittleEndian.Uint64(header[24:32]),
		nodes:     payload[8+slabHeaderSize:],
	}, nil
}

func (s *slab) node(index uint32) ([]byte, error) {
	off := int(index) * slabNodeSize
	if off < 0 || off+slabNodeSize > len(s.nodes) {
		return nil, fmt.Errorf("%w: node index %d out of range", ErrInvalidSerumData, index)
	}
	return s.nodes[off : off+slabNodeSize], nil
}

// extremeLeaf walks the tree to the maximum (bids) or minimum (asks)
// leaf and returns its key's upper 64 bits, the price in lots.
func (s *slab) extremeLeaf(maximum bool) (uint64, error) {
	if s.leafCount == 0 {
		return 0, fmt.Errorf("%w: empty order book side", ErrInvalidSerumData)
	}
	index := s.root
	// Tree depth can never exceed the node arena size.
	for steps := 0; steps <= len(s.nodes)/slabNodeSize; steps++ {
		node, err := s.node(index)
		if err != nil {
			return 0, err
		}
		switch binary.LittleEndian.Uint32(node[0:4]) {
		case slabNodeLeaf:
			// key occupies bytes 8..24; price lots are the upper half.
			return binary.LittleEndian.Uint64(node[16:24]), nil
		case slabNodeInner:
			if maximum {
				index = binary.LittleEndian.Uint32(node[28:32])
			} else {
				index = binary.LittleEndian.Uint32(node[24:28])
			}
		default:
			return 0, fmt.Errorf("%w: unexpected node tag", ErrInvalidSerumData)
		}
	}
	return 0, fmt.Errorf("%w: order book tree cycle", ErrInvalidSerumData)
}

// SerumFingerprint hashes the market/bids/asks keys recorded at pool
// initialization; later calls must present the same accounts.
func SerumFingerprint(market, bids, asks account.Key) account.Key {
	h := sha256.New()
	h.Write(market[:])
	h.Write(bids[:])
	h.Write(asks[:])
	var k account.Key
	copy(k[:], h.Sum(nil))
	return k
}

// CheckSerumAccounts verifies ownership of the three order-book
// accounts and that their fingerprint matches the one pinned at pool
// initialization.
func CheckSerumAccounts(accs SerumAccounts, expected account.Key, programID account.Key) error {
	if err := checkSerumOwnership(accs, programID); err != nil {
		return err
	}
	if SerumFingerprint(accs.Market.Key, accs.Bids.Key, accs.Asks.Key) != expected {
		return fmt.Errorf("%w: fingerprint mismatch", ErrInvalidSerumMarketAccounts)
	}
	return nil
}

func checkSerumOwnership(accs SerumAccounts, programID account.Key) error {
	for _, acc := range []*account.Account{accs.Market, accs.Bids, accs.Asks} {
		if acc == nil {
			return fmt.Errorf("%w: missing account", ErrInvalidSerumData)
		}
		if acc.Owner != programID {
			return fmt.Errorf("%w: owner %s", ErrInvalidSerumProgramID, acc.Owner)
		}
	}
	return nil
}

// ValidateSerumMarketMints checks the order book trades the same pair
// as the pool.
func ValidateSerumMarketMints(market *account.Account, baseMint, quoteMint account.Key) error {
	m, err := ParseSerumMarket(market.Data)
	if err != nil {
		return err
	}
	if m.BaseMint != baseMint || m.QuoteMint != quoteMint {
		return fmt.Errorf("%w: market pair %s/%s", ErrInvalidSerumMarketMintAddress, m.BaseMint, m.QuoteMint)
	}
	return nil
}

// CalculateSerumMarketPrice converts top-of-book lot prices into a
// Decimal price:
//
//	price = ((bid + ask) / 2) * quoteLotSize * 10^baseDecimals / (baseLotSize * 10^quoteDecimals)
func CalculateSerumMarketPrice(
	baseLotSize, quoteLotSize uint64,
	bidPriceLots, askPriceLots uint64,
	baseDecimals, quoteDecimals uint8,
) (fixedpoint.Decimal, error) {
	baseMultiplier, err := fixedpoint.TryPow10(uint32(baseDecimals))
	if err != nil {
		return fixedpoint.Zero(), err
	}
	quoteMultiplier, err := fixedpoint.TryPow10(uint32(quoteDecimals))
	if err != nil {
		return fixedpoint.Zero(), err
	}

	midLots, err := fixedpoint.New(bidPriceLots).TryAdd(fixedpoint.New(askPriceLots))
	if err != nil {
		return fixedpoint.Zero(), err
	}
	midLots, err = midLots.TryDiv(fixedpoint.New(2))
	if err != nil {
		return fixedpoint.Zero(), err
	}

	numerator, err := fixedpoint.New(quoteLotSize).TryMul(baseMultiplier)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	denominator, err := fixedpoint.New(baseLotSize).TryMul(quoteMultiplier)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	price, err := midLots.TryMul(numerator)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return price.TryDiv(denominator)
}

// getSerumMarketPrice reads the best bid and best ask from the pinned
// order book and returns their mid price.
func getSerumMarketPrice(accs SerumAccounts, baseDecimals, quoteDecimals uint8, programID account.Key) (fixedpoint.Decimal, error) {
	if err := checkSerumOwnership(accs, programID); err != nil {
		return fixedpoint.Zero(), err
	}
	market, err := ParseSerumMarket(accs.Market.Data)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	// The slabs must be the ones this market records; a program-owned
	// book from another market prices a different pair.
	if accs.Bids.Key != market.Bids || accs.Asks.Key != market.Asks {
		return fixedpoint.Zero(), fmt.Errorf("%w: order book accounts not the market's", ErrInvalidSerumMarketAccounts)
	}
	bids, err := parseSlab(accs.Bids.Data, serumFlagBids)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	asks, err := parseSlab(accs.Asks.Data, serumFlagAsks)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	bestBid, err := bids.extremeLeaf(true)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	bestAsk, err := asks.extremeLeaf(false)
	if err != nil {
		return fixedpoint.Zero(), err
	}

	return CalculateSerumMarketPrice(
		market.BaseLotSize, market.QuoteLotSize,
		bestBid, bestAsk,
		baseDecimals, quoteDecimals,
	)
}
