package pool

// Direction names which reserve receives a trade's input.
type Direction uint8

const (
	// SellBase: the trader pays base tokens and receives quote tokens.
	SellBase Direction = iota
	// SellQuote: the trader pays quote tokens and receives base tokens.
	SellQuote
)

func (d Direction) String() string {
	switch d {
	case SellBase:
		return "sell_base"
	case SellQuote:
		return "sell_quote"
	default:
		return "unknown"
	}
}
