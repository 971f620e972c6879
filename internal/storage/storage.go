package storage

import "github.com/deltafi-trade/swap-core/internal/model"

// Journal defines a sink for executed trade records.
type Journal interface {
	PutTradeBatch(trades []model.TradeRecord) error
}
