package feed

import (
	"github.com/shopspring/decimal"

	"tradedesk/src/model"
)

type EventType string

const (
	EventStockUpdate         EventType = "stock_update"
	EventTradeExecuted       EventType = "trade_executed"
	EventTransactionExecuted EventType = "transaction_executed"
)

// StockUpdate is the payload of a pushed stock_update frame. The previous
// close is optional; a zero value means the server did not send it.
type StockUpdate struct {
	Symbol           string          `json:"symbol"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	PreviousDayPrice decimal.Decimal `json:"previous_day_price"`
	Signal           string          `json:"signal"`
}

// Event is one message fanned out to subscribers.
type Event struct {
	Type          EventType
	Stock         *StockUpdate
	WalletBalance decimal.Decimal
}

// Subscribable is the abstract push channel a view attaches to. Injected
// rather than referenced globally so tests can feed deterministic events.
type Subscribable interface {
	Subscribe() (<-chan Event, func())
}

// PriceSource mirrors portfolio.PriceSource so the manager can be handed
// straight to the aggregator.
type PriceSource interface {
	Snapshot(symbol string) (model.PriceSnapshot, bool)
}
