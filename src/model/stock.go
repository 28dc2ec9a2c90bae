package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Signal is an externally computed trading recommendation. The core only
// consumes it; signal generation lives entirely on the server side.
type Signal string

const (
	SignalBuy  Signal = "Buy"
	SignalSell Signal = "Sell"
	SignalHold Signal = "Hold"
)

// ParseSignal normalizes server signal strings; anything unrecognized
// degrades to Hold rather than failing the whole payload.
func ParseSignal(s string) Signal {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SignalBuy
	case "sell":
		return SignalSell
	default:
		return SignalHold
	}
}

// PriceSnapshot is the last known price pair for a symbol, updated only
// by feed events or a full resync. Last write wins per symbol.
type PriceSnapshot struct {
	Symbol           string          `json:"symbol"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	PreviousDayPrice decimal.Decimal `json:"previous_day_price"`
	Signal           Signal          `json:"signal"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// HasPreviousDay reports whether the snapshot carries a previous close.
// Feed events may omit it; daily P&L then falls back to the current price.
func (s PriceSnapshot) HasPreviousDay() bool {
	return !s.PreviousDayPrice.IsZero()
}

// StockQuote is one listing row from GET /api/stocks.
type StockQuote struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// PricePoint is one daily close in a stock's price history.
type PricePoint struct {
	Date  string          `json:"date"`
	Close decimal.Decimal `json:"close"`
	SMA50 decimal.Decimal `json:"sma50"`
}

// StockDetail is the GET /api/stock/{symbol} payload.
type StockDetail struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	Signal       string          `json:"signal"`
	Prices       []PricePoint    `json:"prices"`
}

// PreviousClose returns the close before the latest price point, or zero
// when the history is too short to know it.
func (d StockDetail) PreviousClose() decimal.Decimal {
	if len(d.Prices) < 2 {
		return decimal.Zero
	}
	return d.Prices[len(d.Prices)-2].Close
}
