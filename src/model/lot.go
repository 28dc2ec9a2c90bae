package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot represents one purchased batch of shares at a fixed price.
// Lots are created by the market server on a successful buy and reduced
// or removed on a matching sell; the client never mutates them.
type Lot struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Symbol     string          `gorm:"size:20;index" json:"symbol"`
	Quantity   int             `json:"quantity"`
	BuyPrice   decimal.Decimal `gorm:"type:decimal(20,8)" json:"buy_price"`
	AcquiredAt time.Time       `json:"acquired_at"`
}

// AggregatedPosition is the per-symbol roll-up of all lots for that symbol.
// Derived on every read, never persisted.
type AggregatedPosition struct {
	Symbol          string          `json:"symbol"`
	Quantity        int             `json:"quantity"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	AverageBuyPrice decimal.Decimal `json:"average_buy_price"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	PnL             decimal.Decimal `json:"pnl"`
	PnLPct          decimal.Decimal `json:"pnl_pct"`
}

// PortfolioSummary carries the portfolio-level totals. DailyPnL is only
// meaningful in aggregate, so it lives here and not on the positions.
type PortfolioSummary struct {
	TotalInvestment decimal.Decimal `json:"total_investment"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	PnL             decimal.Decimal `json:"pnl"`
	PnLPct          decimal.Decimal `json:"pnl_pct"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
}
