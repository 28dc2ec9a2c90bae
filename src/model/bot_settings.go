package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minPercentage is the smallest profit-target / stop-loss step the server
// accepts, mirroring its own validation.
var minPercentage = decimal.NewFromFloat(0.5)

// BotSettings is the trading bot's configuration object as served by
// GET /api/trading-bot. IsActive uses the server's 0/1 integer convention.
type BotSettings struct {
	ID                    uint            `gorm:"primaryKey" json:"-"`
	IsActive              int             `json:"is_active"`
	MaxInvestmentPerTrade decimal.Decimal `gorm:"type:decimal(20,8)" json:"max_investment_per_trade"`
	ProfitTargetPct       decimal.Decimal `gorm:"type:decimal(10,4)" json:"profit_target_percentage"`
	StopLossPct           decimal.Decimal `gorm:"type:decimal(10,4)" json:"stop_loss_percentage"`
	MaxTradesPerDay       int             `json:"max_trades_per_day"`
	MaxOpenPositions      int             `json:"max_open_positions"`
}

func (BotSettings) TableName() string {
	return "bot_settings"
}

// Active reports whether the bot is enabled.
func (s BotSettings) Active() bool {
	return s.IsActive != 0
}

// Validate enforces the form-level constraints before settings are
// submitted to the server: every numeric field positive, percentages at
// least the 0.5 step.
func (s BotSettings) Validate() error {
	if s.MaxInvestmentPerTrade.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("max_investment_per_trade", "must be greater than zero")
	}
	if s.ProfitTargetPct.LessThan(minPercentage) {
		return NewValidationError("profit_target_percentage", fmt.Sprintf("must be at least %s", minPercentage))
	}
	if s.StopLossPct.LessThan(minPercentage) {
		return NewValidationError("stop_loss_percentage", fmt.Sprintf("must be at least %s", minPercentage))
	}
	if s.MaxTradesPerDay <= 0 {
		return NewValidationError("max_trades_per_day", "must be greater than zero")
	}
	if s.MaxOpenPositions <= 0 {
		return NewValidationError("max_open_positions", "must be greater than zero")
	}
	return nil
}
