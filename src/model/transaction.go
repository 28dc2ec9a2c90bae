package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypeBuy        = "buy"
	TransactionTypeSell       = "sell"
)

// BotMarker tags bot-originated entries in the transaction description,
// exactly as the market server writes them.
const BotMarker = "[BOT]"

// Transaction is one entry of the server's append-only transaction log.
type Transaction struct {
	TransactionID string          `gorm:"primaryKey;size:64;column:transaction_id" json:"transaction_id"`
	Type          string          `gorm:"size:20;not null;index" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,8)" json:"amount"`
	Symbol        string          `gorm:"size:20;index" json:"symbol,omitempty"`
	Quantity      int             `json:"quantity,omitempty"`
	Timestamp     time.Time       `gorm:"index" json:"timestamp"`
	Description   string          `gorm:"size:255" json:"description,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// IsBot reports whether the entry was created by the trading bot.
func (t Transaction) IsBot() bool {
	return strings.Contains(t.Description, BotMarker)
}

// Signed returns the amount with the sign it has from the wallet's point
// of view: deposits and sells add funds, withdrawals and buys remove them.
func (t Transaction) Signed() decimal.Decimal {
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeSell:
		return t.Amount
	case TransactionTypeWithdrawal, TransactionTypeBuy:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}
