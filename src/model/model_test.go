package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSignal(t *testing.T) {
	cases := []struct {
		in   string
		want Signal
	}{
		{"BUY", SignalBuy},
		{"buy", SignalBuy},
		{" Sell ", SignalSell},
		{"HOLD", SignalHold},
		{"", SignalHold},
		{"garbage", SignalHold},
	}

	for _, tc := range cases {
		if got := ParseSignal(tc.in); got != tc.want {
			t.Fatalf("ParseSignal(%q) = %s, expected %s", tc.in, got, tc.want)
		}
	}
}

func TestTransactionIsBot(t *testing.T) {
	bot := Transaction{Description: "[BOT] bought RELIANCE"}
	if !bot.IsBot() {
		t.Fatalf("expected bot marker detected")
	}

	manual := Transaction{Description: "bought RELIANCE"}
	if manual.IsBot() {
		t.Fatalf("manual trade must not be flagged as bot")
	}
}

func TestTransactionSigned(t *testing.T) {
	amount := decimal.NewFromInt(100)

	cases := []struct {
		typ  string
		want decimal.Decimal
	}{
		{TransactionTypeDeposit, amount},
		{TransactionTypeSell, amount},
		{TransactionTypeWithdrawal, amount.Neg()},
		{TransactionTypeBuy, amount.Neg()},
		{"unknown", decimal.Zero},
	}

	for _, tc := range cases {
		got := Transaction{Type: tc.typ, Amount: amount}.Signed()
		if !got.Equal(tc.want) {
			t.Fatalf("Signed() for %s = %s, expected %s", tc.typ, got, tc.want)
		}
	}
}

func TestStockDetailPreviousClose(t *testing.T) {
	detail := StockDetail{
		Prices: []PricePoint{
			{Date: "2024-05-01", Close: decimal.NewFromInt(2650)},
			{Date: "2024-05-02", Close: decimal.NewFromInt(2700)},
		},
	}
	if !detail.PreviousClose().Equal(decimal.NewFromInt(2650)) {
		t.Fatalf("expected previous close 2650, got %s", detail.PreviousClose())
	}

	short := StockDetail{Prices: []PricePoint{{Close: decimal.NewFromInt(2700)}}}
	if !short.PreviousClose().IsZero() {
		t.Fatalf("expected zero previous close for short history")
	}
}

func TestBotSettingsValidate(t *testing.T) {
	valid := BotSettings{
		IsActive:              1,
		MaxInvestmentPerTrade: decimal.NewFromInt(10000),
		ProfitTargetPct:       decimal.NewFromInt(3),
		StopLossPct:           decimal.NewFromInt(2),
		MaxTradesPerDay:       5,
		MaxOpenPositions:      3,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*BotSettings)
		field  string
	}{
		{"zero investment", func(s *BotSettings) { s.MaxInvestmentPerTrade = decimal.Zero }, "max_investment_per_trade"},
		{"profit target below step", func(s *BotSettings) { s.ProfitTargetPct = decimal.NewFromFloat(0.4) }, "profit_target_percentage"},
		{"stop loss below step", func(s *BotSettings) { s.StopLossPct = decimal.NewFromFloat(0.1) }, "stop_loss_percentage"},
		{"zero trades per day", func(s *BotSettings) { s.MaxTradesPerDay = 0 }, "max_trades_per_day"},
		{"zero open positions", func(s *BotSettings) { s.MaxOpenPositions = 0 }, "max_open_positions"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			settings := valid
			tc.mutate(&settings)

			err := settings.Validate()
			vErr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, vErr.Field)
			}
		})
	}
}

func TestBotSettingsActive(t *testing.T) {
	if (BotSettings{IsActive: 0}).Active() {
		t.Fatalf("IsActive 0 must be inactive")
	}
	if !(BotSettings{IsActive: 1}).Active() {
		t.Fatalf("IsActive 1 must be active")
	}
}
