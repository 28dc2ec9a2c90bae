// Package botperf reconstructs the trading bot's round trips from the
// flat transaction log and derives its performance statistics.
//
// Pairing is FIFO: each bot sell consumes the oldest unmatched bot buy
// for the same symbol, matching the server's lot-reduction order. A sell
// with no open buy is excluded from the statistics rather than treated
// as an error.
package botperf

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradedesk/src/model"
)

var hundred = decimal.NewFromInt(100)

// RoundTrip is one matched (buy, sell) pair of bot trades.
type RoundTrip struct {
	Symbol string
	Buy    model.Transaction
	Sell   model.Transaction
	PnL    decimal.Decimal
}

// Profitable reports whether the round trip made money. Break-even
// counts as a loss; the tie-break is deliberate, not an accident.
func (r RoundTrip) Profitable() bool {
	return r.PnL.IsPositive()
}

// Performance aggregates all matched round trips.
type Performance struct {
	TotalTrades      int             `json:"total_trades"`
	ProfitableTrades int             `json:"profitable_trades"`
	LossMakingTrades int             `json:"loss_making_trades"`
	WinRate          decimal.Decimal `json:"win_rate"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	TotalLoss        decimal.Decimal `json:"total_loss"`
	NetProfitLoss    decimal.Decimal `json:"net_profit_loss"`
	TotalInvestment  decimal.Decimal `json:"total_investment"`
	TotalShares      int             `json:"total_shares"`
	ProfitPerShare   decimal.Decimal `json:"profit_per_share"`
}

// MatchRoundTrips filters bot entries out of the log and pairs sells
// against buys per symbol, oldest buy first. The input is read-only;
// recomputing from the same log yields the same pairs.
func MatchRoundTrips(transactions []model.Transaction) []RoundTrip {
	ordered := make([]model.Transaction, len(transactions))
	copy(ordered, transactions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	openBuys := make(map[string][]model.Transaction)
	var trips []RoundTrip

	for _, t := range ordered {
		if !t.IsBot() {
			continue
		}

		switch t.Type {
		case model.TransactionTypeBuy:
			openBuys[t.Symbol] = append(openBuys[t.Symbol], t)

		case model.TransactionTypeSell:
			queue := openBuys[t.Symbol]
			if len(queue) == 0 {
				// sell without an open buy, skip
				continue
			}
			buy := queue[0]
			openBuys[t.Symbol] = queue[1:]

			trips = append(trips, RoundTrip{
				Symbol: t.Symbol,
				Buy:    buy,
				Sell:   t,
				PnL:    t.Amount.Sub(buy.Amount),
			})
		}
	}

	return trips
}

// Analyze computes the full performance report from the transaction log.
func Analyze(transactions []model.Transaction) Performance {
	var perf Performance

	for _, trip := range MatchRoundTrips(transactions) {
		perf.TotalTrades++
		perf.TotalInvestment = perf.TotalInvestment.Add(trip.Buy.Amount)
		perf.TotalShares += trip.Buy.Quantity

		if trip.Profitable() {
			perf.ProfitableTrades++
			perf.TotalProfit = perf.TotalProfit.Add(trip.PnL)
		} else {
			perf.LossMakingTrades++
			perf.TotalLoss = perf.TotalLoss.Add(trip.PnL.Abs())
		}
	}

	perf.NetProfitLoss = perf.TotalProfit.Sub(perf.TotalLoss)

	if perf.TotalTrades > 0 {
		perf.WinRate = decimal.NewFromInt(int64(perf.ProfitableTrades)).
			Div(decimal.NewFromInt(int64(perf.TotalTrades))).
			Mul(hundred)
	}
	if perf.TotalShares > 0 {
		perf.ProfitPerShare = perf.NetProfitLoss.Div(decimal.NewFromInt(int64(perf.TotalShares)))
	}

	return perf
}
