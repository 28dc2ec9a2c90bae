// Package portfolio rolls raw purchase lots and live prices up into
// per-symbol positions and portfolio-level P&L. Everything here is a pure
// function of its inputs: deterministic, idempotent, order-independent.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradedesk/src/model"
)

var hundred = decimal.NewFromInt(100)

// PriceSource hands the aggregator the last known snapshot per symbol.
// The second return is false when no price has ever been seen.
type PriceSource interface {
	Snapshot(symbol string) (model.PriceSnapshot, bool)
}

// StaticPrices is a PriceSource backed by a plain map, used by one-shot
// computations and tests.
type StaticPrices map[string]model.PriceSnapshot

func (p StaticPrices) Snapshot(symbol string) (model.PriceSnapshot, bool) {
	snap, ok := p[symbol]
	return snap, ok
}

// Aggregate groups lots by symbol and combines them with live prices.
// Output is sorted by symbol so identical inputs always produce identical
// results regardless of lot order.
func Aggregate(lots []model.Lot, prices PriceSource) []model.AggregatedPosition {
	grouped := make(map[string][]model.Lot)
	for _, lot := range lots {
		grouped[lot.Symbol] = append(grouped[lot.Symbol], lot)
	}

	symbols := make([]string, 0, len(grouped))
	for symbol := range grouped {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	positions := make([]model.AggregatedPosition, 0, len(symbols))
	for _, symbol := range symbols {
		positions = append(positions, aggregateOne(symbol, grouped[symbol], prices))
	}
	return positions
}

// AggregateSymbol runs the identical algorithm on the single-symbol
// subset. The second return is false when no lots exist for the symbol.
func AggregateSymbol(lots []model.Lot, prices PriceSource, symbol string) (model.AggregatedPosition, bool) {
	var subset []model.Lot
	for _, lot := range lots {
		if lot.Symbol == symbol {
			subset = append(subset, lot)
		}
	}
	if len(subset) == 0 {
		return model.AggregatedPosition{}, false
	}
	return aggregateOne(symbol, subset, prices), true
}

func aggregateOne(symbol string, lots []model.Lot, prices PriceSource) model.AggregatedPosition {
	pos := model.AggregatedPosition{Symbol: symbol}

	for _, lot := range lots {
		qty := decimal.NewFromInt(int64(lot.Quantity))
		pos.Quantity += lot.Quantity
		pos.TotalInvestment = pos.TotalInvestment.Add(lot.BuyPrice.Mul(qty))
	}

	totalQty := decimal.NewFromInt(int64(pos.Quantity))
	if pos.Quantity > 0 {
		pos.AverageBuyPrice = pos.TotalInvestment.Div(totalQty)
	}

	// Fall back to cost basis when no price has arrived yet; a position is
	// never valued at zero just because the feed is quiet.
	pos.CurrentPrice = pos.AverageBuyPrice
	if snap, ok := prices.Snapshot(symbol); ok && snap.CurrentPrice.IsPositive() {
		pos.CurrentPrice = snap.CurrentPrice
	}

	pos.CurrentValue = pos.CurrentPrice.Mul(totalQty)
	pos.PnL = pos.CurrentValue.Sub(pos.TotalInvestment)
	if pos.TotalInvestment.IsPositive() {
		pos.PnLPct = pos.PnL.Div(pos.TotalInvestment).Mul(hundred)
	}

	return pos
}

// Summary computes the portfolio totals. Daily P&L is only defined in
// aggregate: sum of current values minus sum of previous-day values, with
// the current price standing in where no previous close is known.
func Summary(lots []model.Lot, prices PriceSource) model.PortfolioSummary {
	var summary model.PortfolioSummary

	for _, pos := range Aggregate(lots, prices) {
		qty := decimal.NewFromInt(int64(pos.Quantity))

		summary.TotalInvestment = summary.TotalInvestment.Add(pos.TotalInvestment)
		summary.CurrentValue = summary.CurrentValue.Add(pos.CurrentValue)

		previous := pos.CurrentPrice
		if snap, ok := prices.Snapshot(pos.Symbol); ok && snap.HasPreviousDay() {
			previous = snap.PreviousDayPrice
		}
		summary.DailyPnL = summary.DailyPnL.Add(pos.CurrentPrice.Sub(previous).Mul(qty))
	}

	summary.PnL = summary.CurrentValue.Sub(summary.TotalInvestment)
	if summary.TotalInvestment.IsPositive() {
		summary.PnLPct = summary.PnL.Div(summary.TotalInvestment).Mul(hundred)
	}
	return summary
}
