// Package trade validates and submits buy/sell intents. Every invalid
// request is rejected before any network call; the server re-validates
// whatever does go out.
package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradedesk/src/api"
	"tradedesk/src/model"
	"tradedesk/src/portfolio"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// API is the slice of the market server connector the executor needs.
type API interface {
	ExecuteTrade(ctx context.Context, symbol, action string, quantity int, price decimal.Decimal, requestID string) (*api.TradeResponse, error)
	GetPortfolio(ctx context.Context) ([]model.Lot, error)
}

// BalanceSource is the wallet view the executor checks against and
// settles into.
type BalanceSource interface {
	Balance() decimal.Decimal
	ApplyServerBalance(balance decimal.Decimal)
}

// Request is one buy/sell intent at the price the caller saw.
type Request struct {
	Symbol   string
	Action   string
	Quantity int
	Price    decimal.Decimal
}

// Result echoes the server's confirmation plus the refetched lots.
type Result struct {
	Message          string
	NewWalletBalance decimal.Decimal
	Lots             []model.Lot
}

type Executor struct {
	api    API
	wallet BalanceSource
	logger *logrus.Entry

	newRequestID func() string
}

func NewExecutor(client API, wallet BalanceSource, logger *logrus.Entry) *Executor {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Executor{
		api:          client,
		wallet:       wallet,
		logger:       logger,
		newRequestID: uuid.NewString,
	}
}

// Execute gatekeeps the intent and submits it. Rejections leave wallet
// and portfolio state untouched and never reach the trade endpoint.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Action != ActionBuy && req.Action != ActionSell {
		return nil, model.NewValidationError("action", "must be buy or sell")
	}
	if req.Quantity <= 0 {
		return nil, model.NewValidationError("quantity", "must be greater than zero")
	}
	if req.Price.LessThanOrEqual(decimal.Zero) {
		return nil, model.NewValidationError("price", "must be greater than zero")
	}

	switch req.Action {
	case ActionBuy:
		cost := req.Price.Mul(decimal.NewFromInt(int64(req.Quantity)))
		balance := e.wallet.Balance()
		if cost.GreaterThan(balance) {
			return nil, &model.FundsError{Required: cost, Available: balance}
		}

	case ActionSell:
		lots, err := e.api.GetPortfolio(ctx)
		if err != nil {
			return nil, err
		}
		held := 0
		if pos, ok := portfolio.AggregateSymbol(lots, portfolio.StaticPrices{}, req.Symbol); ok {
			held = pos.Quantity
		}
		if req.Quantity > held {
			return nil, &model.StaleQuantityError{Symbol: req.Symbol, Requested: req.Quantity, Held: held}
		}
	}

	requestID := e.newRequestID()
	resp, err := e.api.ExecuteTrade(ctx, req.Symbol, req.Action, req.Quantity, req.Price, requestID)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"symbol":     req.Symbol,
			"action":     req.Action,
			"request_id": requestID,
		}).Error("trade submission failed")
		return nil, err
	}

	// Balance comes from the response body, never computed speculatively.
	e.wallet.ApplyServerBalance(resp.WalletBalance)

	result := &Result{Message: resp.Message, NewWalletBalance: resp.WalletBalance}

	// Refetch so the new or reduced lot is reflected. The trade itself
	// already settled, so a failed refetch degrades rather than fails.
	lots, err := e.api.GetPortfolio(ctx)
	if err != nil {
		e.logger.WithError(err).Warn("portfolio refetch after trade failed")
	} else {
		result.Lots = lots
	}

	e.logger.WithFields(logrus.Fields{
		"symbol":      req.Symbol,
		"action":      req.Action,
		"quantity":    req.Quantity,
		"new_balance": resp.WalletBalance,
		"request_id":  requestID,
	}).Info("trade executed")

	return result, nil
}
