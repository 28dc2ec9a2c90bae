// REST connector for the simulated market server.
// Reads retry internally; mutations are sent exactly once.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"tradedesk/src/model"
)

type Client struct {
	// read retries on transient failures; write never does, a duplicated
	// mutation would execute the trade twice.
	read  *resty.Client
	write *resty.Client
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
		logger.Warnf("No market server URL provided, using default: %s", cfg.BaseURL)
	}

	read := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryAttempts - 1).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(isRetryableResp)

	write := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Client{read: read, write: write}
}

// serverError is the JSON body the market server attaches to 4xx/5xx.
type serverError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, client *resty.Client, method, path string, body, out any) error {
	req := client.R().SetContext(ctx)
	if body != nil {
		req = req.SetBody(body).SetHeader("Content-Type", "application/json")
	}

	logger.WithFields(logger.Fields{
		"method": method,
		"path":   path,
	}).Debug("market server request")

	resp, err := req.Execute(method, path)
	if err != nil {
		return &model.APIError{Err: err}
	}

	raw := resp.Body()

	logger.WithFields(logger.Fields{
		"status": resp.StatusCode(),
		"path":   path,
	}).Debug("market server response")

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		apiErr := &model.APIError{Status: resp.StatusCode(), Body: string(raw)}
		var se serverError
		if json.Unmarshal(raw, &se) == nil && se.Error != "" {
			apiErr.Body = se.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, c.read, http.MethodGet, path, nil, out)
}

// ---------------------------------------------------------------------
// MARKET DATA
// ---------------------------------------------------------------------

func (c *Client) GetStocks(ctx context.Context) ([]model.StockQuote, error) {
	var stocks []model.StockQuote
	if err := c.get(ctx, "/api/stocks", &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

func (c *Client) GetStock(ctx context.Context, symbol string) (*model.StockDetail, error) {
	var detail model.StockDetail
	if err := c.get(ctx, "/api/stock/"+symbol, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ---------------------------------------------------------------------
// PORTFOLIO
// ---------------------------------------------------------------------

func (c *Client) GetPortfolio(ctx context.Context) ([]model.Lot, error) {
	var lots []model.Lot
	if err := c.get(ctx, "/api/portfolio", &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (c *Client) AddLot(ctx context.Context, symbol string, quantity int, buyPrice decimal.Decimal) error {
	body := map[string]any{
		"symbol":    symbol,
		"quantity":  quantity,
		"buy_price": buyPrice.InexactFloat64(),
	}
	return c.do(ctx, c.write, http.MethodPost, "/api/portfolio", body, nil)
}

func (c *Client) ClearPortfolio(ctx context.Context) error {
	return c.do(ctx, c.write, http.MethodDelete, "/api/portfolio", nil, nil)
}

// ---------------------------------------------------------------------
// TRADING
// ---------------------------------------------------------------------

// TradeResponse is the body of a successful POST /api/trade.
type TradeResponse struct {
	Message       string          `json:"message"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
}

func (c *Client) ExecuteTrade(ctx context.Context, symbol, action string, quantity int, price decimal.Decimal, requestID string) (*TradeResponse, error) {
	body := map[string]any{
		"symbol":        symbol,
		"action":        action,
		"quantity":      quantity,
		"current_price": price.InexactFloat64(),
		"request_id":    requestID,
	}

	var out TradeResponse
	if err := c.do(ctx, c.write, http.MethodPost, "/api/trade", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------
// WALLET
// ---------------------------------------------------------------------

// WalletResponse covers GET /api/wallet and the deposit/withdraw replies.
type WalletResponse struct {
	Balance       decimal.Decimal `json:"balance"`
	Message       string          `json:"message,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

func (c *Client) GetWallet(ctx context.Context) (decimal.Decimal, error) {
	var out WalletResponse
	if err := c.get(ctx, "/api/wallet", &out); err != nil {
		return decimal.Zero, err
	}
	return out.Balance, nil
}

func (c *Client) Deposit(ctx context.Context, amount decimal.Decimal, description string) (*WalletResponse, error) {
	body := map[string]any{
		"amount":      amount.InexactFloat64(),
		"description": description,
	}

	var out WalletResponse
	if err := c.do(ctx, c.write, http.MethodPost, "/api/wallet/deposit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Withdraw(ctx context.Context, amount decimal.Decimal, description string) (*WalletResponse, error) {
	body := map[string]any{
		"amount":      amount.InexactFloat64(),
		"description": description,
	}

	var out WalletResponse
	if err := c.do(ctx, c.write, http.MethodPost, "/api/wallet/withdraw", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---------------------------------------------------------------------
// TRANSACTIONS & BOT
// ---------------------------------------------------------------------

func (c *Client) GetTransactions(ctx context.Context) ([]model.Transaction, error) {
	var transactions []model.Transaction
	if err := c.get(ctx, "/api/transactions", &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (c *Client) GetBotSettings(ctx context.Context) (*model.BotSettings, error) {
	var settings model.BotSettings
	if err := c.get(ctx, "/api/trading-bot", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// botSettingsResponse wraps PUT /api/trading-bot replies.
type botSettingsResponse struct {
	Message  string            `json:"message"`
	Settings model.BotSettings `json:"settings"`
}

func (c *Client) UpdateBotSettings(ctx context.Context, settings model.BotSettings) (*model.BotSettings, error) {
	body := map[string]any{
		"is_active":                settings.IsActive,
		"max_investment_per_trade": settings.MaxInvestmentPerTrade.InexactFloat64(),
		"profit_target_percentage": settings.ProfitTargetPct.InexactFloat64(),
		"stop_loss_percentage":     settings.StopLossPct.InexactFloat64(),
		"max_trades_per_day":       settings.MaxTradesPerDay,
		"max_open_positions":       settings.MaxOpenPositions,
	}

	var out botSettingsResponse
	if err := c.do(ctx, c.write, http.MethodPut, "/api/trading-bot", body, &out); err != nil {
		return nil, err
	}
	return &out.Settings, nil
}

// ResetBotPerformance clears the bot's transaction history on the server.
func (c *Client) ResetBotPerformance(ctx context.Context) error {
	body := map[string]any{"reset_performance": true}
	return c.do(ctx, c.write, http.MethodPut, "/api/trading-bot", body, nil)
}
