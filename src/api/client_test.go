package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"tradedesk/src/model"
)

// Test index:
// TestIsRetryableResp
// TestReadRetriesOnServerError
// TestMutationIsSentExactlyOnce
// TestServerErrorBodyParsedIntoAPIError
// TestExecuteTradeDecodesResponse
// TestGetWalletDecodesBalance
// TestGetStocksDecodesList

func newTestConfig(baseURL string) Config {
	return Config{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
		RetryWait:     time.Millisecond,
		RetryMaxWait:  5 * time.Millisecond,
	}
}

func TestIsRetryableResp(t *testing.T) {
	cases := []struct {
		name string
		code int
		err  error
		want bool
	}{
		{"transport error", 0, errors.New("dial tcp: refused"), true},
		{"internal error", 500, nil, true},
		{"bad gateway", 502, nil, true},
		{"too many requests", 429, nil, true},
		{"request timeout", 408, nil, true},
		{"bad request", 400, nil, false},
		{"not found", 404, nil, false},
		{"ok", 200, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp *resty.Response
			if tc.code > 0 {
				resp = &resty.Response{RawResponse: &http.Response{StatusCode: tc.code}}
			}
			if got := isRetryableResp(resp, tc.err); got != tc.want {
				t.Fatalf("code=%d err=%v: expected %v, got %v", tc.code, tc.err, tc.want, got)
			}
		})
	}
}

func TestReadRetriesOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(WalletResponse{Balance: decimal.NewFromInt(1000)})
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	balance, err := client.GetWallet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected balance 1000, got %s", balance)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestMutationIsSentExactlyOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "exchange down"}`))
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	_, err := client.ExecuteTrade(context.Background(), "RELIANCE", "buy", 1, decimal.NewFromInt(100), "req-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("mutation must be sent exactly once, got %d requests", got)
	}
}

func TestServerErrorBodyParsedIntoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Insufficient funds"}`))
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	_, err := client.ExecuteTrade(context.Background(), "RELIANCE", "buy", 1, decimal.NewFromInt(100), "req-1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", apiErr.Status)
	}
	if apiErr.Body != "Insufficient funds" {
		t.Fatalf("expected parsed error message, got %q", apiErr.Body)
	}
}

func TestExecuteTradeDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/trade" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body["symbol"] != "RELIANCE" || body["action"] != "buy" {
			t.Errorf("unexpected trade body: %v", body)
		}
		if body["request_id"] != "req-42" {
			t.Errorf("expected request id forwarded, got %v", body["request_id"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message": "Bought 2 RELIANCE", "wallet_balance": 4500.5}`))
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	resp, err := client.ExecuteTrade(context.Background(), "RELIANCE", "buy", 2, decimal.NewFromFloat(2700), "req-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message != "Bought 2 RELIANCE" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if !resp.WalletBalance.Equal(decimal.NewFromFloat(4500.5)) {
		t.Fatalf("expected wallet balance 4500.5, got %s", resp.WalletBalance)
	}
}

func TestGetWalletDecodesBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/wallet" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"balance": 10000}`))
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	balance, err := client.GetWallet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected balance 10000, got %s", balance)
	}
}

func TestGetStocksDecodesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stocks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"symbol": "RELIANCE", "name": "Reliance Industries", "sector": "Energy"},
			{"symbol": "TCS", "name": "Tata Consultancy Services", "sector": "IT"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	stocks, err := client.GetStocks(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stocks) != 2 {
		t.Fatalf("expected 2 stocks, got %d", len(stocks))
	}
	if stocks[0].Symbol != "RELIANCE" || stocks[0].Sector != "Energy" {
		t.Fatalf("unexpected first stock: %+v", stocks[0])
	}
}

func TestGetStockDecodesDetailAndPreviousClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stock/RELIANCE" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"current_price": 2700,
			"signal": "BUY",
			"prices": [
				{"date": "2024-05-01", "close": 2650, "sma50": 2600},
				{"date": "2024-05-02", "close": 2700, "sma50": 2610}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(newTestConfig(srv.URL))

	detail, err := client.GetStock(context.Background(), "RELIANCE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !detail.CurrentPrice.Equal(decimal.NewFromInt(2700)) {
		t.Fatalf("expected current price 2700, got %s", detail.CurrentPrice)
	}
	if !detail.PreviousClose().Equal(decimal.NewFromInt(2650)) {
		t.Fatalf("expected previous close 2650, got %s", detail.PreviousClose())
	}
}
