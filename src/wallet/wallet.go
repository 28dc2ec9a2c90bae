// Package wallet holds the authoritative trading balance. The balance is
// only ever set from server-confirmed values: deposit/withdraw responses,
// trade settlements, and pushed balance events. Nothing here computes a
// new balance locally and trusts it.
package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradedesk/src/api"
	"tradedesk/src/model"
)

// API is the slice of the market server connector the wallet needs.
type API interface {
	GetWallet(ctx context.Context) (decimal.Decimal, error)
	Deposit(ctx context.Context, amount decimal.Decimal, description string) (*api.WalletResponse, error)
	Withdraw(ctx context.Context, amount decimal.Decimal, description string) (*api.WalletResponse, error)
}

// MutationResult echoes what the server confirmed for a deposit/withdraw.
type MutationResult struct {
	NewBalance    decimal.Decimal
	TransactionID string
	Message       string
}

type Wallet struct {
	api    API
	logger *logrus.Entry

	mu      sync.RWMutex
	balance decimal.Decimal

	subMu   sync.Mutex
	subs    map[int]chan decimal.Decimal
	nextSub int
}

func New(client API, logger *logrus.Entry) *Wallet {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Wallet{
		api:    client,
		logger: logger,
		subs:   make(map[int]chan decimal.Decimal),
	}
}

func (w *Wallet) Balance() decimal.Decimal {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// Refresh fetches the current balance from the server.
func (w *Wallet) Refresh(ctx context.Context) error {
	balance, err := w.api.GetWallet(ctx)
	if err != nil {
		return err
	}
	w.ApplyServerBalance(balance)
	return nil
}

// ApplyServerBalance sets the balance to a server-confirmed value and
// broadcasts the change to every subscriber. Feed events land here too.
func (w *Wallet) ApplyServerBalance(balance decimal.Decimal) {
	w.mu.Lock()
	w.balance = balance
	w.mu.Unlock()

	w.broadcast(balance)
}

func (w *Wallet) Deposit(ctx context.Context, amount decimal.Decimal, description string) (*MutationResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.NewValidationError("amount", "must be greater than zero")
	}

	resp, err := w.api.Deposit(ctx, amount, description)
	if err != nil {
		return nil, err
	}

	w.ApplyServerBalance(resp.Balance)
	w.logger.WithFields(logrus.Fields{
		"amount":      amount,
		"new_balance": resp.Balance,
	}).Info("deposit confirmed")

	return &MutationResult{NewBalance: resp.Balance, TransactionID: resp.TransactionID, Message: resp.Message}, nil
}

// Withdraw fails with a FundsError before any network call when the
// requested amount exceeds the last confirmed balance. The server
// re-validates on its side.
func (w *Wallet) Withdraw(ctx context.Context, amount decimal.Decimal, description string) (*MutationResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, model.NewValidationError("amount", "must be greater than zero")
	}

	current := w.Balance()
	if amount.GreaterThan(current) {
		return nil, &model.FundsError{Required: amount, Available: current}
	}

	resp, err := w.api.Withdraw(ctx, amount, description)
	if err != nil {
		return nil, err
	}

	w.ApplyServerBalance(resp.Balance)
	w.logger.WithFields(logrus.Fields{
		"amount":      amount,
		"new_balance": resp.Balance,
	}).Info("withdrawal confirmed")

	return &MutationResult{NewBalance: resp.Balance, TransactionID: resp.TransactionID, Message: resp.Message}, nil
}

// SubscribeChanges returns a channel receiving every confirmed balance
// and a release function. Panels attach here instead of sharing state.
func (w *Wallet) SubscribeChanges() (<-chan decimal.Decimal, func()) {
	w.subMu.Lock()
	defer w.subMu.Unlock()

	id := w.nextSub
	w.nextSub++

	ch := make(chan decimal.Decimal, 8)
	w.subs[id] = ch

	release := func() {
		w.subMu.Lock()
		defer w.subMu.Unlock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
	}
	return ch, release
}

func (w *Wallet) broadcast(balance decimal.Decimal) {
	w.subMu.Lock()
	defer w.subMu.Unlock()

	for _, ch := range w.subs {
		select {
		case ch <- balance:
		default:
			// slow subscriber, skip rather than block the event loop
		}
	}
}
