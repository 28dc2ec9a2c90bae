// Package dashboard wires the feed, wallet, portfolio and transaction
// log into one consistent view. All state changes happen on a single
// event loop: a completed fetch, a pushed message, or the refresh tick.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradedesk/src/botperf"
	"tradedesk/src/feed"
	"tradedesk/src/model"
	"tradedesk/src/portfolio"
)

// API is the slice of the market server connector the session needs.
type API interface {
	GetPortfolio(ctx context.Context) ([]model.Lot, error)
	GetTransactions(ctx context.Context) ([]model.Transaction, error)
}

// WalletState is the wallet the session settles pushed balances into.
type WalletState interface {
	Balance() decimal.Decimal
	Refresh(ctx context.Context) error
	ApplyServerBalance(balance decimal.Decimal)
}

// PriceBoard is the live price picture the aggregates are computed from.
type PriceBoard interface {
	Snapshot(symbol string) (model.PriceSnapshot, bool)
	Snapshots() map[string]model.PriceSnapshot
}

// TransactionCache is the optional local store of the last fetched log.
type TransactionCache interface {
	ReplaceAll(ctx context.Context, transactions []model.Transaction) error
	List(ctx context.Context) ([]model.Transaction, error)
}

// View is the consistent snapshot every panel renders from.
type View struct {
	WalletBalance  decimal.Decimal            `json:"wallet_balance"`
	Positions      []model.AggregatedPosition `json:"positions"`
	Summary        model.PortfolioSummary     `json:"summary"`
	Signals        map[string]model.Signal    `json:"signals"`
	BotPerformance botperf.Performance        `json:"bot_performance"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

type Session struct {
	cfg    Config
	api    API
	feed   feed.Subscribable
	prices PriceBoard
	wallet WalletState
	cache  TransactionCache
	logger *logrus.Entry

	mu           sync.RWMutex
	lots         []model.Lot
	transactions []model.Transaction
	view         View
}

func NewSession(cfg Config, client API, pushFeed feed.Subscribable, prices PriceBoard, walletState WalletState, cache TransactionCache, logger *logrus.Entry) *Session {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		cfg:    cfg,
		api:    client,
		feed:   pushFeed,
		prices: prices,
		wallet: walletState,
		cache:  cache,
		logger: logger,
	}
}

// View returns the current snapshot. Safe from any goroutine.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Run drives the session until the context is cancelled. The feed
// subscription is acquired here and released on exit, so no callback can
// land after teardown.
func (s *Session) Run(ctx context.Context) error {
	if err := s.refreshAll(ctx); err != nil {
		// keep going with whatever loaded; the cache and the periodic
		// refresh cover the gap
		s.logger.WithError(err).Warn("initial dashboard load incomplete")
	}

	events, release := s.feed.Subscribe()
	defer release()

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return errors.New("push channel closed")
			}
			s.handleEvent(ctx, ev)

		case <-ticker.C:
			if err := s.refreshAll(ctx); err != nil {
				s.logger.WithError(err).Warn("periodic refresh failed, keeping last-known state")
			}
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev feed.Event) {
	switch ev.Type {
	case feed.EventStockUpdate:
		// snapshot already applied by the feed manager, just recompute
		s.recompute()

	case feed.EventTradeExecuted:
		s.wallet.ApplyServerBalance(ev.WalletBalance)
		if err := s.refreshPortfolio(ctx); err != nil {
			s.logger.WithError(err).Warn("portfolio refresh after trade event failed")
		}
		if err := s.refreshTransactions(ctx); err != nil {
			s.logger.WithError(err).Warn("transaction refresh after trade event failed")
		}
		s.recompute()

	case feed.EventTransactionExecuted:
		s.wallet.ApplyServerBalance(ev.WalletBalance)
		if err := s.refreshTransactions(ctx); err != nil {
			s.logger.WithError(err).Warn("transaction refresh after transaction event failed")
		}
		s.recompute()
	}
}

func (s *Session) refreshAll(ctx context.Context) error {
	var firstErr error

	if err := s.wallet.Refresh(ctx); err != nil {
		firstErr = err
	}
	if err := s.refreshPortfolio(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.refreshTransactions(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	s.recompute()
	return firstErr
}

func (s *Session) refreshPortfolio(ctx context.Context) error {
	lots, err := s.api.GetPortfolio(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lots = lots
	s.mu.Unlock()
	return nil
}

// refreshTransactions fetches the log and mirrors it into the cache. On
// fetch failure the cached copy stands in, so the history panel keeps
// its last-known rows instead of going blank.
func (s *Session) refreshTransactions(ctx context.Context) error {
	transactions, err := s.api.GetTransactions(ctx)
	if err != nil {
		if s.cache == nil {
			return err
		}
		cached, cacheErr := s.cache.List(ctx)
		if cacheErr != nil {
			return err
		}
		s.mu.Lock()
		s.transactions = cached
		s.mu.Unlock()
		return err
	}

	if s.cache != nil {
		if cacheErr := s.cache.ReplaceAll(ctx, transactions); cacheErr != nil {
			s.logger.WithError(cacheErr).Warn("transaction cache update failed")
		}
	}

	s.mu.Lock()
	s.transactions = transactions
	s.mu.Unlock()
	return nil
}

// recompute rebuilds the view from the current lots, prices and log.
// Pure recomputation: running it twice on the same inputs yields the
// same view.
func (s *Session) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots := s.prices.Snapshots()
	signals := make(map[string]model.Signal, len(snapshots))
	for symbol, snap := range snapshots {
		if snap.Signal != "" {
			signals[symbol] = snap.Signal
		}
	}

	s.view = View{
		WalletBalance:  s.wallet.Balance(),
		Positions:      portfolio.Aggregate(s.lots, s.prices),
		Summary:        portfolio.Summary(s.lots, s.prices),
		Signals:        signals,
		BotPerformance: botperf.Analyze(s.transactions),
		UpdatedAt:      time.Now(),
	}
}
