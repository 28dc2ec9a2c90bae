// Package feed maintains the live price picture pushed by the market
// server. One process-wide Manager owns the websocket connection; views
// subscribe and unsubscribe around their own lifetime without ever
// touching the connection itself.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradedesk/src/model"
)

// Resyncer refetches the full price picture from persisted server state.
// Events lost during a disconnect are not replayed, so the periodic
// resync is the fallback against permanently missed pushes.
type Resyncer interface {
	GetStocks(ctx context.Context) ([]model.StockQuote, error)
	GetStock(ctx context.Context, symbol string) (*model.StockDetail, error)
}

// envelope is the wire form of every pushed frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type walletEvent struct {
	WalletBalance json.Number `json:"wallet_balance"`
}

type Manager struct {
	cfg    Config
	resync Resyncer
	logger *logrus.Entry
	dialer *websocket.Dialer

	mu        sync.RWMutex
	snapshots map[string]model.PriceSnapshot

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, resync Resyncer, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{
		cfg:    cfg,
		resync: resync,
		logger: logger,
		dialer: &websocket.Dialer{
			HandshakeTimeout:  cfg.HandshakeTimeout,
			EnableCompression: true,
		},
		snapshots: make(map[string]model.PriceSnapshot),
		subs:      make(map[int]chan Event),
	}
}

// Start brings the connection and the resync timer up. Call Stop to tear
// both down; Start must not be called twice without a Stop in between.
func (m *Manager) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.connectLoop(runCtx)
	}()
	go func() {
		defer wg.Done()
		m.resyncLoop(runCtx)
	}()
	go func() {
		wg.Wait()
		close(m.done)
	}()
}

// Stop tears the connection down and closes every subscriber channel.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// Subscribe attaches a view to the push channel. The release function is
// safe to call more than once.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++

	ch := make(chan Event, 32)
	m.subs[id] = ch

	release := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
	return ch, release
}

// Snapshot returns the last known prices for a symbol.
func (m *Manager) Snapshot(symbol string) (model.PriceSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[symbol]
	return snap, ok
}

// Snapshots returns a copy of the full price map.
func (m *Manager) Snapshots() map[string]model.PriceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]model.PriceSnapshot, len(m.snapshots))
	for symbol, snap := range m.snapshots {
		out[symbol] = snap
	}
	return out
}

// connectLoop dials, consumes until the connection drops, then retries
// with a fixed delay. After the configured attempts it gives up for good;
// the resync loop keeps the snapshots from going permanently stale.
func (m *Manager) connectLoop(ctx context.Context) {
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := m.dialer.DialContext(ctx, m.cfg.URL, nil)
		if err != nil {
			attempts++
			m.logger.WithError(err).WithFields(logrus.Fields{
				"attempt": attempts,
				"url":     m.cfg.URL,
			}).Warn("feed dial failed")

			if attempts >= m.cfg.ReconnectAttempts {
				m.logger.Error("feed reconnect attempts exhausted, relying on periodic resync")
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(m.cfg.ReconnectDelay):
			}
			continue
		}

		attempts = 0
		m.logger.WithField("url", m.cfg.URL).Info("feed connected")
		m.consume(ctx, conn)
	}
}

func (m *Manager) consume(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				m.logger.WithError(err).Warn("feed read failed, reconnecting")
			}
			return
		}
		m.handleFrame(msg)
	}
}

func (m *Manager) handleFrame(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.logger.WithError(err).Debug("dropping malformed feed frame")
		return
	}

	switch EventType(env.Event) {
	case EventStockUpdate:
		var update StockUpdate
		if err := json.Unmarshal(env.Data, &update); err != nil {
			m.logger.WithError(err).Debug("dropping malformed stock_update")
			return
		}
		m.applyStockUpdate(update)
		m.broadcast(Event{Type: EventStockUpdate, Stock: &update})

	case EventTradeExecuted, EventTransactionExecuted:
		var we walletEvent
		if err := json.Unmarshal(env.Data, &we); err != nil {
			m.logger.WithError(err).Debug("dropping malformed wallet event")
			return
		}
		balance, err := decimal.NewFromString(we.WalletBalance.String())
		if err != nil {
			m.logger.WithError(err).Debug("dropping wallet event with bad balance")
			return
		}
		m.broadcast(Event{Type: EventType(env.Event), WalletBalance: balance})

	default:
		// unknown event types are ignored, the server may grow new ones
	}
}

// applyStockUpdate upserts the snapshot, last write wins per symbol.
// Unknown symbols are inserted silently. An update without a previous
// close keeps the one already on file.
func (m *Manager) applyStockUpdate(update StockUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshots[update.Symbol]
	snap.Symbol = update.Symbol
	snap.CurrentPrice = update.CurrentPrice
	if !update.PreviousDayPrice.IsZero() {
		snap.PreviousDayPrice = update.PreviousDayPrice
	}
	if update.Signal != "" {
		snap.Signal = model.ParseSignal(update.Signal)
	}
	snap.UpdatedAt = time.Now()

	m.snapshots[update.Symbol] = snap
}

func (m *Manager) broadcast(ev Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber, drop rather than stall the feed
		}
	}
}

func (m *Manager) resyncLoop(ctx context.Context) {
	if m.resync == nil || m.cfg.ResyncInterval <= 0 {
		return
	}

	ticker := time.NewTicker(m.cfg.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Resync(ctx); err != nil {
				m.logger.WithError(err).Warn("feed resync failed")
			}
		}
	}
}

// Resync rebuilds the price map from the server's persisted state and
// fans matching updates out, so aggregates recover from missed pushes.
func (m *Manager) Resync(ctx context.Context) error {
	stocks, err := m.resync.GetStocks(ctx)
	if err != nil {
		return err
	}

	for _, stock := range stocks {
		detail, err := m.resync.GetStock(ctx, stock.Symbol)
		if err != nil {
			m.logger.WithError(err).WithField("symbol", stock.Symbol).Warn("resync skipped symbol")
			continue
		}

		update := StockUpdate{
			Symbol:           stock.Symbol,
			CurrentPrice:     detail.CurrentPrice,
			PreviousDayPrice: detail.PreviousClose(),
			Signal:           detail.Signal,
		}
		m.applyStockUpdate(update)
		m.broadcast(Event{Type: EventStockUpdate, Stock: &update})
	}
	return nil
}
