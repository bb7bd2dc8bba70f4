// Package ledger owns the virtual trading account.
//
// Every mutation keeps balance + sum(size * entryPrice) equal to
// initialBalance + realizedProfit - realizedLoss. Mutations are checked
// against that law before they are committed.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"autotrader/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrder        = errors.New("invalid order")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPositionExists      = errors.New("position already open for symbol")
	ErrPositionNotFound    = errors.New("position not found")
	ErrInvariantViolation  = errors.New("ledger invariant violation")
)

var hundred = decimal.NewFromInt(100)

// Note annotates the trade record produced by a fill.
type Note struct {
	Confidence float64
	Reason     string
	Strategy   domain.StrategyVariant
	Mode       domain.Mode
}

type Ledger struct {
	mu sync.RWMutex

	initial        decimal.Decimal
	balance        decimal.Decimal
	realizedProfit decimal.Decimal
	realizedLoss   decimal.Decimal

	positions map[string]*domain.Position
	bySymbol  map[string]string
	trades    []domain.TradeRecord

	closedTrades     int
	profitableTrades int
	opensDay         string
	opensToday       int

	now   func() time.Time
	newID func() string
}

// New creates a ledger holding initialBalance in cash.
func New(initialBalance decimal.Decimal) (*Ledger, error) {
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: negative initial balance %s", ErrInvalidOrder, initialBalance)
	}
	return &Ledger{
		initial:   initialBalance,
		balance:   initialBalance,
		positions: make(map[string]*domain.Position),
		bySymbol:  make(map[string]string),
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// Open creates a position and debits its cost from the balance.
func (l *Ledger) Open(symbol string, side domain.Side, size, price decimal.Decimal, note Note) (domain.Position, domain.TradeRecord, error) {
	if symbol == "" || !size.IsPositive() || !price.IsPositive() {
		return domain.Position{}, domain.TradeRecord{}, fmt.Errorf("%w: symbol=%q size=%s price=%s", ErrInvalidOrder, symbol, size, price)
	}
	if side != domain.SideLong && side != domain.SideShort {
		return domain.Position{}, domain.TradeRecord{}, fmt.Errorf("%w: side %q", ErrInvalidOrder, side)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.bySymbol[symbol]; ok {
		return domain.Position{}, domain.TradeRecord{}, fmt.Errorf("%w: %s", ErrPositionExists, symbol)
	}
	cost := size.Mul(price)
	if cost.GreaterThan(l.balance) {
		return domain.Position{}, domain.TradeRecord{}, fmt.Errorf("%w: cost %s exceeds balance %s", ErrInsufficientBalance, cost, l.balance)
	}

	balance := l.balance.Sub(cost)
	if err := l.check(balance, l.openCost().Add(cost), l.realizedProfit, l.realizedLoss); err != nil {
		return domain.Position{}, domain.TradeRecord{}, err
	}

	now := l.now()
	pos := &domain.Position{
		ID:            l.newID(),
		Symbol:        symbol,
		Side:          side,
		Size:          size,
		EntryPrice:    price,
		CurrentPrice:  price,
		UnrealizedPnl: decimal.Zero,
		OpenedAt:      now,
	}
	action := domain.ActionBuy
	if side == domain.SideShort {
		action = domain.ActionSell
	}
	if note.Reason == "" {
		note.Reason = domain.TradeReasonOpen
	}
	trade := l.record(pos, action, price, nil, note, now)

	l.balance = balance
	l.positions[pos.ID] = pos
	l.bySymbol[symbol] = pos.ID
	l.countOpen(now)
	return *pos, trade, nil
}

// Close settles the position at exitPrice and credits cost plus P&L.
func (l *Ledger) Close(id string, exitPrice decimal.Decimal, note Note) (domain.TradeRecord, error) {
	if !exitPrice.IsPositive() {
		return domain.TradeRecord{}, fmt.Errorf("%w: exit price %s", ErrInvalidOrder, exitPrice)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[id]
	if !ok {
		return domain.TradeRecord{}, fmt.Errorf("%w: %s", ErrPositionNotFound, id)
	}

	cost := pos.Cost()
	pnl := pos.PnlAt(exitPrice)
	balance := l.balance.Add(cost).Add(pnl)
	profit, loss := l.realizedProfit, l.realizedLoss
	if pnl.IsNegative() {
		loss = loss.Add(pnl.Neg())
	} else {
		profit = profit.Add(pnl)
	}
	if err := l.check(balance, l.openCost().Sub(cost), profit, loss); err != nil {
		return domain.TradeRecord{}, err
	}

	action := domain.ActionSell
	if pos.Side == domain.SideShort {
		action = domain.ActionBuy
	}
	trade := l.record(pos, action, exitPrice, &pnl, note, l.now())

	l.balance = balance
	l.realizedProfit = profit
	l.realizedLoss = loss
	delete(l.positions, id)
	delete(l.bySymbol, pos.Symbol)
	l.closedTrades++
	if pnl.IsPositive() {
		l.profitableTrades++
	}
	return trade, nil
}

// MarkToMarket revalues the position on tick.Symbol. It never touches the
// balance or the number of positions.
func (l *Ledger) MarkToMarket(tick domain.MarketTick) (domain.Position, bool) {
	if tick.Price <= 0 {
		return domain.Position{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.bySymbol[tick.Symbol]
	if !ok {
		return domain.Position{}, false
	}
	pos := l.positions[id]
	price := decimal.NewFromFloat(tick.Price)
	pos.CurrentPrice = price
	pos.UnrealizedPnl = pos.PnlAt(price)
	return *pos, true
}

// Snapshot returns a consistent copy of the account.
func (l *Ledger) Snapshot() domain.AccountSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()
	positions := l.sortedPositions()
	equity := l.balance
	for _, p := range positions {
		equity = equity.Add(p.Cost()).Add(p.UnrealizedPnl)
	}
	drawdown := 0.0
	if l.initial.IsPositive() {
		dd, _ := l.initial.Sub(equity).Div(l.initial).Mul(hundred).Float64()
		if dd > 0 {
			drawdown = dd
		}
	}
	opens := 0
	if l.opensDay == dayKey(now) {
		opens = l.opensToday
	}
	return domain.AccountSnapshot{
		Balance:        l.balance,
		InitialBalance: l.initial,
		RealizedProfit: l.realizedProfit,
		RealizedLoss:   l.realizedLoss,
		Equity:         equity,
		DrawdownPct:    drawdown,
		Positions:      positions,
		OpensToday:     opens,
		Stats:          l.stats(),
		TakenAt:        now,
	}
}

// Positions returns copies of the open positions ordered by open time.
func (l *Ledger) Positions() []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortedPositions()
}

// Trades returns the trade history, oldest first. If limit > 0 only the
// newest limit records are returned.
func (l *Ledger) Trades(limit int) []domain.TradeRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	from := 0
	if limit > 0 && limit < len(l.trades) {
		from = len(l.trades) - limit
	}
	out := make([]domain.TradeRecord, len(l.trades)-from)
	copy(out, l.trades[from:])
	return out
}

func (l *Ledger) Stats() domain.TradeStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats()
}

// Verify checks the conservation law against the committed state.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.check(l.balance, l.openCost(), l.realizedProfit, l.realizedLoss)
}

func (l *Ledger) check(balance, openCost, profit, loss decimal.Decimal) error {
	lhs := balance.Add(openCost)
	rhs := l.initial.Add(profit).Sub(loss)
	if !lhs.Equal(rhs) {
		return fmt.Errorf("%w: balance+open cost %s != initial+profit-loss %s", ErrInvariantViolation, lhs, rhs)
	}
	return nil
}

func (l *Ledger) openCost() decimal.Decimal {
	total := decimal.Zero
	for _, p := range l.positions {
		total = total.Add(p.Cost())
	}
	return total
}

func (l *Ledger) record(pos *domain.Position, action domain.Action, price decimal.Decimal, pnl *decimal.Decimal, note Note, at time.Time) domain.TradeRecord {
	mode := note.Mode
	if mode == "" {
		mode = domain.ModeSimulation
	}
	trade := domain.TradeRecord{
		ID:             l.newID(),
		PositionID:     pos.ID,
		Symbol:         pos.Symbol,
		Side:           action,
		Price:          price,
		Amount:         pos.Size,
		RealizedProfit: pnl,
		Confidence:     note.Confidence,
		Reason:         note.Reason,
		Strategy:       note.Strategy,
		Timestamp:      at,
		Mode:           mode,
	}
	l.trades = append(l.trades, trade)
	return trade
}

func (l *Ledger) countOpen(at time.Time) {
	day := dayKey(at)
	if l.opensDay != day {
		l.opensDay = day
		l.opensToday = 0
	}
	l.opensToday++
}

func (l *Ledger) sortedPositions() []domain.Position {
	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

func (l *Ledger) stats() domain.TradeStats {
	s := domain.TradeStats{
		TotalTrades:      l.closedTrades,
		ProfitableTrades: l.profitableTrades,
		NetProfit:        l.realizedProfit.Sub(l.realizedLoss),
	}
	if l.closedTrades > 0 {
		s.WinRate = float64(l.profitableTrades) / float64(l.closedTrades) * 100
	}
	return s
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
