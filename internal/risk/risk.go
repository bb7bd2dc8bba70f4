// Package risk validates candidate orders against exposure limits.
package risk

import (
	"errors"
	"fmt"
	"time"

	"autotrader/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrRiskRejected = errors.New("risk rejected")

// Rejection codes.
const (
	CodeOutsideWindow       = "outside_trading_window"
	CodeMaxOpenPositions    = "max_open_positions"
	CodePositionExists      = "position_exists"
	CodeMaxDrawdown         = "max_drawdown_exceeded"
	CodeDailyTradeLimit     = "daily_trade_limit"
	CodeBelowMinNotional    = "below_min_notional"
	CodeRiskPerTrade        = "risk_per_trade_exceeded"
	CodeExitThresholdNotMet = "exit_threshold_not_met"
	CodeInvalidPrice        = "invalid_price"
)

// sizePrecision is the number of decimal places kept on order sizes. Sizes are
// truncated so the filled cost never exceeds the approved notional.
const sizePrecision = 8

var hundred = decimal.NewFromInt(100)

// Rejection explains why an order was refused. It wraps ErrRiskRejected.
type Rejection struct {
	Code   string
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("risk rejected: %s", r.Code)
	}
	return fmt.Sprintf("risk rejected: %s: %s", r.Code, r.Detail)
}

func (r *Rejection) Unwrap() error { return ErrRiskRejected }

func reject(code, format string, args ...any) error {
	return &Rejection{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Order is an approved instruction for the ledger.
type Order struct {
	Symbol     string
	Side       domain.Side
	Action     domain.Action
	Size       decimal.Decimal
	Price      decimal.Decimal
	Notional   decimal.Decimal
	Reason     string
	PositionID string
	Closing    bool
}

type Manager struct {
	cfg domain.RiskConfig
}

func NewManager(cfg domain.RiskConfig) *Manager {
	return &Manager{cfg: cfg}
}

func (m *Manager) Config() domain.RiskConfig { return m.cfg }

// EvaluateEntry checks an order that would open new exposure. The first
// failing check rejects.
func (m *Manager) EvaluateEntry(side domain.Side, tick domain.MarketTick, acct domain.AccountSnapshot, now time.Time) (Order, error) {
	if tick.Price <= 0 {
		return Order{}, reject(CodeInvalidPrice, "price %f", tick.Price)
	}
	if !m.cfg.TradingWindow.Contains(now) {
		return Order{}, reject(CodeOutsideWindow, "%s-%s", m.cfg.TradingWindow.Start, m.cfg.TradingWindow.End)
	}
	if len(acct.Positions) >= m.cfg.MaxOpenPositions {
		return Order{}, reject(CodeMaxOpenPositions, "%d open, limit %d", len(acct.Positions), m.cfg.MaxOpenPositions)
	}
	if _, ok := acct.PositionFor(tick.Symbol); ok {
		return Order{}, reject(CodePositionExists, "%s", tick.Symbol)
	}
	if acct.DrawdownPct > m.cfg.MaxDrawdownPct {
		return Order{}, reject(CodeMaxDrawdown, "drawdown %.2f%% over limit %.2f%%", acct.DrawdownPct, m.cfg.MaxDrawdownPct)
	}
	if m.cfg.MaxDailyTrades > 0 && acct.OpensToday >= m.cfg.MaxDailyTrades {
		return Order{}, reject(CodeDailyTradeLimit, "%d trades today, limit %d", acct.OpensToday, m.cfg.MaxDailyTrades)
	}

	price := decimal.NewFromFloat(tick.Price)
	notional := m.Notional(acct.Balance)
	size := notional.Div(price).Truncate(sizePrecision)
	if !size.IsPositive() || notional.LessThan(decimal.NewFromFloat(m.cfg.MinOrderNotional)) {
		return Order{}, reject(CodeBelowMinNotional, "notional %s below minimum %.2f", notional.StringFixed(2), m.cfg.MinOrderNotional)
	}

	atRisk := notional.Mul(decimal.NewFromFloat(m.cfg.StopLossPct)).Div(hundred)
	budget := acct.Balance.Mul(decimal.NewFromFloat(m.cfg.MaxRiskPerTradePct)).Div(hundred)
	if atRisk.GreaterThan(budget) {
		return Order{}, reject(CodeRiskPerTrade, "risk %s over budget %s", atRisk.StringFixed(2), budget.StringFixed(2))
	}

	action := domain.ActionBuy
	if side == domain.SideShort {
		action = domain.ActionSell
	}
	return Order{
		Symbol:   tick.Symbol,
		Side:     side,
		Action:   action,
		Size:     size,
		Price:    price,
		Notional: notional,
		Reason:   domain.TradeReasonOpen,
	}, nil
}

// Notional is the order value for the configured amount, capped at
// balance * MaxPositionSizePct.
func (m *Manager) Notional(balance decimal.Decimal) decimal.Decimal {
	amount := decimal.NewFromFloat(m.cfg.OrderAmount)
	limit := balance.Mul(decimal.NewFromFloat(m.cfg.MaxPositionSizePct))
	return decimal.Min(amount, limit)
}

// EvaluateExit decides whether pos should be closed this cycle. Stop-loss and
// take-profit exits always pass. An opposing signal closes the position only
// at high urgency and inside the trading window. ok is false when there is
// nothing to do.
func (m *Manager) EvaluateExit(pos domain.Position, decision domain.Decision, now time.Time) (order Order, ok bool, err error) {
	exit := Order{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		Action:     closingAction(pos.Side),
		Size:       pos.Size,
		Price:      pos.CurrentPrice,
		Notional:   pos.Size.Mul(pos.CurrentPrice),
		PositionID: pos.ID,
		Closing:    true,
	}

	pct := pos.UnrealizedPct()
	switch {
	case pct <= -m.cfg.StopLossPct:
		exit.Reason = domain.TradeReasonStopLoss
		return exit, true, nil
	case pct >= m.cfg.TakeProfitPct:
		exit.Reason = domain.TradeReasonTakeProfit
		return exit, true, nil
	}

	if decision.Action != exit.Action {
		return Order{}, false, nil
	}
	if !m.cfg.TradingWindow.Contains(now) {
		return Order{}, false, reject(CodeOutsideWindow, "%s-%s", m.cfg.TradingWindow.Start, m.cfg.TradingWindow.End)
	}
	if decision.Urgency != domain.UrgencyHigh {
		return Order{}, false, reject(CodeExitThresholdNotMet, "unrealized %.2f%% inside -%.2f%%/+%.2f%% and urgency %s", pct, m.cfg.StopLossPct, m.cfg.TakeProfitPct, decision.Urgency)
	}
	exit.Reason = domain.TradeReasonSignal
	return exit, true, nil
}

func closingAction(side domain.Side) domain.Action {
	if side == domain.SideShort {
		return domain.ActionBuy
	}
	return domain.ActionSell
}

// Code extracts the rejection code from err, or "" if err is not a Rejection.
func Code(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Code
	}
	return ""
}
