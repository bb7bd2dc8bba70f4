package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeStats summarizes closed trades.
type TradeStats struct {
	TotalTrades      int             `json:"total_trades"`
	ProfitableTrades int             `json:"profitable_trades"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	WinRate          float64         `json:"win_rate"`
}

// AccountSnapshot is a point-in-time copy of the ledger for readers.
type AccountSnapshot struct {
	Balance        decimal.Decimal `json:"balance"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	RealizedLoss   decimal.Decimal `json:"realized_loss"`
	Equity         decimal.Decimal `json:"equity"`
	DrawdownPct    float64         `json:"drawdown_pct"`
	Positions      []Position      `json:"positions"`
	OpensToday     int             `json:"opens_today"`
	Stats          TradeStats      `json:"stats"`
	TakenAt        time.Time       `json:"taken_at"`
}

// PositionFor returns the open position on symbol, if any.
func (s AccountSnapshot) PositionFor(symbol string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
