package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Decision is what a strategy variant concludes for one symbol in one cycle.
type Decision struct {
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Confidence float64         `json:"confidence"`
	Urgency    Urgency         `json:"urgency"`
	Reason     string          `json:"reason"`
	Strategy   StrategyVariant `json:"strategy"`
}

// Hold returns a hold decision carrying the given reason code.
func Hold(symbol string, variant StrategyVariant, reason string) Decision {
	return Decision{
		Symbol:   symbol,
		Action:   ActionHold,
		Urgency:  UrgencyLow,
		Reason:   reason,
		Strategy: variant,
	}
}

type StrategyVariant string

const (
	StrategyTrendFollowing StrategyVariant = "trend_following"
	StrategyMeanReversion  StrategyVariant = "mean_reversion"
	StrategyMomentum       StrategyVariant = "momentum"
	StrategyBreakout       StrategyVariant = "breakout"
	StrategyScalping       StrategyVariant = "scalping"
)

// StrategyVariants lists every supported variant.
var StrategyVariants = []StrategyVariant{
	StrategyTrendFollowing,
	StrategyMeanReversion,
	StrategyMomentum,
	StrategyBreakout,
	StrategyScalping,
}

// StrategyConfig is fixed for the lifetime of a scheduler run.
type StrategyConfig struct {
	Variant             StrategyVariant `json:"variant" validate:"required,oneof=trend_following mean_reversion momentum breakout scalping"`
	OverboughtRSI       float64         `json:"overbought_rsi" validate:"gt=0,lte=100,gtfield=OversoldRSI"`
	OversoldRSI         float64         `json:"oversold_rsi" validate:"gte=0,lt=100"`
	MomentumThreshold   float64         `json:"momentum_threshold_pct" validate:"gt=0"`
	VolatilityThreshold float64         `json:"volatility_threshold_pct" validate:"gt=0"`
	ScalpMinVolatility  float64         `json:"scalp_min_volatility_pct" validate:"gte=0"`
	ScalpMaxVolatility  float64         `json:"scalp_max_volatility_pct" validate:"gtfield=ScalpMinVolatility"`
	ConfidenceThreshold float64         `json:"confidence_threshold" validate:"gte=0,lte=100"`
	AllowShort          bool            `json:"allow_short"`
}

// DefaultStrategyConfig mirrors the settings the bot ships with.
func DefaultStrategyConfig() StrategyConfig {
	return StrategyConfig{
		Variant:             StrategyTrendFollowing,
		OverboughtRSI:       70,
		OversoldRSI:         30,
		MomentumThreshold:   1.0,
		VolatilityThreshold: 2.0,
		ScalpMinVolatility:  0.05,
		ScalpMaxVolatility:  0.5,
		ConfidenceThreshold: 70,
	}
}

// TradingWindow restricts when new exposure may be taken. Start and End are
// "HH:MM" clock times in Location; End before Start wraps past midnight.
type TradingWindow struct {
	Enabled  bool           `json:"enabled"`
	Start    string         `json:"start" validate:"omitempty,datetime=15:04"`
	End      string         `json:"end" validate:"omitempty,datetime=15:04"`
	Location *time.Location `json:"-"`
}

// Contains reports whether t falls inside the window. A disabled window
// contains every instant.
func (w TradingWindow) Contains(t time.Time) bool {
	if !w.Enabled {
		return true
	}
	start, err := parseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(w.End)
	if err != nil {
		return false
	}
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	now := local.Hour()*60 + local.Minute()
	if start <= end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// RiskConfig bounds how much exposure the agent may take.
//
// MaxPositionSizePct is a fraction of balance (0.1 = 10%). The other *Pct
// fields are percentages (2 = 2%).
type RiskConfig struct {
	MaxPositionSizePct float64       `json:"max_position_size_pct" validate:"gt=0,lte=1"`
	MaxDrawdownPct     float64       `json:"max_drawdown_pct" validate:"gt=0,lte=100"`
	MaxOpenPositions   int           `json:"max_open_positions" validate:"gt=0"`
	MaxRiskPerTradePct float64       `json:"max_risk_per_trade_pct" validate:"gt=0,lte=100"`
	StopLossPct        float64       `json:"stop_loss_pct" validate:"gt=0,lt=100"`
	TakeProfitPct      float64       `json:"take_profit_pct" validate:"gt=0"`
	TradingWindow      TradingWindow `json:"trading_window"`
	OrderAmount        float64       `json:"order_amount" validate:"gt=0"`
	MinOrderNotional   float64       `json:"min_order_notional" validate:"gte=0"`
	MaxDailyTrades     int           `json:"max_daily_trades" validate:"gte=0"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxPositionSizePct: 0.1,
		MaxDrawdownPct:     20,
		MaxOpenPositions:   5,
		MaxRiskPerTradePct: 2,
		StopLossPct:        5,
		TakeProfitPct:      10,
		OrderAmount:        10,
		MinOrderNotional:   1,
		MaxDailyTrades:     10,
	}
}

type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Position is open exposure on one symbol. Only the ledger creates, updates
// and removes positions; callers receive copies.
type Position struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Size          decimal.Decimal `json:"size"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	OpenedAt      time.Time       `json:"opened_at"`
}

// Cost is the cash locked by the position at entry.
func (p Position) Cost() decimal.Decimal {
	return p.Size.Mul(p.EntryPrice)
}

// PnlAt is the profit of closing the position at price.
func (p Position) PnlAt(price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.EntryPrice)
	if p.Side == SideShort {
		diff = diff.Neg()
	}
	return diff.Mul(p.Size)
}

// UnrealizedPct is the unrealized profit as a percentage of cost.
func (p Position) UnrealizedPct() float64 {
	cost := p.Cost()
	if cost.IsZero() {
		return 0
	}
	pct, _ := p.UnrealizedPnl.Div(cost).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

type Mode string

const (
	ModeSimulation Mode = "simulation"
	ModeLive       Mode = "live"
)

// Reasons recorded on trades.
const (
	TradeReasonOpen       = "open"
	TradeReasonStopLoss   = "stop_loss"
	TradeReasonTakeProfit = "take_profit"
	TradeReasonSignal     = "signal"
)

// TradeRecord is an immutable entry in the trade history. RealizedProfit is
// set only on trades that close a position.
type TradeRecord struct {
	ID             string           `json:"id"`
	PositionID     string           `json:"position_id"`
	Symbol         string           `json:"symbol"`
	Side           Action           `json:"side"`
	Price          decimal.Decimal  `json:"price"`
	Amount         decimal.Decimal  `json:"amount"`
	RealizedProfit *decimal.Decimal `json:"realized_profit,omitempty"`
	Confidence     float64          `json:"confidence"`
	Reason         string           `json:"reason"`
	Strategy       StrategyVariant  `json:"strategy,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Mode           Mode             `json:"mode"`
}

// IsClosing reports whether the trade closed a position.
func (t TradeRecord) IsClosing() bool {
	return t.RealizedProfit != nil
}
