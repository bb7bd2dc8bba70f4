// Package indicator derives technical indicators from a bounded tick history.
package indicator

import (
	"errors"
	"fmt"
	"math"

	"autotrader/internal/domain"
	"autotrader/internal/ta"
)

// ErrInsufficientHistory means the window is not full yet. Callers treat it
// as hold.
var ErrInsufficientHistory = errors.New("insufficient history")

type Config struct {
	RSIPeriod        int
	MACDFast         int
	MACDSlow         int
	MACDSignal       int
	ShortMA          int
	LongMA           int
	VolatilityWindow int
	MomentumWindow   int
	Overbought       float64
	Oversold         float64
}

func DefaultConfig() Config {
	return Config{
		RSIPeriod:        14,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		ShortMA:          7,
		LongMA:           25,
		VolatilityWindow: 20,
		MomentumWindow:   10,
		Overbought:       70,
		Oversold:         30,
	}
}

func (c Config) Validate() error {
	switch {
	case c.RSIPeriod <= 0 || c.MACDFast <= 0 || c.MACDSlow <= 0 || c.MACDSignal <= 0:
		return fmt.Errorf("indicator periods must be positive")
	case c.MACDFast >= c.MACDSlow:
		return fmt.Errorf("macd fast period %d must be below slow period %d", c.MACDFast, c.MACDSlow)
	case c.ShortMA <= 0 || c.ShortMA > c.LongMA:
		return fmt.Errorf("short MA %d must be positive and not exceed long MA %d", c.ShortMA, c.LongMA)
	case c.VolatilityWindow < 2 || c.MomentumWindow <= 0:
		return fmt.Errorf("volatility window must be at least 2 and momentum window positive")
	case c.Oversold >= c.Overbought:
		return fmt.Errorf("oversold %.1f must be below overbought %.1f", c.Oversold, c.Overbought)
	}
	return nil
}

// Required is the number of ticks needed before a snapshot is meaningful.
func (c Config) Required() int {
	n := c.LongMA
	for _, v := range []int{c.MACDSlow + c.MACDSignal, c.RSIPeriod + 1, c.VolatilityWindow, c.MomentumWindow + 1} {
		if v > n {
			n = v
		}
	}
	return n
}

// Engine is stateless; it computes a snapshot from whatever history it is given.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

func (e *Engine) Config() Config { return e.cfg }

// Compute derives an IndicatorSnapshot from ticks ordered oldest first.
func (e *Engine) Compute(ticks []domain.MarketTick) (domain.IndicatorSnapshot, error) {
	if len(ticks) < e.cfg.Required() {
		return domain.IndicatorSnapshot{}, fmt.Errorf("%w: have %d ticks, need %d", ErrInsufficientHistory, len(ticks), e.cfg.Required())
	}

	prices := make([]float64, len(ticks))
	for i, t := range ticks {
		prices[i] = t.Price
	}
	last := ticks[len(ticks)-1]
	price := last.Price

	rsi := ta.Clamp(ta.Last(ta.RSISeries(prices, e.cfg.RSIPeriod)), 0, 100)

	line, signal := ta.MACDSeries(prices, e.cfg.MACDFast, e.cfg.MACDSlow, e.cfg.MACDSignal)
	macd := domain.MACD{Line: ta.Last(line), Signal: ta.Last(signal)}
	macd.Histogram = macd.Line - macd.Signal

	mean, std := ta.MeanStd(prices[len(prices)-e.cfg.VolatilityWindow:])
	volatility := 0.0
	if mean > 0 {
		volatility = std / mean * 100
	}

	ref := prices[len(prices)-1-e.cfg.MomentumWindow]
	momentum := 0.0
	if ref > 0 {
		momentum = (price - ref) / ref * 100
	}

	snap := domain.IndicatorSnapshot{
		Symbol:     last.Symbol,
		Price:      price,
		RSI:        rsi,
		MACD:       macd,
		ShortMA:    ta.SMA(prices, e.cfg.ShortMA),
		LongMA:     ta.SMA(prices, e.cfg.LongMA),
		Volatility: volatility,
		Momentum:   momentum,
		ComputedAt: last.Timestamp,
	}
	snap.Trend = e.classify(snap)
	snap.Strength = strength(snap)
	return snap, nil
}

func (e *Engine) classify(s domain.IndicatorSnapshot) domain.Trend {
	switch {
	case s.Momentum > 0 && s.MACD.Histogram > 0 && s.RSI < e.cfg.Overbought:
		return domain.TrendBullish
	case s.Momentum < 0 && s.MACD.Histogram < 0 && s.RSI > e.cfg.Oversold:
		return domain.TrendBearish
	default:
		return domain.TrendSideways
	}
}

// strength blends RSI extremity, histogram magnitude relative to price, and
// raw momentum, each scaled to 0-100.
func strength(s domain.IndicatorSnapshot) float64 {
	rsiExtremity := math.Abs(s.RSI-50) * 2
	histMagnitude := 0.0
	if s.Price > 0 {
		// 0.5% of price saturates the histogram component.
		histMagnitude = ta.Clamp(math.Abs(s.MACD.Histogram)/s.Price*100*200, 0, 100)
	}
	// 5% momentum saturates the momentum component.
	momentumMagnitude := ta.Clamp(math.Abs(s.Momentum)*20, 0, 100)
	return ta.Clamp(0.4*rsiExtremity+0.3*histMagnitude+0.3*momentumMagnitude, 0, 100)
}
