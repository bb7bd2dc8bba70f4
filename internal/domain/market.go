package domain

import "time"

// MarketTick is one price observation for a symbol. Ticks are produced by a
// market-data provider and never mutated afterwards.
type MarketTick struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Change24hPct float64   `json:"change_24h_pct"`
	Volume24h    float64   `json:"volume_24h"`
	High24h      float64   `json:"high_24h,omitempty"`
	Low24h       float64   `json:"low_24h,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Trend string

const (
	TrendBullish  Trend = "bullish"
	TrendBearish  Trend = "bearish"
	TrendSideways Trend = "sideways"
)

// MACD holds the line, its signal EMA and the histogram (line - signal).
type MACD struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// IndicatorSnapshot is derived from the bounded tick history of one symbol.
// It is recomputed every cycle and never persisted.
type IndicatorSnapshot struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	RSI        float64   `json:"rsi"`
	MACD       MACD      `json:"macd"`
	ShortMA    float64   `json:"short_ma"`
	LongMA     float64   `json:"long_ma"`
	Volatility float64   `json:"volatility_pct"`
	Momentum   float64   `json:"momentum_pct"`
	Trend      Trend     `json:"trend"`
	Strength   float64   `json:"signal_strength"`
	ComputedAt time.Time `json:"computed_at"`
}
