package strategy

import (
	"math"

	"autotrader/internal/domain"
)

type trendFollowing struct{}

func (trendFollowing) Variant() domain.StrategyVariant { return domain.StrategyTrendFollowing }

func (trendFollowing) Decide(s domain.IndicatorSnapshot, _ domain.MarketTick, cfg domain.StrategyConfig) domain.Decision {
	confidence := 50 + s.Strength/2
	switch {
	case s.Trend == domain.TrendBullish && s.RSI < cfg.OverboughtRSI:
		return signal(domain.ActionBuy, confidence, rsiUrgency(s.RSI), "trend_bullish")
	case s.Trend == domain.TrendBearish && s.RSI > cfg.OversoldRSI:
		return signal(domain.ActionSell, confidence, rsiUrgency(s.RSI), "trend_bearish")
	}
	return hold()
}

type meanReversion struct{}

func (meanReversion) Variant() domain.StrategyVariant { return domain.StrategyMeanReversion }

func (meanReversion) Decide(s domain.IndicatorSnapshot, _ domain.MarketTick, cfg domain.StrategyConfig) domain.Decision {
	switch {
	case s.RSI < cfg.OversoldRSI:
		depth := (cfg.OversoldRSI - s.RSI) / math.Max(cfg.OversoldRSI, 1)
		return signal(domain.ActionBuy, 60+depth*40, depthUrgency(cfg.OversoldRSI-s.RSI), "rsi_oversold")
	case s.RSI > cfg.OverboughtRSI:
		depth := (s.RSI - cfg.OverboughtRSI) / math.Max(100-cfg.OverboughtRSI, 1)
		return signal(domain.ActionSell, 60+depth*40, depthUrgency(s.RSI-cfg.OverboughtRSI), "rsi_overbought")
	}
	return hold()
}

// depthUrgency grades how far RSI sits beyond its threshold.
func depthUrgency(points float64) domain.Urgency {
	switch {
	case points >= 15:
		return domain.UrgencyHigh
	case points >= 5:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

type momentum struct{}

func (momentum) Variant() domain.StrategyVariant { return domain.StrategyMomentum }

func (momentum) Decide(s domain.IndicatorSnapshot, _ domain.MarketTick, cfg domain.StrategyConfig) domain.Decision {
	confidence := 40 + s.Strength*0.6
	switch {
	case s.Momentum > cfg.MomentumThreshold && s.RSI > 50 && s.MACD.Histogram > 0:
		return signal(domain.ActionBuy, confidence, multipleUrgency(s.Momentum, cfg.MomentumThreshold), "momentum_up")
	case s.Momentum < -cfg.MomentumThreshold && s.RSI < 50 && s.MACD.Histogram < 0:
		return signal(domain.ActionSell, confidence, multipleUrgency(s.Momentum, cfg.MomentumThreshold), "momentum_down")
	}
	return hold()
}

type breakout struct{}

func (breakout) Variant() domain.StrategyVariant { return domain.StrategyBreakout }

func (breakout) Decide(s domain.IndicatorSnapshot, _ domain.MarketTick, cfg domain.StrategyConfig) domain.Decision {
	if s.Volatility < cfg.VolatilityThreshold || math.Abs(s.Momentum) < cfg.MomentumThreshold {
		return hold()
	}
	confidence := 50 + math.Min(s.Volatility/cfg.VolatilityThreshold, 3)*10 + s.Strength*0.2
	urgency := multipleUrgency(s.Momentum, cfg.MomentumThreshold)
	if s.Momentum > 0 {
		return signal(domain.ActionBuy, confidence, urgency, "breakout_up")
	}
	return signal(domain.ActionSell, confidence, urgency, "breakout_down")
}

// scalping trades small deviations from the short MA inside a quiet
// volatility band. Confidence stays low by construction.
type scalping struct{}

func (scalping) Variant() domain.StrategyVariant { return domain.StrategyScalping }

func (scalping) Decide(s domain.IndicatorSnapshot, tick domain.MarketTick, cfg domain.StrategyConfig) domain.Decision {
	if s.Volatility < cfg.ScalpMinVolatility || s.Volatility > cfg.ScalpMaxVolatility || s.ShortMA <= 0 {
		return hold()
	}
	deviation := (tick.Price - s.ShortMA) / s.ShortMA * 100
	confidence := math.Min(ScalpConfidenceCap, 30+s.Strength*0.3+math.Abs(deviation)*10)
	switch {
	case deviation < 0:
		return signal(domain.ActionBuy, confidence, domain.UrgencyLow, "scalp_below_ma")
	case deviation > 0:
		return signal(domain.ActionSell, confidence, domain.UrgencyLow, "scalp_above_ma")
	}
	return hold()
}
