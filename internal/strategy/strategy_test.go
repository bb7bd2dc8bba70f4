package strategy

import (
	"errors"
	"fmt"
	"testing"

	"autotrader/internal/domain"
	"autotrader/internal/indicator"
)

func permissive(variant domain.StrategyVariant) domain.StrategyConfig {
	cfg := domain.DefaultStrategyConfig()
	cfg.Variant = variant
	cfg.ConfidenceThreshold = 0
	return cfg
}

func tickAt(price float64) domain.MarketTick {
	return domain.MarketTick{Symbol: "BTC", Price: price}
}

func TestNewUnknownVariant(t *testing.T) {
	if _, err := New("martingale"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
	for _, v := range domain.StrategyVariants {
		s, err := New(v)
		if err != nil || s.Variant() != v {
			t.Fatalf("variant %s not constructed: %v", v, err)
		}
	}
}

func TestVariantRules(t *testing.T) {
	tests := []struct {
		name    string
		variant domain.StrategyVariant
		snap    domain.IndicatorSnapshot
		price   float64
		want    domain.Action
	}{
		{"trend buy", domain.StrategyTrendFollowing, domain.IndicatorSnapshot{Trend: domain.TrendBullish, RSI: 60, Strength: 50}, 100, domain.ActionBuy},
		{"trend overbought holds", domain.StrategyTrendFollowing, domain.IndicatorSnapshot{Trend: domain.TrendBullish, RSI: 75}, 100, domain.ActionHold},
		{"trend sell", domain.StrategyTrendFollowing, domain.IndicatorSnapshot{Trend: domain.TrendBearish, RSI: 40}, 100, domain.ActionSell},
		{"trend sideways", domain.StrategyTrendFollowing, domain.IndicatorSnapshot{Trend: domain.TrendSideways, RSI: 50}, 100, domain.ActionHold},
		{"reversion buy", domain.StrategyMeanReversion, domain.IndicatorSnapshot{RSI: 20}, 100, domain.ActionBuy},
		{"reversion sell", domain.StrategyMeanReversion, domain.IndicatorSnapshot{RSI: 85}, 100, domain.ActionSell},
		{"reversion neutral", domain.StrategyMeanReversion, domain.IndicatorSnapshot{RSI: 50}, 100, domain.ActionHold},
		{"momentum buy", domain.StrategyMomentum, domain.IndicatorSnapshot{Momentum: 2, RSI: 60, MACD: domain.MACD{Histogram: 1}}, 100, domain.ActionBuy},
		{"momentum needs macd", domain.StrategyMomentum, domain.IndicatorSnapshot{Momentum: 2, RSI: 60, MACD: domain.MACD{Histogram: -1}}, 100, domain.ActionHold},
		{"momentum sell", domain.StrategyMomentum, domain.IndicatorSnapshot{Momentum: -2, RSI: 40, MACD: domain.MACD{Histogram: -1}}, 100, domain.ActionSell},
		{"breakout up", domain.StrategyBreakout, domain.IndicatorSnapshot{Volatility: 3, Momentum: 1.5}, 100, domain.ActionBuy},
		{"breakout down", domain.StrategyBreakout, domain.IndicatorSnapshot{Volatility: 3, Momentum: -1.5}, 100, domain.ActionSell},
		{"breakout quiet", domain.StrategyBreakout, domain.IndicatorSnapshot{Volatility: 1, Momentum: 1.5}, 100, domain.ActionHold},
		{"scalp buy", domain.StrategyScalping, domain.IndicatorSnapshot{Volatility: 0.2, ShortMA: 101}, 100, domain.ActionBuy},
		{"scalp sell", domain.StrategyScalping, domain.IndicatorSnapshot{Volatility: 0.2, ShortMA: 99}, 100, domain.ActionSell},
		{"scalp outside band", domain.StrategyScalping, domain.IndicatorSnapshot{Volatility: 2, ShortMA: 99}, 100, domain.ActionHold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(permissive(tt.variant))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			d := g.Decide(tt.snap, nil, tickAt(tt.price))
			if d.Action != tt.want {
				t.Fatalf("expected %s, got %+v", tt.want, d)
			}
			if d.Strategy != tt.variant || d.Symbol != "BTC" {
				t.Fatalf("decision not stamped: %+v", d)
			}
			if d.Confidence < 0 || d.Confidence > 100 {
				t.Fatalf("confidence out of range: %f", d.Confidence)
			}
		})
	}
}

func TestScalpingConfidenceStaysLow(t *testing.T) {
	g, _ := NewGenerator(permissive(domain.StrategyScalping))
	d := g.Decide(domain.IndicatorSnapshot{Volatility: 0.3, ShortMA: 110, Strength: 100}, nil, tickAt(100))
	if d.Action != domain.ActionBuy || d.Confidence > 60 || d.Urgency != domain.UrgencyLow {
		t.Fatalf("scalping should be low confidence and low urgency: %+v", d)
	}
}

func TestTrendUrgencyScalesWithRSI(t *testing.T) {
	g, _ := NewGenerator(permissive(domain.StrategyTrendFollowing))
	mild := g.Decide(domain.IndicatorSnapshot{Trend: domain.TrendBearish, RSI: 45}, nil, tickAt(1))
	deep := g.Decide(domain.IndicatorSnapshot{Trend: domain.TrendBearish, RSI: 80}, nil, tickAt(1))
	if mild.Urgency != domain.UrgencyLow || deep.Urgency != domain.UrgencyHigh {
		t.Fatalf("unexpected urgencies: mild=%s deep=%s", mild.Urgency, deep.Urgency)
	}
}

func TestConfidenceThresholdDegradesToHold(t *testing.T) {
	cfg := DefaultConfig(domain.StrategyScalping)
	cfg.ConfidenceThreshold = 55
	g, _ := NewGenerator(cfg)
	d := g.Decide(domain.IndicatorSnapshot{Volatility: 0.2, ShortMA: 101}, nil, tickAt(100))
	if d.Action != domain.ActionHold || d.Reason != ReasonBelowThreshold {
		t.Fatalf("expected threshold hold, got %+v", d)
	}
}

func TestScalpingDefaultConfigTrades(t *testing.T) {
	g, err := NewGenerator(DefaultConfig(domain.StrategyScalping))
	if err != nil {
		t.Fatalf("default scalping config rejected: %v", err)
	}
	d := g.Decide(domain.IndicatorSnapshot{Volatility: 0.2, ShortMA: 101, Strength: 40}, nil, tickAt(100))
	if d.Action != domain.ActionBuy {
		t.Fatalf("expected default scalping config to buy below the short MA, got %+v", d)
	}

	trades := 0
	for strength := 0.0; strength <= 100; strength += 10 {
		for _, dev := range []float64{0.01, 0.5, 1, 2, 5} {
			snap := domain.IndicatorSnapshot{Volatility: 0.2, ShortMA: 100, Strength: strength}
			if g.Decide(snap, nil, tickAt(100*(1-dev/100))).Action != domain.ActionHold {
				trades++
			}
		}
	}
	if trades == 0 {
		t.Fatal("default scalping config never trades")
	}
}

func TestNewGeneratorRejectsUnreachableThreshold(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	cfg.Variant = domain.StrategyScalping
	if _, err := NewGenerator(cfg); !errors.Is(err, ErrUnreachableThreshold) {
		t.Fatalf("expected ErrUnreachableThreshold for threshold %.0f, got %v", cfg.ConfidenceThreshold, err)
	}
	if _, err := NewGenerator(DefaultConfig(domain.StrategyTrendFollowing)); err != nil {
		t.Fatalf("trend following default rejected: %v", err)
	}
}

func TestNotReadyIsHold(t *testing.T) {
	g, _ := NewGenerator(permissive(domain.StrategyMeanReversion))
	err := fmt.Errorf("%w: have 3", indicator.ErrInsufficientHistory)
	d := g.Decide(domain.IndicatorSnapshot{RSI: 5}, err, tickAt(100))
	if d.Action != domain.ActionHold || d.Reason != ReasonNotReady {
		t.Fatalf("expected not-ready hold, got %+v", d)
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	snap := domain.IndicatorSnapshot{
		Symbol: "BTC", Price: 100, RSI: 62, Momentum: 3.1, Volatility: 2.4,
		MACD: domain.MACD{Line: 1, Signal: 0.5, Histogram: 0.5}, Trend: domain.TrendBullish, Strength: 44,
		ShortMA: 99, LongMA: 97,
	}
	for _, v := range domain.StrategyVariants {
		g, _ := NewGenerator(permissive(v))
		first := g.Decide(snap, nil, tickAt(100))
		for i := 0; i < 50; i++ {
			if got := g.Decide(snap, nil, tickAt(100)); got != first {
				t.Fatalf("%s not deterministic: %+v vs %+v", v, first, got)
			}
		}
	}
}
