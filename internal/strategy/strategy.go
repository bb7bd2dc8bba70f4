// Package strategy maps indicator snapshots to trading decisions. Every
// variant is a pure function of its inputs.
package strategy

import (
	"errors"
	"fmt"
	"math"

	"autotrader/internal/domain"
	"autotrader/internal/indicator"
	"autotrader/internal/ta"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy variant")
	// ErrUnreachableThreshold means the variant can never reach the
	// configured confidence threshold, so it would never trade.
	ErrUnreachableThreshold = errors.New("confidence threshold unreachable")
)

// ScalpConfidenceCap is the highest confidence a scalping decision carries.
const ScalpConfidenceCap = 60

const scalpDefaultThreshold = 45

// Hold reason codes.
const (
	ReasonNotReady       = "insufficient_history"
	ReasonBelowThreshold = "below_confidence_threshold"
	ReasonNoSignal       = "no_signal"
)

// Strategy is one decision function.
type Strategy interface {
	Variant() domain.StrategyVariant
	Decide(snap domain.IndicatorSnapshot, tick domain.MarketTick, cfg domain.StrategyConfig) domain.Decision
}

// New returns the implementation for variant.
func New(variant domain.StrategyVariant) (Strategy, error) {
	switch variant {
	case domain.StrategyTrendFollowing:
		return trendFollowing{}, nil
	case domain.StrategyMeanReversion:
		return meanReversion{}, nil
	case domain.StrategyMomentum:
		return momentum{}, nil
	case domain.StrategyBreakout:
		return breakout{}, nil
	case domain.StrategyScalping:
		return scalping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, variant)
	}
}

// DefaultConfig returns the shipped settings for variant. Scalping gets a
// threshold below its confidence cap.
func DefaultConfig(variant domain.StrategyVariant) domain.StrategyConfig {
	cfg := domain.DefaultStrategyConfig()
	cfg.Variant = variant
	if variant == domain.StrategyScalping {
		cfg.ConfidenceThreshold = scalpDefaultThreshold
	}
	return cfg
}

// CheckConfig rejects unknown variants and thresholds the variant can never
// meet.
func CheckConfig(cfg domain.StrategyConfig) error {
	if _, err := New(cfg.Variant); err != nil {
		return err
	}
	if cfg.Variant == domain.StrategyScalping && cfg.ConfidenceThreshold > ScalpConfidenceCap {
		return fmt.Errorf("%w: scalping confidence is capped at %d, threshold is %.0f",
			ErrUnreachableThreshold, ScalpConfidenceCap, cfg.ConfidenceThreshold)
	}
	return nil
}

// Generator applies one strategy and the global confidence threshold.
type Generator struct {
	strategy Strategy
	cfg      domain.StrategyConfig
}

func NewGenerator(cfg domain.StrategyConfig) (*Generator, error) {
	if err := CheckConfig(cfg); err != nil {
		return nil, err
	}
	s, _ := New(cfg.Variant)
	return &Generator{strategy: s, cfg: cfg}, nil
}

func (g *Generator) Config() domain.StrategyConfig { return g.cfg }

// Decide evaluates the strategy. A not-ready snapshot (err wrapping
// indicator.ErrInsufficientHistory) yields hold.
func (g *Generator) Decide(snap domain.IndicatorSnapshot, snapErr error, tick domain.MarketTick) domain.Decision {
	if snapErr != nil {
		reason := ReasonNotReady
		if !errors.Is(snapErr, indicator.ErrInsufficientHistory) {
			reason = "indicator_error"
		}
		return domain.Hold(tick.Symbol, g.cfg.Variant, reason)
	}
	d := g.strategy.Decide(snap, tick, g.cfg)
	d.Symbol = tick.Symbol
	d.Strategy = g.cfg.Variant
	d.Confidence = math.Round(ta.Clamp(d.Confidence, 0, 100)*100) / 100
	if d.Action != domain.ActionHold && d.Confidence < g.cfg.ConfidenceThreshold {
		return domain.Decision{
			Symbol:     tick.Symbol,
			Action:     domain.ActionHold,
			Confidence: d.Confidence,
			Urgency:    domain.UrgencyLow,
			Reason:     ReasonBelowThreshold,
			Strategy:   g.cfg.Variant,
		}
	}
	return d
}

func signal(action domain.Action, confidence float64, urgency domain.Urgency, reason string) domain.Decision {
	return domain.Decision{Action: action, Confidence: confidence, Urgency: urgency, Reason: reason}
}

func hold() domain.Decision {
	return domain.Decision{Action: domain.ActionHold, Urgency: domain.UrgencyLow, Reason: ReasonNoSignal}
}

// rsiUrgency grows with distance from the neutral 50 line.
func rsiUrgency(rsi float64) domain.Urgency {
	switch d := math.Abs(rsi - 50); {
	case d >= 25:
		return domain.UrgencyHigh
	case d >= 15:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}

// multipleUrgency grades how far value overshoots threshold.
func multipleUrgency(value, threshold float64) domain.Urgency {
	if threshold <= 0 {
		return domain.UrgencyLow
	}
	switch m := math.Abs(value) / threshold; {
	case m >= 3:
		return domain.UrgencyHigh
	case m >= 2:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}
