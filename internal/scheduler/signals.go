package scheduler

import (
	"sort"
	"time"

	"autotrader/internal/domain"
)

// levelBand is the distance of the reported support and resistance levels
// from the last price.
const levelBand = 0.05

// Signal is the latest per-symbol read of the market: the indicator snapshot
// and the decision the strategy took on it.
type Signal struct {
	Symbol         string                    `json:"symbol"`
	Price          float64                   `json:"price"`
	Trend          domain.Trend              `json:"trend,omitempty"`
	Strength       float64                   `json:"signal_strength"`
	Recommendation domain.Action             `json:"recommendation"`
	Confidence     float64                   `json:"confidence"`
	Reason         string                    `json:"reason"`
	Support        float64                   `json:"support"`
	Resistance     float64                   `json:"resistance"`
	Indicators     *domain.IndicatorSnapshot `json:"indicators,omitempty"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

func newSignal(tick domain.MarketTick, snap domain.IndicatorSnapshot, snapErr error, d domain.Decision, at time.Time) Signal {
	s := Signal{
		Symbol:         d.Symbol,
		Price:          tick.Price,
		Recommendation: d.Action,
		Confidence:     d.Confidence,
		Reason:         d.Reason,
		Support:        tick.Price * (1 - levelBand),
		Resistance:     tick.Price * (1 + levelBand),
		UpdatedAt:      at,
	}
	if snapErr == nil {
		s.Trend = snap.Trend
		s.Strength = snap.Strength
		s.Indicators = &snap
	}
	return s
}

func (l *Loop) recordSignal(s Signal) {
	l.mu.Lock()
	if l.signals == nil {
		l.signals = make(map[string]Signal)
	}
	l.signals[s.Symbol] = s
	l.mu.Unlock()
}

// Signals returns the last signal per symbol, ordered by symbol.
func (l *Loop) Signals() []Signal {
	l.mu.Lock()
	out := make([]Signal, 0, len(l.signals))
	for _, s := range l.signals {
		out = append(out, s)
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
