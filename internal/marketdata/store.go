// Package marketdata caches the latest ticks and per-symbol history that the
// trading loop reads each cycle.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"autotrader/internal/domain"
	"autotrader/internal/indicator"
)

// ErrFeedUnavailable means no usable market data could be produced.
var ErrFeedUnavailable = errors.New("market feed unavailable")

// Provider fetches the latest tick for each requested symbol. On error it
// returns no ticks.
type Provider interface {
	Name() string
	FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error)
}

// View is a consistent per-symbol read: History ends with Tick.
type View struct {
	Tick    domain.MarketTick
	History []domain.MarketTick
}

type series struct {
	latest  domain.MarketTick
	history *indicator.History
}

// Store holds the latest tick and bounded history per symbol. The poller is
// its only writer.
type Store struct {
	mu         sync.RWMutex
	capacity   int
	staleAfter time.Duration
	symbols    map[string]*series
	now        func() time.Time
}

// NewStore keeps capacity ticks per symbol. Views older than staleAfter are
// reported as unavailable; zero disables the staleness check.
func NewStore(capacity int, staleAfter time.Duration) *Store {
	return &Store{
		capacity:   capacity,
		staleAfter: staleAfter,
		symbols:    make(map[string]*series),
		now:        time.Now,
	}
}

// Record appends ticks. Ticks with a non-positive price or not newer than the
// symbol's latest tick are dropped. It returns the number stored.
func (s *Store) Record(ticks []domain.MarketTick) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := 0
	for _, t := range ticks {
		if t.Symbol == "" || t.Price <= 0 {
			continue
		}
		sr, ok := s.symbols[t.Symbol]
		if !ok {
			sr = &series{history: indicator.NewHistory(s.capacity)}
			s.symbols[t.Symbol] = sr
		} else if !t.Timestamp.After(sr.latest.Timestamp) {
			continue
		}
		sr.latest = t
		sr.history.Push(t)
		stored++
	}
	return stored
}

// Views returns one view per symbol, all taken under the same lock. Any
// missing or stale symbol fails the whole call.
func (s *Store) Views(symbols []string) (map[string]View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make(map[string]View, len(symbols))
	for _, sym := range symbols {
		sr, ok := s.symbols[sym]
		if !ok {
			return nil, fmt.Errorf("%w: no data for %s", ErrFeedUnavailable, sym)
		}
		if s.staleAfter > 0 && now.Sub(sr.latest.Timestamp) > s.staleAfter {
			return nil, fmt.Errorf("%w: %s last updated %s ago", ErrFeedUnavailable, sym, now.Sub(sr.latest.Timestamp).Round(time.Second))
		}
		out[sym] = View{Tick: sr.latest, History: sr.history.Ticks()}
	}
	return out, nil
}

// Latest returns the newest tick for every known symbol.
func (s *Store) Latest() []domain.MarketTick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MarketTick, 0, len(s.symbols))
	for _, sym := range domain.SupportedSymbols {
		if sr, ok := s.symbols[sym]; ok {
			out = append(out, sr.latest)
		}
	}
	return out
}
