package provider

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"autotrader/internal/domain"
	"autotrader/internal/marketdata"
)

// Fallback tries each provider in order and returns the first full result.
type Fallback struct {
	providers []marketdata.Provider
}

func NewFallback(providers ...marketdata.Provider) *Fallback {
	return &Fallback{providers: providers}
}

func (f *Fallback) Name() string {
	names := make([]string, len(f.providers))
	for i, p := range f.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

func (f *Fallback) FetchLatest(ctx context.Context, symbols []string) ([]domain.MarketTick, error) {
	var errs []error
	for i, p := range f.providers {
		ticks, err := p.FetchLatest(ctx, symbols)
		if err == nil {
			return ticks, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(f.providers) {
			log.Printf("provider %s failed, falling back: %v", p.Name(), err)
		}
	}
	return nil, fmt.Errorf("%w: %w", marketdata.ErrFeedUnavailable, errors.Join(errs...))
}
