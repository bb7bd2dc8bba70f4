// Package gateway submits live orders to an execution venue.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"autotrader/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

var (
	// ErrGatewayRejected means the venue refused the order. Nothing was filled.
	ErrGatewayRejected = errors.New("order rejected by gateway")
	// ErrUnavailable means the order could not be submitted at all.
	ErrUnavailable = errors.New("gateway unavailable")
)

type OrderType string

const OrderTypeMarket OrderType = "market"

type OrderRequest struct {
	ClientID       string          `json:"client_id"`
	Symbol         string          `json:"symbol"`
	Side           domain.Action   `json:"side"`
	Size           decimal.Decimal `json:"size"`
	Type           OrderType       `json:"type"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}

// Fill reports the execution. Size is the filled quantity.
type Fill struct {
	Filled bool            `json:"filled"`
	Price  decimal.Decimal `json:"fill_price"`
	Size   decimal.Decimal `json:"size"`
	Reason string          `json:"reason,omitempty"`
}

// Gateway is implemented by anything that can route an order.
type Gateway interface {
	Submit(ctx context.Context, req OrderRequest) (Fill, error)
}

// Guarded bounds every Submit with a timeout and trips a circuit breaker on
// repeated transport failures. Venue rejections do not count as failures.
type Guarded struct {
	next    Gateway
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

func NewGuarded(next Gateway, timeout time.Duration) *Guarded {
	return &Guarded{
		next:    next,
		timeout: timeout,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gateway",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrGatewayRejected)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("gateway circuit %s -> %s", from, to)
			},
		}),
	}
}

func (g *Guarded) Submit(ctx context.Context, req OrderRequest) (Fill, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	res, err := g.breaker.Execute(func() (interface{}, error) {
		fill, err := g.next.Submit(ctx, req)
		if err != nil {
			return nil, err
		}
		if !fill.Filled {
			return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, fill.Reason)
		}
		if !fill.Price.IsPositive() {
			return nil, fmt.Errorf("%w: fill price %s", ErrGatewayRejected, fill.Price)
		}
		if !fill.Size.IsPositive() {
			fill.Size = req.Size
		}
		if fill.Size.GreaterThan(req.Size) {
			return nil, fmt.Errorf("%w: filled %s of %s", ErrGatewayRejected, fill.Size, req.Size)
		}
		return fill, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return Fill{}, fmt.Errorf("%w: circuit open", ErrUnavailable)
	case errors.Is(err, ErrGatewayRejected):
		return Fill{}, err
	case err != nil:
		return Fill{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return res.(Fill), nil
}
