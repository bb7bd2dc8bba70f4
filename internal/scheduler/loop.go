// Package scheduler drives the trading cycle: read market views, mark open
// positions, decide per symbol, apply risk checks, fill and record.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"autotrader/internal/activity"
	"autotrader/internal/domain"
	"autotrader/internal/gateway"
	"autotrader/internal/indicator"
	"autotrader/internal/ledger"
	"autotrader/internal/marketdata"
	"autotrader/internal/metrics"
	"autotrader/internal/risk"
	"autotrader/internal/strategy"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
	// ErrHalted is returned once a ledger invariant violation has stopped the
	// run. The process must be restarted.
	ErrHalted = errors.New("scheduler halted")
)

// Activity codes that are not risk rejection codes.
const (
	CodeFeedUnavailable    = "feed_unavailable"
	CodeNoPosition         = "no_position"
	CodeGatewayRejected    = "gateway_rejected"
	CodeGatewayUnavailable = "gateway_unavailable"
	CodeFillAboveNotional  = "fill_above_notional"
	CodeInvariantViolation = "invariant_violation"
)

// fillSlippage is the fraction a live entry fill may cost above the order
// notional before it is refused.
var fillSlippage = decimal.RequireFromString("0.01")

// Feed supplies a consistent view per symbol.
type Feed interface {
	Views(symbols []string) (map[string]marketdata.View, error)
}

// Ledger is the account the loop trades against.
type Ledger interface {
	Open(symbol string, side domain.Side, size, price decimal.Decimal, note ledger.Note) (domain.Position, domain.TradeRecord, error)
	Close(id string, exitPrice decimal.Decimal, note ledger.Note) (domain.TradeRecord, error)
	MarkToMarket(tick domain.MarketTick) (domain.Position, bool)
	Snapshot() domain.AccountSnapshot
	Verify() error
}

// Observer receives every activity entry after it is appended. Observers must
// not block for long; they run inside the cycle.
type Observer interface {
	Observe(ctx context.Context, e activity.Entry)
}

type Config struct {
	Symbols      []string
	Interval     time.Duration
	CycleTimeout time.Duration
	Mode         domain.Mode
}

type Deps struct {
	Feed      Feed
	Engine    *indicator.Engine
	Generator *strategy.Generator
	Risk      *risk.Manager
	Ledger    Ledger
	Log       *activity.Log
	Gateway   gateway.Gateway // required in live mode
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Observers []Observer
}

// Status is a read-only view of the loop for the API.
type Status struct {
	State     State                  `json:"state"`
	Mode      domain.Mode            `json:"mode"`
	Strategy  domain.StrategyVariant `json:"strategy"`
	Symbols   []string               `json:"symbols"`
	Interval  string                 `json:"interval"`
	Cycles    int                    `json:"cycles"`
	LastCycle *time.Time             `json:"last_cycle,omitempty"`
	Halted    string                 `json:"halted,omitempty"`
}

type Loop struct {
	cfg  Config
	deps Deps

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	cycles    int
	lastCycle time.Time
	signals   map[string]Signal

	cycleMu sync.Mutex

	now func() time.Time
}

func New(cfg Config, deps Deps) (*Loop, error) {
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("scheduler: no symbols configured")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler: interval must be positive")
	}
	if deps.Feed == nil || deps.Engine == nil || deps.Generator == nil || deps.Risk == nil || deps.Ledger == nil || deps.Log == nil || deps.Tracer == nil {
		return nil, errors.New("scheduler: missing dependency")
	}
	switch cfg.Mode {
	case domain.ModeSimulation:
	case domain.ModeLive:
		if deps.Gateway == nil {
			return nil, errors.New("scheduler: live mode requires an order gateway")
		}
	default:
		return nil, fmt.Errorf("scheduler: unknown mode %q", cfg.Mode)
	}
	return &Loop{cfg: cfg, deps: deps, state: StateIdle, now: time.Now}, nil
}

// Start begins running cycles, the first immediately. The loop ends when Stop
// is called, ctx is cancelled, or a ledger invariant violation halts it.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return fmt.Errorf("%w: %v", ErrHalted, l.err)
	}
	if l.state != StateIdle {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.state = StateRunning
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(runCtx, l.done)
	log.Printf("scheduler: started (%s, %s, every %s)", l.cfg.Mode, l.deps.Generator.Config().Variant, l.cfg.Interval)
	return nil
}

// Stop requests the loop to end and waits for the in-flight cycle to finish.
// ctx bounds only the wait.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if l.state != StateRunning {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.state = StateStopping
	l.cancel()
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		log.Println("scheduler: stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err reports the cause of a halt, or nil.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	st := Status{
		State:    l.state,
		Mode:     l.cfg.Mode,
		Strategy: l.deps.Generator.Config().Variant,
		Symbols:  append([]string(nil), l.cfg.Symbols...),
		Interval: l.cfg.Interval.String(),
	}
	if l.err != nil {
		st.Halted = l.err.Error()
	}
	st.Cycles = l.cycles
	if !l.lastCycle.IsZero() {
		last := l.lastCycle
		st.LastCycle = &last
	}
	l.mu.Unlock()
	return st
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer func() {
		l.mu.Lock()
		l.state = StateIdle
		l.cancel()
		l.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := l.cycle(ctx); errors.Is(err, ErrHalted) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one cycle on a context detached from the loop's cancellation so
// a Stop never interrupts a ledger mutation.
func (l *Loop) cycle(ctx context.Context) error {
	cycleCtx := context.WithoutCancel(ctx)
	if l.cfg.CycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(cycleCtx, l.cfg.CycleTimeout)
		defer cancel()
	}
	err := l.RunCycle(cycleCtx)
	if err != nil && !errors.Is(err, ErrHalted) {
		log.Printf("scheduler: cycle: %v", err)
	}
	return err
}

// RunCycle executes exactly one cycle. Cycles never overlap. A feed failure
// skips the cycle and is returned; a ledger invariant violation halts the
// loop and returns an error wrapping ErrHalted.
func (l *Loop) RunCycle(ctx context.Context) error {
	l.cycleMu.Lock()
	defer l.cycleMu.Unlock()

	l.mu.Lock()
	if l.err != nil {
		err := l.err
		l.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrHalted, err)
	}
	start := l.now()
	l.cycles++
	l.lastCycle = start
	l.mu.Unlock()

	ctx, span := l.deps.Tracer.Start(ctx, "scheduler.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(l.cfg.Mode)))

	views, err := l.deps.Feed.Views(l.cfg.Symbols)
	if err != nil {
		span.RecordError(err)
		l.append(ctx, activity.Entry{Kind: activity.KindSkipped, Code: CodeFeedUnavailable, Message: err.Error()})
		l.deps.Metrics.ObserveCycle("skipped", l.now().Sub(start))
		return fmt.Errorf("cycle skipped: %w", err)
	}

	for _, sym := range l.cfg.Symbols {
		l.deps.Ledger.MarkToMarket(views[sym].Tick)
	}

	for _, sym := range l.cfg.Symbols {
		view := views[sym]
		snap, snapErr := l.deps.Engine.Compute(view.History)
		decision := l.deps.Generator.Decide(snap, snapErr, view.Tick)
		l.deps.Metrics.ObserveDecision(decision)
		l.recordSignal(newSignal(view.Tick, snap, snapErr, decision, start))

		if err := l.act(ctx, decision, view.Tick, start); err != nil {
			span.RecordError(err)
			l.halt(ctx, err)
			l.deps.Metrics.ObserveCycle("halted", l.now().Sub(start))
			return fmt.Errorf("%w: %v", ErrHalted, err)
		}
	}

	if err := l.deps.Ledger.Verify(); err != nil {
		span.RecordError(err)
		l.halt(ctx, err)
		l.deps.Metrics.ObserveCycle("halted", l.now().Sub(start))
		return fmt.Errorf("%w: %v", ErrHalted, err)
	}

	l.deps.Metrics.ObserveAccount(l.deps.Ledger.Snapshot())
	l.deps.Metrics.ObserveCycle("ok", l.now().Sub(start))
	return nil
}

// act turns one decision into at most one ledger mutation. Only an invariant
// violation is returned; every other outcome is recorded as activity.
func (l *Loop) act(ctx context.Context, d domain.Decision, tick domain.MarketTick, now time.Time) error {
	acct := l.deps.Ledger.Snapshot()

	if pos, ok := acct.PositionFor(d.Symbol); ok {
		order, exit, err := l.deps.Risk.EvaluateExit(pos, d, now)
		switch {
		case err != nil:
			l.reject(ctx, d, risk.Code(err), err.Error())
			return nil
		case exit:
			return l.execute(ctx, order, d)
		case d.Action != domain.ActionHold:
			l.reject(ctx, d, risk.CodePositionExists, fmt.Sprintf("%s position already open", pos.Side))
			return nil
		}
		l.hold(ctx, d, d.Reason)
		return nil
	}

	var side domain.Side
	switch d.Action {
	case domain.ActionBuy:
		side = domain.SideLong
	case domain.ActionSell:
		if !l.deps.Generator.Config().AllowShort {
			l.hold(ctx, d, CodeNoPosition)
			return nil
		}
		side = domain.SideShort
	default:
		l.hold(ctx, d, d.Reason)
		return nil
	}

	order, err := l.deps.Risk.EvaluateEntry(side, tick, acct, now)
	if err != nil {
		l.reject(ctx, d, risk.Code(err), err.Error())
		return nil
	}
	return l.execute(ctx, order, d)
}

func (l *Loop) execute(ctx context.Context, order risk.Order, d domain.Decision) error {
	price, size := order.Price, order.Size
	if l.cfg.Mode == domain.ModeLive {
		fill, err := l.deps.Gateway.Submit(ctx, gateway.OrderRequest{
			ClientID:       uuid.NewString(),
			Symbol:         order.Symbol,
			Side:           order.Action,
			Size:           order.Size,
			Type:           gateway.OrderTypeMarket,
			ReferencePrice: order.Price,
		})
		if err != nil {
			code := CodeGatewayUnavailable
			if errors.Is(err, gateway.ErrGatewayRejected) {
				code = CodeGatewayRejected
			}
			l.reject(ctx, d, code, err.Error())
			return nil
		}
		price, size = fill.Price, fill.Size
		limit := order.Notional.Mul(decimal.NewFromInt(1).Add(fillSlippage))
		if !order.Closing && size.Mul(price).GreaterThan(limit) {
			l.reject(ctx, d, CodeFillAboveNotional,
				fmt.Sprintf("fill %s @ %s exceeds notional %s", size, price, order.Notional.StringFixed(2)))
			return nil
		}
	}

	note := ledger.Note{Confidence: d.Confidence, Reason: order.Reason, Strategy: d.Strategy, Mode: l.cfg.Mode}
	var (
		trade domain.TradeRecord
		err   error
	)
	if order.Closing {
		trade, err = l.deps.Ledger.Close(order.PositionID, price, note)
	} else {
		_, trade, err = l.deps.Ledger.Open(order.Symbol, order.Side, size, price, note)
	}
	if errors.Is(err, ledger.ErrInvariantViolation) {
		return err
	}
	if err != nil {
		l.reject(ctx, d, ledgerCode(err), err.Error())
		return nil
	}

	l.deps.Metrics.ObserveTrade(trade)
	l.append(ctx, activity.Entry{
		Kind:    activity.KindExecuted,
		Symbol:  trade.Symbol,
		Action:  trade.Side,
		Code:    order.Reason,
		Message: fmt.Sprintf("%s %s %s @ %s", trade.Side, trade.Amount, trade.Symbol, trade.Price),
		Trade:   &trade,
	})
	return nil
}

func (l *Loop) halt(ctx context.Context, cause error) {
	dump, _ := json.Marshal(l.deps.Ledger.Snapshot())
	log.Printf("scheduler: HALT: %v", cause)
	log.Printf("scheduler: ledger at halt: %s", dump)

	l.mu.Lock()
	l.err = cause
	if l.state == StateRunning {
		l.state = StateStopping
		l.cancel()
	}
	l.mu.Unlock()

	l.append(ctx, activity.Entry{Kind: activity.KindHalted, Code: CodeInvariantViolation, Message: cause.Error()})
}

func (l *Loop) hold(ctx context.Context, d domain.Decision, code string) {
	l.append(ctx, activity.Entry{Kind: activity.KindHold, Symbol: d.Symbol, Action: d.Action, Code: code})
}

func (l *Loop) reject(ctx context.Context, d domain.Decision, code, msg string) {
	l.deps.Metrics.ObserveRejection(code)
	l.append(ctx, activity.Entry{Kind: activity.KindRejected, Symbol: d.Symbol, Action: d.Action, Code: code, Message: msg})
}

func (l *Loop) append(ctx context.Context, e activity.Entry) {
	e = l.deps.Log.Append(e)
	for _, o := range l.deps.Observers {
		o.Observe(ctx, e)
	}
}

func ledgerCode(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrPositionExists):
		return risk.CodePositionExists
	case errors.Is(err, ledger.ErrPositionNotFound):
		return "position_not_found"
	default:
		return "invalid_order"
	}
}
