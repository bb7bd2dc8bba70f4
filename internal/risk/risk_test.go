package risk

import (
	"errors"
	"testing"
	"time"

	"autotrader/internal/domain"

	"github.com/shopspring/decimal"
)

var noon = time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)

func account(balance string, positions ...domain.Position) domain.AccountSnapshot {
	b := decimal.RequireFromString(balance)
	return domain.AccountSnapshot{Balance: b, InitialBalance: b, Equity: b, Positions: positions}
}

func btc(price float64) domain.MarketTick {
	return domain.MarketTick{Symbol: "BTC", Price: price, Timestamp: noon}
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !errors.Is(err, ErrRiskRejected) {
		t.Fatalf("expected risk rejection %s, got %v", code, err)
	}
	if got := Code(err); got != code {
		t.Fatalf("expected code %s, got %s", code, got)
	}
}

func TestEntryDownsizedToCap(t *testing.T) {
	cfg := domain.DefaultRiskConfig()
	cfg.OrderAmount = 5000
	cfg.MaxPositionSizePct = 0.1
	cfg.MaxRiskPerTradePct = 100
	m := NewManager(cfg)

	order, err := m.EvaluateEntry(domain.SideLong, btc(45000), account("10000"), noon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	limit := decimal.NewFromInt(1000)
	if !order.Notional.Equal(limit) {
		t.Fatalf("expected notional capped at 1000, got %s", order.Notional)
	}
	if order.Size.Mul(order.Price).GreaterThan(limit) {
		t.Fatalf("filled cost %s exceeds cap", order.Size.Mul(order.Price))
	}
	if order.Action != domain.ActionBuy || order.Closing {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestEntryNeverAboveCap(t *testing.T) {
	cfg := domain.DefaultRiskConfig()
	cfg.MaxRiskPerTradePct = 100
	for _, amount := range []float64{1, 10, 99.99, 250, 1e6} {
		for _, price := range []float64{0.333, 3, 7.77, 45000.01} {
			cfg.OrderAmount = amount
			m := NewManager(cfg)
			acct := account("1234.56")
			order, err := m.EvaluateEntry(domain.SideLong, btc(price), acct, noon)
			if err != nil {
				if Code(err) != CodeBelowMinNotional {
					t.Fatalf("unexpected rejection: %v", err)
				}
				continue
			}
			limit := acct.Balance.Mul(decimal.NewFromFloat(cfg.MaxPositionSizePct))
			if order.Notional.GreaterThan(limit) || order.Size.Mul(order.Price).GreaterThan(limit) {
				t.Fatalf("amount=%v price=%v approved above cap: %+v", amount, price, order)
			}
		}
	}
}

func TestEntryCheckOrder(t *testing.T) {
	open := domain.Position{ID: "p1", Symbol: "BTC", Size: decimal.NewFromInt(1), EntryPrice: decimal.NewFromInt(1)}

	t.Run("window", func(t *testing.T) {
		cfg := domain.DefaultRiskConfig()
		cfg.TradingWindow = domain.TradingWindow{Enabled: true, Start: "13:00", End: "14:00"}
		// Would also fail the same-symbol check; window comes first.
		_, err := NewManager(cfg).EvaluateEntry(domain.SideLong, btc(100), account("1000", open), noon)
		expectCode(t, err, CodeOutsideWindow)
	})

	t.Run("diversification", func(t *testing.T) {
		cfg := domain.DefaultRiskConfig()
		cfg.MaxOpenPositions = 1
		_, err := NewManager(cfg).EvaluateEntry(domain.SideLong, btc(100), account("1000", open), noon)
		expectCode(t, err, CodeMaxOpenPositions)
	})

	t.Run("same symbol", func(t *testing.T) {
		_, err := NewManager(domain.DefaultRiskConfig()).EvaluateEntry(domain.SideLong, btc(100), account("1000", open), noon)
		expectCode(t, err, CodePositionExists)
	})

	t.Run("drawdown", func(t *testing.T) {
		acct := account("1000")
		acct.DrawdownPct = 25
		_, err := NewManager(domain.DefaultRiskConfig()).EvaluateEntry(domain.SideLong, btc(100), acct, noon)
		expectCode(t, err, CodeMaxDrawdown)
	})

	t.Run("daily limit", func(t *testing.T) {
		acct := account("1000")
		acct.OpensToday = 10
		_, err := NewManager(domain.DefaultRiskConfig()).EvaluateEntry(domain.SideLong, btc(100), acct, noon)
		expectCode(t, err, CodeDailyTradeLimit)
	})

	t.Run("minimum size", func(t *testing.T) {
		cfg := domain.DefaultRiskConfig()
		cfg.MinOrderNotional = 50
		_, err := NewManager(cfg).EvaluateEntry(domain.SideLong, btc(100), account("1000"), noon)
		expectCode(t, err, CodeBelowMinNotional)
	})

	t.Run("risk per trade", func(t *testing.T) {
		cfg := domain.DefaultRiskConfig()
		cfg.OrderAmount = 100
		cfg.MaxPositionSizePct = 1
		cfg.StopLossPct = 50
		cfg.MaxRiskPerTradePct = 1
		_, err := NewManager(cfg).EvaluateEntry(domain.SideLong, btc(100), account("1000"), noon)
		expectCode(t, err, CodeRiskPerTrade)
	})
}

func positionAt(entry, current string) domain.Position {
	size := decimal.RequireFromString("0.5")
	p := domain.Position{
		ID:           "pos-1",
		Symbol:       "BTC",
		Side:         domain.SideLong,
		Size:         size,
		EntryPrice:   decimal.RequireFromString(entry),
		CurrentPrice: decimal.RequireFromString(current),
	}
	p.UnrealizedPnl = p.PnlAt(p.CurrentPrice)
	return p
}

func TestStopLossTrigger(t *testing.T) {
	cfg := domain.DefaultRiskConfig()
	cfg.StopLossPct = 2
	m := NewManager(cfg)
	hold := domain.Hold("BTC", domain.StrategyTrendFollowing, "no_signal")

	order, ok, err := m.EvaluateExit(positionAt("100", "97.9"), hold, noon)
	if err != nil || !ok {
		t.Fatalf("expected stop-loss exit at 97.9, got ok=%v err=%v", ok, err)
	}
	if order.Reason != domain.TradeReasonStopLoss || order.Action != domain.ActionSell || order.PositionID != "pos-1" {
		t.Fatalf("unexpected exit order: %+v", order)
	}

	if _, ok, err := m.EvaluateExit(positionAt("100", "98.1"), hold, noon); ok || err != nil {
		t.Fatalf("98.1 must not trigger stop-loss, got ok=%v err=%v", ok, err)
	}
}

func TestTakeProfitIgnoresWindow(t *testing.T) {
	cfg := domain.DefaultRiskConfig()
	cfg.TakeProfitPct = 10
	cfg.TradingWindow = domain.TradingWindow{Enabled: true, Start: "01:00", End: "02:00"}
	order, ok, err := NewManager(cfg).EvaluateExit(positionAt("100", "111"), domain.Decision{Action: domain.ActionHold}, noon)
	if err != nil || !ok || order.Reason != domain.TradeReasonTakeProfit {
		t.Fatalf("expected take-profit exit, got %+v ok=%v err=%v", order, ok, err)
	}
}

func TestSignalExitRequiresHighUrgency(t *testing.T) {
	m := NewManager(domain.DefaultRiskConfig())
	pos := positionAt("100", "101")

	_, ok, err := m.EvaluateExit(pos, domain.Decision{Action: domain.ActionSell, Urgency: domain.UrgencyMedium}, noon)
	if ok {
		t.Fatal("medium urgency must not close inside thresholds")
	}
	expectCode(t, err, CodeExitThresholdNotMet)

	order, ok, err := m.EvaluateExit(pos, domain.Decision{Action: domain.ActionSell, Urgency: domain.UrgencyHigh}, noon)
	if err != nil || !ok || order.Reason != domain.TradeReasonSignal {
		t.Fatalf("expected signal exit, got %+v ok=%v err=%v", order, ok, err)
	}

	if _, ok, err := m.EvaluateExit(pos, domain.Decision{Action: domain.ActionBuy, Urgency: domain.UrgencyHigh}, noon); ok || err != nil {
		t.Fatalf("same-direction signal must be a no-op, got ok=%v err=%v", ok, err)
	}
}

func TestShortExitUsesBuy(t *testing.T) {
	pos := positionAt("100", "94")
	pos.Side = domain.SideShort
	pos.UnrealizedPnl = pos.PnlAt(pos.CurrentPrice)
	cfg := domain.DefaultRiskConfig()
	cfg.TakeProfitPct = 5
	order, ok, err := NewManager(cfg).EvaluateExit(pos, domain.Decision{Action: domain.ActionHold}, noon)
	if err != nil || !ok || order.Action != domain.ActionBuy || order.Reason != domain.TradeReasonTakeProfit {
		t.Fatalf("short in profit should take profit with a buy, got %+v ok=%v err=%v", order, ok, err)
	}
}
