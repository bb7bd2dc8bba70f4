package config

import (
	"strings"
	"testing"

	"autotrader/internal/domain"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATABASE_URL", "REDIS_URL", "API_KEY", "HTTP_PORT",
		"MARKET_POLL_SECS", "MARKET_STALE_SECS", "HISTORY_SIZE", "MARKET_PROVIDERS",
		"TRADING_MODE", "TRADING_SYMBOLS", "TRADING_CYCLE_SECS", "TRADING_INITIAL_BALANCE", "TRADING_AUTO_START",
		"GATEWAY_URL", "STRATEGY", "STRATEGY_OVERBOUGHT_RSI", "STRATEGY_OVERSOLD_RSI", "STRATEGY_ALLOW_SHORT",
		"STRATEGY_CONFIDENCE_THRESHOLD", "STRATEGY_SCALP_MIN_VOLATILITY", "ALLTICK_TOKEN",
		"RISK_MAX_POSITION_SIZE_PCT", "RISK_STOP_LOSS_PCT", "RISK_MAX_OPEN_POSITIONS",
		"TRADING_WINDOW_START", "TRADING_WINDOW_END", "TRADING_WINDOW_TZ",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.HTTPPort != 8080 || cfg.PollSecs != 60 || cfg.StaleAfterSecs != 180 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if strings.Join(cfg.Providers, ",") != "coingecko,binance" {
		t.Fatalf("unexpected providers: %v", cfg.Providers)
	}
	tr := cfg.Trading
	if tr.Mode != domain.ModeSimulation || tr.InitialBalance != 10000 || tr.AutoStart {
		t.Fatalf("unexpected trading defaults: %+v", tr)
	}
	if tr.Strategy != domain.DefaultStrategyConfig() {
		t.Fatalf("expected default strategy config, got %+v", tr.Strategy)
	}
	if tr.Risk.TradingWindow.Enabled {
		t.Fatal("trading window should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("MARKET_POLL_SECS", "30")
	t.Setenv("TRADING_SYMBOLS", "btc, sol")
	t.Setenv("STRATEGY", "Momentum")
	t.Setenv("STRATEGY_ALLOW_SHORT", "true")
	t.Setenv("RISK_STOP_LOSS_PCT", "2")
	t.Setenv("TRADING_WINDOW_START", "09:00")
	t.Setenv("TRADING_WINDOW_END", "17:30")
	t.Setenv("TRADING_WINDOW_TZ", "America/New_York")

	cfg := Load()
	if cfg.TelegramBotToken != "token" || cfg.TelegramChatID != -100123 || cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.PollSecs != 30 || cfg.StaleAfterSecs != 90 {
		t.Fatalf("expected poll 30 stale 90, got %d %d", cfg.PollSecs, cfg.StaleAfterSecs)
	}
	tr := cfg.Trading
	if strings.Join(tr.Symbols, ",") != "BTC,SOL" {
		t.Fatalf("unexpected symbols %v", tr.Symbols)
	}
	if tr.Strategy.Variant != domain.StrategyMomentum || !tr.Strategy.AllowShort || tr.Risk.StopLossPct != 2 {
		t.Fatalf("unexpected trading config: %+v", tr)
	}
	w := tr.Risk.TradingWindow
	if !w.Enabled || w.Start != "09:00" || w.End != "17:30" || w.Location.String() != "America/New_York" {
		t.Fatalf("unexpected window: %+v", w)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MARKET_POLL_SECS", "bad")
	t.Setenv("RISK_MAX_POSITION_SIZE_PCT", "10")
	t.Setenv("RISK_MAX_OPEN_POSITIONS", "-1")
	t.Setenv("HISTORY_SIZE", "5")

	cfg := Load()
	if cfg.PollSecs != 60 {
		t.Fatalf("invalid poll secs should fall back to default, got %d", cfg.PollSecs)
	}
	if cfg.Trading.Risk.MaxPositionSizePct != 0.1 || cfg.Trading.Risk.MaxOpenPositions != 5 {
		t.Fatalf("invalid risk values should fall back: %+v", cfg.Trading.Risk)
	}
	if cfg.HistorySize != cfg.Trading.Indicator.Required() {
		t.Fatalf("history should be raised to warm-up size, got %d", cfg.HistorySize)
	}
}

func TestLoadScalpingDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STRATEGY", "scalping")
	t.Setenv("STRATEGY_SCALP_MIN_VOLATILITY", "0")

	cfg := Load()
	s := cfg.Trading.Strategy
	if s.ConfidenceThreshold > 60 {
		t.Fatalf("scalping default threshold %.0f is above its confidence cap", s.ConfidenceThreshold)
	}
	if s.ScalpMinVolatility != 0 {
		t.Fatalf("expected zero min volatility to be accepted, got %v", s.ScalpMinVolatility)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default scalping config should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]map[string]string{
		"unsupported symbol": {"TRADING_SYMBOLS": "BTC,NOPE"},
		"unknown strategy":   {"STRATEGY": "martingale"},
		"inverted rsi":       {"STRATEGY_OVERBOUGHT_RSI": "20", "STRATEGY_OVERSOLD_RSI": "40"},
		"live no gateway":    {"TRADING_MODE": "live"},
		"half window":        {"TRADING_WINDOW_START": "09:00"},
		"bad clock":          {"TRADING_WINDOW_START": "9am", "TRADING_WINDOW_END": "17:00"},
		"unknown provider":   {"MARKET_PROVIDERS": "kraken"},
		"scalp threshold":    {"STRATEGY": "scalping", "STRATEGY_CONFIDENCE_THRESHOLD": "70"},
		"alltick no token":   {"MARKET_PROVIDERS": "alltick,coingecko"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if err := Load().Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
