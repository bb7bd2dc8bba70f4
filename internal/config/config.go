package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"autotrader/internal/domain"
	"autotrader/internal/indicator"
	"autotrader/internal/strategy"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	DatabaseURL      string
	RedisURL         string
	HTTPPort         int
	APIKey           string

	PollSecs       int
	StaleAfterSecs int
	HistorySize    int
	Providers      []string
	AllTickToken   string

	Trading Trading
}

// Trading configures the decision loop. It is fixed for the life of the
// process.
type Trading struct {
	Mode             domain.Mode `validate:"oneof=simulation live"`
	Symbols          []string    `validate:"min=1,dive,required"`
	CycleSecs        int         `validate:"gt=0"`
	CycleTimeoutSecs int         `validate:"gt=0"`
	InitialBalance   float64     `validate:"gte=0"`
	ActivityCapacity int         `validate:"gt=0"`
	AutoStart        bool

	GatewayURL         string `validate:"omitempty,url"`
	GatewayAPIKey      string
	GatewayTimeoutSecs int `validate:"gt=0"`

	Strategy  domain.StrategyConfig
	Risk      domain.RiskConfig
	Indicator indicator.Config
}

var validate = validator.New()

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		AllTickToken:     strings.TrimSpace(os.Getenv("ALLTICK_TOKEN")),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_CHAT_ID=%q, ignoring", v)
		}
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set, trades will not be persisted")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, tick mirror disabled")
	}
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, bot control endpoints are unauthenticated")
	}

	cfg.HTTPPort = intEnv("HTTP_PORT", 8080, func(n int) bool { return n > 0 && n < 65536 })
	cfg.PollSecs = intEnv("MARKET_POLL_SECS", 60, positive)
	cfg.StaleAfterSecs = intEnv("MARKET_STALE_SECS", 3*cfg.PollSecs, positive)
	cfg.HistorySize = intEnv("HISTORY_SIZE", 200, positive)
	cfg.Providers = listEnv("MARKET_PROVIDERS", []string{"coingecko", "binance"}, strings.ToLower)

	cfg.Trading = loadTrading()
	if cfg.HistorySize < cfg.Trading.Indicator.Required() {
		log.Printf("Warning: HISTORY_SIZE=%d below indicator warm-up %d, raising", cfg.HistorySize, cfg.Trading.Indicator.Required())
		cfg.HistorySize = cfg.Trading.Indicator.Required()
	}
	return cfg
}

func loadTrading() Trading {
	t := Trading{
		Mode:               domain.Mode(strings.ToLower(strings.TrimSpace(os.Getenv("TRADING_MODE")))),
		Symbols:            listEnv("TRADING_SYMBOLS", []string{"BTC", "ETH", "BNB", "SOL", "XRP"}, strings.ToUpper),
		CycleSecs:          intEnv("TRADING_CYCLE_SECS", 60, positive),
		CycleTimeoutSecs:   intEnv("TRADING_CYCLE_TIMEOUT_SECS", 30, positive),
		InitialBalance:     floatEnv("TRADING_INITIAL_BALANCE", 10000, func(f float64) bool { return f >= 0 }),
		ActivityCapacity:   intEnv("ACTIVITY_CAPACITY", 500, positive),
		AutoStart:          strings.EqualFold(strings.TrimSpace(os.Getenv("TRADING_AUTO_START")), "true"),
		GatewayURL:         strings.TrimSpace(os.Getenv("GATEWAY_URL")),
		GatewayAPIKey:      os.Getenv("GATEWAY_API_KEY"),
		GatewayTimeoutSecs: intEnv("GATEWAY_TIMEOUT_SECS", 10, positive),
		Indicator:          indicator.DefaultConfig(),
	}
	if t.Mode == "" {
		t.Mode = domain.ModeSimulation
	}

	variant := domain.StrategyTrendFollowing
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("STRATEGY"))); v != "" {
		variant = domain.StrategyVariant(v)
	}
	s := strategy.DefaultConfig(variant)
	s.OverboughtRSI = floatEnv("STRATEGY_OVERBOUGHT_RSI", s.OverboughtRSI, percent)
	s.OversoldRSI = floatEnv("STRATEGY_OVERSOLD_RSI", s.OversoldRSI, percent)
	s.MomentumThreshold = floatEnv("STRATEGY_MOMENTUM_THRESHOLD", s.MomentumThreshold, positiveFloat)
	s.VolatilityThreshold = floatEnv("STRATEGY_VOLATILITY_THRESHOLD", s.VolatilityThreshold, positiveFloat)
	s.ScalpMinVolatility = floatEnv("STRATEGY_SCALP_MIN_VOLATILITY", s.ScalpMinVolatility, nonNegative)
	s.ScalpMaxVolatility = floatEnv("STRATEGY_SCALP_MAX_VOLATILITY", s.ScalpMaxVolatility, positiveFloat)
	s.ConfidenceThreshold = floatEnv("STRATEGY_CONFIDENCE_THRESHOLD", s.ConfidenceThreshold, percent)
	s.AllowShort = strings.EqualFold(strings.TrimSpace(os.Getenv("STRATEGY_ALLOW_SHORT")), "true")
	t.Strategy = s
	t.Indicator.Overbought = s.OverboughtRSI
	t.Indicator.Oversold = s.OversoldRSI

	r := domain.DefaultRiskConfig()
	r.MaxPositionSizePct = floatEnv("RISK_MAX_POSITION_SIZE_PCT", r.MaxPositionSizePct, func(f float64) bool { return f > 0 && f <= 1 })
	r.MaxDrawdownPct = floatEnv("RISK_MAX_DRAWDOWN_PCT", r.MaxDrawdownPct, percent)
	r.MaxOpenPositions = intEnv("RISK_MAX_OPEN_POSITIONS", r.MaxOpenPositions, positive)
	r.MaxRiskPerTradePct = floatEnv("RISK_MAX_RISK_PER_TRADE_PCT", r.MaxRiskPerTradePct, percent)
	r.StopLossPct = floatEnv("RISK_STOP_LOSS_PCT", r.StopLossPct, percent)
	r.TakeProfitPct = floatEnv("RISK_TAKE_PROFIT_PCT", r.TakeProfitPct, positiveFloat)
	r.OrderAmount = floatEnv("RISK_ORDER_AMOUNT", r.OrderAmount, positiveFloat)
	r.MinOrderNotional = floatEnv("RISK_MIN_ORDER_NOTIONAL", r.MinOrderNotional, func(f float64) bool { return f >= 0 })
	r.MaxDailyTrades = intEnv("RISK_MAX_DAILY_TRADES", r.MaxDailyTrades, func(n int) bool { return n >= 0 })

	r.TradingWindow.Start = strings.TrimSpace(os.Getenv("TRADING_WINDOW_START"))
	r.TradingWindow.End = strings.TrimSpace(os.Getenv("TRADING_WINDOW_END"))
	r.TradingWindow.Enabled = r.TradingWindow.Start != "" || r.TradingWindow.End != ""
	r.TradingWindow.Location = time.UTC
	if tz := strings.TrimSpace(os.Getenv("TRADING_WINDOW_TZ")); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			r.TradingWindow.Location = loc
		} else {
			log.Printf("Warning: unknown TRADING_WINDOW_TZ=%q, using UTC", tz)
		}
	}
	t.Risk = r
	return t
}

// Validate rejects combinations that cannot run. Individual values were
// already defaulted by Load.
func (c *Config) Validate() error {
	t := c.Trading
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := strategy.CheckConfig(t.Strategy); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	for _, sym := range t.Symbols {
		if !domain.IsSupported(sym) {
			return fmt.Errorf("config validation failed: unsupported symbol %q", sym)
		}
	}
	if w := t.Risk.TradingWindow; w.Enabled && (w.Start == "" || w.End == "") {
		return errors.New("config validation failed: TRADING_WINDOW_START and TRADING_WINDOW_END must both be set")
	}
	if t.Mode == domain.ModeLive && t.GatewayURL == "" {
		return errors.New("config validation failed: live mode requires GATEWAY_URL")
	}
	if err := t.Indicator.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	for _, p := range c.Providers {
		switch p {
		case "coingecko", "binance":
		case "alltick":
			if c.AllTickToken == "" {
				return errors.New("config validation failed: alltick provider requires ALLTICK_TOKEN")
			}
		default:
			return fmt.Errorf("config validation failed: unknown market provider %q", p)
		}
	}
	return nil
}

func positive(n int) bool { return n > 0 }

func positiveFloat(f float64) bool { return f > 0 }

func nonNegative(f float64) bool { return f >= 0 }

func percent(f float64) bool { return f >= 0 && f <= 100 }

func intEnv(key string, def int, valid func(int) bool) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || !valid(n) {
		log.Printf("Warning: invalid %s=%q, defaulting to %d", key, v, def)
		return def
	}
	return n
}

func floatEnv(key string, def float64, valid func(float64) bool) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !valid(f) {
		log.Printf("Warning: invalid %s=%q, defaulting to %g", key, v, def)
		return def
	}
	return f
}

func listEnv(key string, def []string, normalize func(string) string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = normalize(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
