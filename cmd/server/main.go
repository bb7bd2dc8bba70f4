package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"autotrader/internal/activity"
	"autotrader/internal/bot"
	"autotrader/internal/cache"
	"autotrader/internal/config"
	"autotrader/internal/db"
	"autotrader/internal/domain"
	"autotrader/internal/gateway"
	"autotrader/internal/handler"
	"autotrader/internal/indicator"
	"autotrader/internal/ledger"
	"autotrader/internal/marketdata"
	"autotrader/internal/metrics"
	"autotrader/internal/provider"
	"autotrader/internal/repository"
	"autotrader/internal/risk"
	"autotrader/internal/scheduler"
	"autotrader/internal/strategy"
	"autotrader/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	_ "autotrader/docs"
)

const pollTimeout = 15 * time.Second

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newProviderFunc  = func(name string, cfg *config.Config, tracer trace.Tracer) marketdata.Provider {
		switch name {
		case "binance":
			return provider.NewBinanceProvider(tracer)
		case "alltick":
			return provider.NewAllTickProvider(tracer, cfg.AllTickToken)
		}
		return provider.NewCoinGeckoProvider(tracer)
	}
	startPollerFunc      = func(p *marketdata.Poller, ctx context.Context) { p.Start(ctx) }
	startTelegramBotFunc = bot.StartTelegramBot
	newRouterFunc        = gin.Default
	setupSignalNotify    = signal.Notify
	waitForShutdownFunc  = func(ctx context.Context, quit <-chan os.Signal) {
		select {
		case <-quit:
		case <-ctx.Done():
		}
	}
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// loopStatus lets the Telegram commands read a loop that is built after them.
type loopStatus struct {
	loop atomic.Pointer[scheduler.Loop]
}

func (s *loopStatus) Status() scheduler.Status {
	if l := s.loop.Load(); l != nil {
		return l.Status()
	}
	return scheduler.Status{State: scheduler.StateIdle}
}

// @title           Autotrader API
// @version         1.0
// @description     Simulated automated trading agent with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	if err := run(); err != nil {
		log.Fatalf("autotrader: %v", err)
	}
	log.Println("Server exiting")
}

func run() error {
	if err := loadEnvFunc(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	m := metrics.New()
	t := cfg.Trading

	// Trade history persistence and the tick mirror are optional.
	var observers []scheduler.Observer
	if cfg.DatabaseURL != "" {
		pool, err := initPostgresFunc(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("postgres unavailable, trades will not be persisted: %v", err)
		} else {
			defer pool.Close()
			repo := repository.NewTradeRepository(pool, tracer)
			if err := repo.RunMigrations(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			observers = append(observers, repo)
		}
	}

	var redisClient marketdata.RedisClient
	if cfg.RedisURL != "" {
		client, err := initRedisFunc(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("redis unavailable, tick mirror disabled: %v", err)
		} else {
			defer client.Close()
			redisClient = client
		}
	}

	providers := make([]marketdata.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		providers = append(providers, newProviderFunc(name, cfg, tracer))
	}
	store := marketdata.NewStore(cfg.HistorySize, time.Duration(cfg.StaleAfterSecs)*time.Second)
	poller := marketdata.NewPoller(tracer, provider.NewFallback(providers...), store, redisClient,
		t.Symbols, time.Duration(cfg.PollSecs)*time.Second, pollTimeout)

	engine, err := indicator.NewEngine(t.Indicator)
	if err != nil {
		return err
	}
	generator, err := strategy.NewGenerator(t.Strategy)
	if err != nil {
		return err
	}
	book, err := ledger.New(decimal.NewFromFloat(t.InitialBalance))
	if err != nil {
		return err
	}
	activityLog := activity.NewLog(t.ActivityCapacity)

	var gw gateway.Gateway
	if t.Mode == domain.ModeLive {
		timeout := time.Duration(t.GatewayTimeoutSecs) * time.Second
		gw = gateway.NewGuarded(gateway.NewHTTPGateway(tracer, t.GatewayURL, t.GatewayAPIKey), timeout)
	}

	status := &loopStatus{}
	if n := startTelegramBotFunc(ctx, cfg.TelegramBotToken, cfg.TelegramChatID, book, status); n != nil {
		observers = append(observers, n)
	}

	loop, err := scheduler.New(scheduler.Config{
		Symbols:      t.Symbols,
		Interval:     time.Duration(t.CycleSecs) * time.Second,
		CycleTimeout: time.Duration(t.CycleTimeoutSecs) * time.Second,
		Mode:         t.Mode,
	}, scheduler.Deps{
		Feed:      store,
		Engine:    engine,
		Generator: generator,
		Risk:      risk.NewManager(t.Risk),
		Ledger:    book,
		Log:       activityLog,
		Gateway:   gw,
		Metrics:   m,
		Tracer:    tracer,
		Observers: observers,
	})
	if err != nil {
		return err
	}
	status.loop.Store(loop)

	h := handler.New(ctx, tracer, book, loop, activityLog, store, m, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		startPollerFunc(poller, gctx)
		return nil
	})
	g.Go(func() error {
		if err := startHTTPServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	if t.AutoStart {
		if err := loop.Start(ctx); err != nil {
			log.Printf("failed to auto-start trading loop: %v", err)
		}
	}
	log.Printf("autotrader ready: mode=%s strategy=%s symbols=%v", t.Mode, t.Strategy.Variant, t.Symbols)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForShutdownFunc(gctx, quit)
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := loop.Stop(shutdownCtx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		log.Printf("trading loop did not stop cleanly: %v", err)
	}
	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	cancel()

	return g.Wait()
}
