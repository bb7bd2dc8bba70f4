package handler

import (
	"context"
	"net/http"
	"time"

	"autotrader/internal/activity"
	"autotrader/internal/domain"
	"autotrader/internal/metrics"
	"autotrader/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
)

type Account interface {
	Snapshot() domain.AccountSnapshot
	Positions() []domain.Position
	Trades(limit int) []domain.TradeRecord
}

type Bot interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() scheduler.Status
	Signals() []scheduler.Signal
}

type ActivityLog interface {
	Recent(n int) []activity.Entry
	Since(id uint64) []activity.Entry
}

type Market interface {
	Latest() []domain.MarketTick
}

type Handler struct {
	tracer   trace.Tracer
	account  Account
	bot      Bot
	activity ActivityLog
	market   Market
	metrics  *metrics.Metrics
	apiKey   string

	upgrader       websocket.Upgrader
	streamInterval time.Duration
	// botCtx is the parent for loops started over HTTP; it outlives requests.
	botCtx context.Context
}

func New(ctx context.Context, tracer trace.Tracer, account Account, bot Bot, log ActivityLog, market Market, m *metrics.Metrics, apiKey string) *Handler {
	return &Handler{
		tracer:   tracer,
		account:  account,
		bot:      bot,
		activity: log,
		market:   market,
		metrics:  m,
		apiKey:   apiKey,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		streamInterval: 500 * time.Millisecond,
		botCtx:         ctx,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(RequestMetrics(h.metrics))

	r.GET("/health", h.Health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/account", h.GetAccount)
	api.GET("/positions", h.GetPositions)
	api.GET("/trades", h.GetTrades)
	api.GET("/activity", h.GetActivity)
	api.GET("/market", h.GetMarket)
	api.GET("/bot", h.GetBotStatus)
	api.GET("/signals", h.GetSignals)

	control := api.Group("/bot", APIKeyAuth(h.apiKey))
	control.POST("/start", h.StartBot)
	control.POST("/stop", h.StopBot)

	r.GET("/ws/activity", h.StreamActivity)
}
