package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"autotrader/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// GetBotStatus godoc
// @Summary      Trading loop status
// @Tags         bot
// @Produce      json
// @Success      200  {object}  scheduler.Status
// @Router       /api/bot [get]
func (h *Handler) GetBotStatus(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-bot-status")
	defer span.End()

	c.JSON(http.StatusOK, h.bot.Status())
}

// GetSignals godoc
// @Summary      Latest per-symbol signals
// @Description  Trend, strength, recommendation and support/resistance from the last cycle
// @Tags         bot
// @Produce      json
// @Success      200  {object}  map[string][]scheduler.Signal
// @Router       /api/signals [get]
func (h *Handler) GetSignals(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"signals": h.bot.Signals()})
}

// StartBot godoc
// @Summary      Start the trading loop
// @Tags         bot
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key"
// @Success      200  {object}  scheduler.Status
// @Failure      409  {object}  map[string]string
// @Router       /api/bot/start [post]
func (h *Handler) StartBot(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.start-bot")
	defer span.End()

	err := h.bot.Start(h.botCtx)
	switch {
	case errors.Is(err, scheduler.ErrAlreadyRunning), errors.Is(err, scheduler.ErrHalted):
		span.RecordError(err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.bot.Status())
}

// StopBot godoc
// @Summary      Stop the trading loop
// @Description  Waits for the in-flight cycle to finish
// @Tags         bot
// @Produce      json
// @Param        X-API-Key  header  string  false  "API key"
// @Success      200  {object}  scheduler.Status
// @Failure      409  {object}  map[string]string
// @Router       /api/bot/stop [post]
func (h *Handler) StopBot(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.stop-bot")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := h.bot.Stop(ctx)
	switch {
	case errors.Is(err, scheduler.ErrNotRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		span.RecordError(err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.bot.Status())
}
