package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxListLimit = 500

// GetAccount godoc
// @Summary      Account snapshot
// @Description  Returns balance, realized P&L, equity, drawdown, open positions and trade statistics
// @Tags         account
// @Produce      json
// @Success      200  {object}  domain.AccountSnapshot
// @Router       /api/account [get]
func (h *Handler) GetAccount(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-account")
	defer span.End()

	c.JSON(http.StatusOK, h.account.Snapshot())
}

// GetPositions godoc
// @Summary      Open positions
// @Tags         account
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/positions [get]
func (h *Handler) GetPositions(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-positions")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"positions": h.account.Positions()})
}

// GetTrades godoc
// @Summary      Trade history
// @Description  Returns the newest trades, oldest first
// @Tags         account
// @Produce      json
// @Param        limit  query  int  false  "Number of trades (default 100, max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/trades [get]
func (h *Handler) GetTrades(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-trades")
	defer span.End()

	limit := parseLimit(c.Query("limit"), 100)
	span.SetAttributes(attribute.Int("limit", limit))

	c.JSON(http.StatusOK, gin.H{"trades": h.account.Trades(limit)})
}

// GetActivity godoc
// @Summary      Recent activity
// @Description  Returns activity entries, newest first
// @Tags         activity
// @Produce      json
// @Param        limit  query  int  false  "Number of entries (default 100, max 500)"  default(100)
// @Success      200  {object}  map[string]interface{}
// @Router       /api/activity [get]
func (h *Handler) GetActivity(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-activity")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"activity": h.activity.Recent(parseLimit(c.Query("limit"), 100))})
}

// GetMarket godoc
// @Summary      Latest market ticks
// @Tags         market
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/market [get]
func (h *Handler) GetMarket(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-market")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"ticks": h.market.Latest()})
}

func parseLimit(raw string, def int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxListLimit {
		return n
	}
	return def
}
