package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns the health status of the service and the trading loop state
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "healthy"}
	if h.bot != nil {
		st := h.bot.Status()
		body["bot"] = string(st.State)
		if st.Halted != "" {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}
