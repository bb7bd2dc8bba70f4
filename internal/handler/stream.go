package handler

import (
	"log"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// StreamActivity upgrades to a websocket and pushes activity entries as JSON
// as they are appended. ?since=<id> resumes after a known entry.
func (h *Handler) StreamActivity(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	var cursor uint64
	if v, err := strconv.ParseUint(c.Query("since"), 10, 64); err == nil {
		cursor = v
	}

	// The client never sends data; reading detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.streamInterval)
	defer ticker.Stop()

	for {
		for _, e := range h.activity.Since(cursor) {
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
			cursor = e.ID
		}
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
