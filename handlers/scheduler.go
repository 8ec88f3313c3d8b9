package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSchedulerStatus reports the bill scheduler state (admin).
func (h *Handler) GetSchedulerStatus(c *gin.Context) {
	if h.Scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"is_running": false})
		return
	}
	c.JSON(http.StatusOK, h.Scheduler.Status())
}
