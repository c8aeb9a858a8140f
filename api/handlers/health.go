package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openstay/reservstack/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status reports whether the polling scheduler is running
func Status(scheduler interfaces.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"scheduler_running": scheduler.Running(),
		})
	}
}
