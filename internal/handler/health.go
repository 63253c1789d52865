package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health is the liveness probe. It never consults the database or the
// scheduler and always reports healthy while the process is serving.
// GET /api/health
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
