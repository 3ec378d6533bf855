package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	provider string
	started  time.Time
}

func NewHealthHandler(provider string) *HealthHandler {
	return &HealthHandler{provider: provider, started: time.Now()}
}

// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"ocr_provider": h.provider,
		"uptime":       time.Since(h.started).Round(time.Second).String(),
	})
}
