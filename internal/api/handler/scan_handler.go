package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

// ScanHistory is implemented by service.ScanService.
type ScanHistory interface {
	ListRecent(ctx context.Context, filter domain.ScanEventFilterDTO) ([]domain.ScanEvent, error)
}

type ScanHandler struct {
	scans ScanHistory
}

func NewScanHandler(scans ScanHistory) *ScanHandler {
	return &ScanHandler{scans: scans}
}

// GET /api/v1/scans
func (h *ScanHandler) ListRecent(c *gin.Context) {
	var filter domain.ScanEventFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}
	events, err := h.scans.ListRecent(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrEmptyPlate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list scans", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}
