package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

// MotorcycleRecords is implemented by service.MotorcycleService.
type MotorcycleRecords interface {
	Register(ctx context.Context, dto domain.RegisterMotorcycleDTO) (*domain.Motorcycle, error)
	FlagBlacklisted(ctx context.Context, plateNumber string) (*domain.Motorcycle, error)
	FlagExpired(ctx context.Context, plateNumber string) (*domain.Motorcycle, error)
	FlagViolations(ctx context.Context, plateNumber string) (*domain.Motorcycle, error)
	ClearStatuses(ctx context.Context, plateNumber string) (*domain.Motorcycle, error)
	Delete(ctx context.Context, plateNumber string) error
	List(ctx context.Context, filter domain.MotorcycleFilterDTO) ([]domain.Motorcycle, error)
	Lookup(ctx context.Context, plateNumber string) (*domain.RecordStatus, error)
}

type MotorcycleHandler struct {
	motorcycles MotorcycleRecords
}

func NewMotorcycleHandler(ms MotorcycleRecords) *MotorcycleHandler {
	return &MotorcycleHandler{motorcycles: ms}
}

// GET /api/v1/motorcycles
func (h *MotorcycleHandler) List(c *gin.Context) {
	var filter domain.MotorcycleFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters", "details": err.Error()})
		return
	}
	motorcycles, err := h.motorcycles.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list motorcycles", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, motorcycles)
}

// POST /api/v1/motorcycles
func (h *MotorcycleHandler) Create(c *gin.Context) {
	var dto domain.RegisterMotorcycleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.motorcycles.Register(c.Request.Context(), dto)
	if err != nil {
		writeRecordError(c, "Could not register motorcycle", err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// GET /api/v1/motorcycles/:plate
// An unregistered plate is a normal answer with exists=false.
func (h *MotorcycleHandler) Get(c *gin.Context) {
	status, err := h.motorcycles.Lookup(c.Request.Context(), c.Param("plate"))
	if err != nil {
		writeRecordError(c, "Could not look up plate", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// POST /api/v1/motorcycles/:plate/blacklist
func (h *MotorcycleHandler) Blacklist(c *gin.Context) {
	h.update(c, "blacklist", h.motorcycles.FlagBlacklisted)
}

// POST /api/v1/motorcycles/:plate/expire
func (h *MotorcycleHandler) Expire(c *gin.Context) {
	h.update(c, "expire", h.motorcycles.FlagExpired)
}

// POST /api/v1/motorcycles/:plate/violations
func (h *MotorcycleHandler) Violations(c *gin.Context) {
	h.update(c, "flag violations on", h.motorcycles.FlagViolations)
}

// POST /api/v1/motorcycles/:plate/clear
func (h *MotorcycleHandler) Clear(c *gin.Context) {
	h.update(c, "clear statuses of", h.motorcycles.ClearStatuses)
}

func (h *MotorcycleHandler) update(c *gin.Context, action string, fn func(context.Context, string) (*domain.Motorcycle, error)) {
	m, err := fn(c.Request.Context(), c.Param("plate"))
	if err != nil {
		writeRecordError(c, "Could not "+action+" plate", err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DELETE /api/v1/motorcycles/:plate
func (h *MotorcycleHandler) Delete(c *gin.Context) {
	if err := h.motorcycles.Delete(c.Request.Context(), c.Param("plate")); err != nil {
		writeRecordError(c, "Could not delete plate", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Plate deleted"})
}

func writeRecordError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Plate not in DB."})
	case errors.Is(err, repository.ErrDuplicateEntry):
		c.JSON(http.StatusConflict, gin.H{"error": "Plate already exists in DB.", "details": err.Error()})
	case errors.Is(err, service.ErrEmptyPlate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("MotorcycleHandler: %s: %v", msg, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "details": err.Error()})
	}
}
