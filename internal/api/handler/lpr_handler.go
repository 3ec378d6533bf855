package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/ocr"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

// maxUploadBytes bounds multipart uploads; phone photos of plates are well under this.
const maxUploadBytes = 10 << 20

// maxJSONBytes fits a maxUploadBytes image after base64 expansion.
const maxJSONBytes = maxUploadBytes*4/3 + 64<<10

var uploadExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// ScanProcessor is implemented by service.ScanService.
type ScanProcessor interface {
	Process(ctx context.Context, in service.ScanInput) (*service.ScanResult, error)
}

type LPRHandler struct {
	scans ScanProcessor
}

func NewLPRHandler(scans ScanProcessor) *LPRHandler {
	return &LPRHandler{scans: scans}
}

// POST /api/v1/lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBytes)
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	imageBytes, err := imaging.DecodeBase64(req.ImageBase64)
	if err != nil {
		log.Printf("LPRHandler: decode base64 image: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data", "details": err.Error()})
		return
	}
	log.Printf("LPRHandler: received %d bytes for recognition", len(imageBytes))

	source := domain.SourceUpload
	if req.DeviceID != "" {
		source = domain.SourceCamera
	}
	h.process(c, service.ScanInput{Image: imageBytes, Source: source, DeviceID: req.DeviceID})
}

// POST /api/v1/lpr/upload (multipart field "image")
func (h *LPRHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image file", "details": err.Error()})
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !uploadExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unsupported file type '%s'", ext)})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read image file", "details": err.Error()})
		return
	}
	defer f.Close()
	imageBytes, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read image file", "details": err.Error()})
		return
	}
	log.Printf("LPRHandler: received upload '%s' (%d bytes)", fileHeader.Filename, len(imageBytes))

	h.process(c, service.ScanInput{
		Image:    imageBytes,
		Source:   domain.SourceUpload,
		DeviceID: c.PostForm("device_id"),
	})
}

func (h *LPRHandler) process(c *gin.Context, in service.ScanInput) {
	result, err := h.scans.Process(c.Request.Context(), in)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result.Response(""))
	case errors.Is(err, ocr.ErrNoText):
		c.JSON(http.StatusOK, result.Response("No plate text recognized."))
	case errors.Is(err, imaging.ErrEmptyImage), errors.Is(err, imaging.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image", "details": err.Error()})
	default:
		log.Printf("LPRHandler: scan failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Plate recognition failed", "details": err.Error()})
	}
}
