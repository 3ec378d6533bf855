package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/archive"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/notify"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/ocr"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/repository"
)

// Broadcaster pushes scan results to live display clients.
type Broadcaster interface {
	BroadcastScan(n domain.ScanNotification)
}

type ScanInput struct {
	Image    []byte
	Source   domain.ScanSource
	DeviceID string
}

// ScanResult is what one pass through the pipeline produced. Recognition and Status are nil
// when recognition failed.
type ScanResult struct {
	EventID         string
	Recognition     *domain.Recognition
	Status          *domain.RecordStatus
	AnnotatedImage  []byte
	AnnotatedFormat string
	CreatedAt       time.Time
}

// Response shapes a result for the HTTP API.
func (r *ScanResult) Response(errMsg string) domain.LPRResponseDTO {
	resp := domain.LPRResponseDTO{EventID: r.EventID, Status: r.Status, ErrorMessage: errMsg}
	if r.Recognition != nil {
		resp.DetectedPlate = r.Recognition.Plate
		resp.DetectedRegion = r.Recognition.Region
		resp.Confidence = r.Recognition.Confidence
		resp.Provider = r.Recognition.Provider
	}
	if len(r.AnnotatedImage) > 0 {
		resp.AnnotatedImage = base64.StdEncoding.EncodeToString(r.AnnotatedImage)
	}
	return resp
}

type ScanService struct {
	lpr         *LPRService
	motorcycles *MotorcycleService
	events      repository.ScanEventRepository
	images      archive.ImageStore
	alerts      notify.AlertPublisher
	broadcaster Broadcaster

	now   func() time.Time
	newID func() string
}

func NewScanService(
	lpr *LPRService,
	motorcycles *MotorcycleService,
	events repository.ScanEventRepository,
	images archive.ImageStore,
	alerts notify.AlertPublisher,
	broadcaster Broadcaster,
) *ScanService {
	if images == nil {
		images = archive.Noop{}
	}
	if alerts == nil {
		alerts = notify.Noop{}
	}
	return &ScanService{
		lpr:         lpr,
		motorcycles: motorcycles,
		events:      events,
		images:      images,
		alerts:      alerts,
		broadcaster: broadcaster,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Process runs one image through recognition, record lookup, persistence, display and alerting.
// A failed recognition is still recorded as a scan event and its error is returned with the result.
func (s *ScanService) Process(ctx context.Context, in ScanInput) (*ScanResult, error) {
	event := &domain.ScanEvent{
		EventID:   s.newID(),
		Source:    in.Source,
		DeviceID:  in.DeviceID,
		Provider:  s.lpr.Provider(),
		CreatedAt: s.now(),
	}
	result := &ScanResult{EventID: event.EventID, CreatedAt: event.CreatedAt}

	rec, prepared, err := s.lpr.Recognize(ctx, in.Image)
	if prepared != nil {
		event.ImageKey = s.store(ctx, event, archive.KindCapture, prepared.Data, prepared.Format)
	}
	if err != nil {
		event.ErrorMessage = err.Error()
		s.record(ctx, event)
		s.broadcast(event, in, false, err.Error())
		return result, err
	}
	result.Recognition = rec
	event.DetectedPlate = rec.Plate
	event.DetectedRegion = rec.Region
	event.Confidence = rec.Confidence

	annotated, annErr := imaging.EncodeBytes(imaging.Annotate(prepared.Image, rec.Blocks), prepared.Format)
	if annErr != nil {
		log.Printf("ScanService: annotate event %s: %v", event.EventID, annErr)
	} else {
		result.AnnotatedImage = annotated
		result.AnnotatedFormat = prepared.Format
		event.AnnotatedKey = s.store(ctx, event, archive.KindAnnotated, annotated, prepared.Format)
	}

	status, err := s.motorcycles.Lookup(ctx, rec.Plate)
	if err != nil {
		event.ErrorMessage = err.Error()
		s.record(ctx, event)
		return result, fmt.Errorf("ScanService.Process: %w", err)
	}
	result.Status = status

	alert := false
	if status.Exists {
		event.Matched = true
		event.Flags = status.Record.Flags()
		alert = status.Record.Flagged()
		if err := s.motorcycles.TouchLastSeen(ctx, status.PlateNumber, event.CreatedAt); err != nil {
			log.Printf("ScanService: touch last seen for '%s': %v", status.PlateNumber, err)
		}
	}

	s.record(ctx, event)
	s.broadcast(event, in, alert, "")

	if alert {
		a := domain.Alert{
			EventID:     event.EventID,
			PlateNumber: status.PlateNumber,
			Region:      status.Record.Region,
			DeviceID:    in.DeviceID,
			Flags:       event.Flags,
			Timestamp:   event.CreatedAt,
		}
		if err := s.alerts.PublishAlert(ctx, a); err != nil {
			log.Printf("ScanService: publish alert for '%s': %v", a.PlateNumber, err)
		}
	}
	return result, nil
}

func (s *ScanService) ListRecent(ctx context.Context, filter domain.ScanEventFilterDTO) ([]domain.ScanEvent, error) {
	if filter.Plate != "" {
		p, err := normalizePlate(filter.Plate)
		if err != nil {
			return nil, err
		}
		filter.Plate = p
	}
	return s.events.ListRecent(ctx, filter)
}

// store archives one image; failures only cost the archive copy.
func (s *ScanService) store(ctx context.Context, event *domain.ScanEvent, kind string, data []byte, format string) string {
	contentType, ext := imaging.ContentType(format)
	key := archive.Key(event.CreatedAt, event.EventID, kind, ext)
	if _, err := s.images.Save(ctx, key, data, contentType); err != nil {
		log.Printf("ScanService: archive %s image of event %s: %v", kind, event.EventID, err)
		return ""
	}
	return key
}

func (s *ScanService) record(ctx context.Context, event *domain.ScanEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Create(ctx, event); err != nil {
		log.Printf("ScanService: persist scan event %s: %v", event.EventID, err)
	}
}

func (s *ScanService) broadcast(event *domain.ScanEvent, in ScanInput, alert bool, msg string) {
	if s.broadcaster == nil {
		return
	}
	if msg == "" && alert {
		msg = alertMessage(event.Flags)
	}
	s.broadcaster.BroadcastScan(domain.ScanNotification{
		EventID:   event.EventID,
		Source:    event.Source,
		DeviceID:  in.DeviceID,
		Plate:     event.DetectedPlate,
		Region:    event.DetectedRegion,
		Matched:   event.Matched,
		Flags:     event.Flags,
		Alert:     alert,
		Message:   msg,
		Timestamp: event.CreatedAt,
	})
}

func alertMessage(f domain.StatusFlags) string {
	switch {
	case f.Blacklisted:
		return "Blacklisted plate detected."
	case f.Expired:
		return "Plate registration expired."
	case f.Violations:
		return "Plate has recorded violations."
	}
	return ""
}

// IsPermanent reports whether a pipeline error will repeat on every retry of the same image.
func IsPermanent(err error) bool {
	return errors.Is(err, ocr.ErrNoText) ||
		errors.Is(err, imaging.ErrEmptyImage) ||
		errors.Is(err, imaging.ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyPlate)
}
