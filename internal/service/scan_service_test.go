package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/imaging"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/ocr"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 240, 160))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func rect(text string, x, y, w, h int) domain.TextBlock {
	return domain.TextBlock{
		Text:       text,
		Confidence: 0.95,
		Polygon:    []image.Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}},
	}
}

type pipeline struct {
	svc         *ScanService
	recognizer  *fakeRecognizer
	motorcycles *memMotorcycles
	events      *memScanEvents
	archive     *memArchive
	alerts      *recordingAlerts
	broadcasts  *recordingBroadcaster
}

func newPipeline(seed ...domain.Motorcycle) *pipeline {
	p := &pipeline{
		recognizer:  &fakeRecognizer{},
		motorcycles: newMemMotorcycles(seed...),
		events:      &memScanEvents{},
		archive:     &memArchive{},
		alerts:      &recordingAlerts{},
		broadcasts:  &recordingBroadcaster{},
	}
	p.svc = NewScanService(
		NewLPRService(p.recognizer, 0),
		NewMotorcycleService(p.motorcycles),
		p.events, p.archive, p.alerts, p.broadcasts,
	)
	p.svc.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	p.svc.newID = func() string { return "evt-1" }
	return p
}

func TestProcessFlaggedPlate(t *testing.T) {
	p := newPipeline(domain.Motorcycle{PlateNumber: "123 ABC", Region: "NCR", Blacklisted: true})
	p.recognizer.blocks = []domain.TextBlock{rect("NCR", 20, 110, 60, 20), rect("123 ABC", 20, 30, 180, 60)}

	res, err := p.svc.Process(context.Background(), ScanInput{Image: testPNG(t), Source: domain.SourceCamera, DeviceID: "jetson-01"})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Recognition.Plate != "123 ABC" || res.Recognition.Region != "NCR" {
		t.Errorf("recognition = %+v", res.Recognition)
	}
	if !res.Status.Exists || res.Status.Actions.Blacklist.Enabled {
		t.Errorf("status = %+v", res.Status)
	}
	if len(res.AnnotatedImage) == 0 || res.AnnotatedFormat != imaging.FormatPNG {
		t.Error("no annotated image in result")
	}

	if len(p.events.events) != 1 {
		t.Fatalf("persisted %d events, want 1", len(p.events.events))
	}
	ev := p.events.events[0]
	if !ev.Matched || !ev.Flags.Blacklisted || ev.Source != domain.SourceCamera || ev.Provider != "fake" {
		t.Errorf("event = %+v", ev)
	}
	if ev.ImageKey != "2024/06/01/evt-1_capture.png" || ev.AnnotatedKey != "2024/06/01/evt-1_annotated.png" {
		t.Errorf("archive keys = %q, %q", ev.ImageKey, ev.AnnotatedKey)
	}

	if len(p.alerts.alerts) != 1 || p.alerts.alerts[0].PlateNumber != "123 ABC" || p.alerts.alerts[0].DeviceID != "jetson-01" {
		t.Errorf("alerts = %+v", p.alerts.alerts)
	}
	if len(p.broadcasts.notes) != 1 || !p.broadcasts.notes[0].Alert || p.broadcasts.notes[0].Message == "" {
		t.Errorf("broadcasts = %+v", p.broadcasts.notes)
	}

	m, _ := p.motorcycles.FindByPlate(context.Background(), "123 ABC")
	if m.LastSeenAt == nil || !m.LastSeenAt.Equal(ev.CreatedAt) {
		t.Errorf("last_seen_at = %v, want %v", m.LastSeenAt, ev.CreatedAt)
	}
}

func TestProcessUnknownPlate(t *testing.T) {
	p := newPipeline()
	p.recognizer.blocks = []domain.TextBlock{rect("456 XYZ", 10, 10, 100, 40)}

	res, err := p.svc.Process(context.Background(), ScanInput{Image: testPNG(t), Source: domain.SourceUpload})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if res.Status.Exists || !res.Status.Actions.Add.Enabled {
		t.Errorf("status = %+v, want absent plate that can be added", res.Status)
	}
	if len(p.alerts.alerts) != 0 {
		t.Errorf("unexpected alerts: %+v", p.alerts.alerts)
	}
	if p.events.events[0].Matched {
		t.Error("event marked as matched")
	}
}

func TestProcessNoText(t *testing.T) {
	p := newPipeline()
	p.recognizer.err = ocr.ErrNoText

	res, err := p.svc.Process(context.Background(), ScanInput{Image: testPNG(t), Source: domain.SourceSQS})
	if !errors.Is(err, ocr.ErrNoText) {
		t.Fatalf("Process() error = %v, want ErrNoText", err)
	}
	if res == nil || res.EventID != "evt-1" || res.Recognition != nil {
		t.Errorf("result = %+v", res)
	}
	if len(p.events.events) != 1 || !strings.Contains(p.events.events[0].ErrorMessage, "no text") {
		t.Errorf("events = %+v, want one event carrying the error", p.events.events)
	}
	if p.events.events[0].ImageKey == "" {
		t.Error("capture was not archived")
	}
	if !IsPermanent(err) {
		t.Error("IsPermanent(ErrNoText) = false")
	}
}

func TestProcessInvalidImage(t *testing.T) {
	p := newPipeline()

	_, err := p.svc.Process(context.Background(), ScanInput{Image: []byte("not an image"), Source: domain.SourceUpload})
	if !errors.Is(err, imaging.ErrUnsupportedFormat) {
		t.Fatalf("Process() error = %v, want ErrUnsupportedFormat", err)
	}
	if p.recognizer.calls != 0 {
		t.Error("recognizer called for an undecodable image")
	}
	if len(p.events.events) != 1 || p.events.events[0].ImageKey != "" {
		t.Errorf("events = %+v", p.events.events)
	}
}

func TestProcessArchiveFailureIsNotFatal(t *testing.T) {
	p := newPipeline()
	p.archive.err = errors.New("disk full")
	p.recognizer.blocks = []domain.TextBlock{rect("456 XYZ", 10, 10, 100, 40)}

	if _, err := p.svc.Process(context.Background(), ScanInput{Image: testPNG(t), Source: domain.SourceUpload}); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if ev := p.events.events[0]; ev.ImageKey != "" || ev.AnnotatedKey != "" || ev.DetectedPlate != "456 XYZ" {
		t.Errorf("event = %+v", ev)
	}
}

func TestScanResultResponse(t *testing.T) {
	res := &ScanResult{
		EventID:        "evt-9",
		Recognition:    &domain.Recognition{Plate: "AB 1234", Region: "NCR", Provider: "huawei"},
		AnnotatedImage: []byte{1, 2, 3},
	}
	resp := res.Response("")
	if resp.DetectedPlate != "AB 1234" || resp.Provider != "huawei" || resp.AnnotatedImage != "AQID" {
		t.Errorf("Response() = %+v", resp)
	}
}
