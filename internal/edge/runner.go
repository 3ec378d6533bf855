package edge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FrameSource yields JPEG-encoded frames.
type FrameSource interface {
	Grab() ([]byte, error)
}

type Runner struct {
	source    FrameSource
	submitter Submitter
	deviceID  string
	saveDir   string
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewRunner(source FrameSource, submitter Submitter, cfg *Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:    source,
		submitter: submitter,
		deviceID:  cfg.DeviceID,
		saveDir:   cfg.SaveDir,
		interval:  cfg.Interval,
		logger:    logger,
		now:       time.Now,
	}
}

// CaptureOnce grabs, optionally saves and submits a single frame.
func (r *Runner) CaptureOnce(ctx context.Context) (*Submission, error) {
	data, err := r.source.Grab()
	if err != nil {
		return nil, fmt.Errorf("grab frame: %w", err)
	}
	frame := Frame{Data: data, CapturedAt: r.now()}
	r.logger.Debug("Frame captured", "bytes", len(data))

	if r.saveDir != "" {
		if path, err := r.save(frame); err != nil {
			r.logger.Warn("Failed to save frame", "error", err)
		} else {
			r.logger.Debug("Frame saved", "path", path)
		}
	}

	sub, err := r.submitter.Submit(ctx, frame)
	if err != nil {
		return nil, err
	}
	r.report(sub)
	return sub, nil
}

// Run captures every interval until ctx is done. Failed captures are logged and skipped.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	captured, failed := 0, 0
	for {
		if _, err := r.CaptureOnce(ctx); err == nil {
			captured++
		} else if ctx.Err() == nil {
			failed++
			r.logger.Error("Capture failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Capture loop stopped", "submitted", captured, "failed", failed)
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) save(frame Frame) (string, error) {
	if err := os.MkdirAll(r.saveDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.jpg", r.deviceID, frame.CapturedAt.UTC().Format("20060102T150405.000"))
	path := filepath.Join(r.saveDir, name)
	return path, os.WriteFile(path, frame.Data, 0o644)
}

func (r *Runner) report(sub *Submission) {
	if sub.Queued || sub.Response == nil {
		r.logger.Info("Frame queued for recognition")
		return
	}
	resp := sub.Response
	if resp.ErrorMessage != "" {
		r.logger.Warn("No plate recognized", "event_id", resp.EventID, "message", resp.ErrorMessage)
		return
	}
	attrs := []any{
		"event_id", resp.EventID,
		"plate", resp.DetectedPlate,
		"region", resp.DetectedRegion,
		"confidence", resp.Confidence,
	}
	if st := resp.Status; st != nil && st.Record != nil {
		attrs = append(attrs, "blacklisted", st.Record.Blacklisted, "expired", st.Record.Expired, "violations", st.Record.Violations)
		if st.Record.Flagged() {
			r.logger.Warn("Flagged plate detected", attrs...)
			return
		}
	} else {
		attrs = append(attrs, "registered", false)
	}
	r.logger.Info("Plate recognized", attrs...)
}
