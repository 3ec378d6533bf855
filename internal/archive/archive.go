// Package archive keeps copies of captured and annotated images.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/config"
)

const (
	KindCapture   = "capture"
	KindAnnotated = "annotated"
)

// ImageStore persists one encoded image under key and returns where it ended up.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Key lays images out by capture day: YYYY/MM/DD/<eventID>_<kind>.<ext>.
func Key(at time.Time, eventID, kind, ext string) string {
	return fmt.Sprintf("%s/%s_%s.%s", at.UTC().Format("2006/01/02"), eventID, kind, ext)
}

// Noop discards images.
type Noop struct{}

func (Noop) Save(context.Context, string, []byte, string) (string, error) { return "", nil }

// New returns the store selected by cfg.ImageArchive and a close func.
func New(ctx context.Context, cfg *config.Config) (ImageStore, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.ImageArchive {
	case config.ArchiveLocal:
		s, err := NewLocalStore(cfg.ImageArchiveDir)
		if err != nil {
			return nil, nil, err
		}
		return s, noClose, nil
	case config.ArchiveGCS:
		s, err := NewGCSStore(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.ArchiveNone, "":
		return Noop{}, noClose, nil
	}
	return nil, nil, fmt.Errorf("archive.New: unknown image archive %q", cfg.ImageArchive)
}
