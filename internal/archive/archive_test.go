package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/config"
)

func TestKey(t *testing.T) {
	at := time.Date(2024, 11, 5, 23, 30, 0, 0, time.FixedZone("PHT", 8*3600))
	got := Key(at, "evt-1", KindAnnotated, "png")
	if want := "2024/11/05/evt-1_annotated.png"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}

	path, err := s.Save(context.Background(), "2024/01/02/evt_capture.jpg", []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if want := filepath.Join(dir, "2024", "01", "02", "evt_capture.jpg"); path != want {
		t.Errorf("Save() path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg" {
		t.Errorf("stored file = %q, %v", data, err)
	}
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error: %v", err)
	}
	for _, key := range []string{"../outside.png", "a/../../outside.png"} {
		if _, err := s.Save(context.Background(), key, []byte("x"), "image/png"); err == nil {
			t.Errorf("Save(%q) = nil error, want rejection", key)
		}
	}
}

func TestNew(t *testing.T) {
	store, closeFn, err := New(context.Background(), &config.Config{ImageArchive: config.ArchiveNone})
	if err != nil {
		t.Fatalf("New(none) error: %v", err)
	}
	if _, ok := store.(Noop); !ok {
		t.Errorf("New(none) = %T, want Noop", store)
	}
	if err := closeFn(); err != nil {
		t.Errorf("close error: %v", err)
	}

	if _, _, err := New(context.Background(), &config.Config{ImageArchive: "s3"}); err == nil {
		t.Error("New(s3) = nil error")
	}
}
