package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "MongoDB")
	t.Setenv("OCR_PROVIDER", "Huawei")
	t.Setenv("SCAN_RETENTION_DAYS", "7")

	cfg := Load()

	if cfg.StorageDriver != StorageMongoDB {
		t.Errorf("StorageDriver = %q, want %q", cfg.StorageDriver, StorageMongoDB)
	}
	if cfg.OCRProvider != ProviderHuawei {
		t.Errorf("OCRProvider = %q, want %q", cfg.OCRProvider, ProviderHuawei)
	}
	if cfg.MongoDB != "motorcycle_db" || cfg.MongoCollection != "motorcycles" {
		t.Errorf("mongo names = %q/%q, want motorcycle_db/motorcycles", cfg.MongoDB, cfg.MongoCollection)
	}
	if cfg.ScanRetention != 7*24*time.Hour {
		t.Errorf("ScanRetention = %v, want 168h", cfg.ScanRetention)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		StorageDriver:   StorageMongoDB,
		MongoURI:        "mongodb://localhost:27017",
		OCRProvider:     ProviderHuawei,
		HCAccessKey:     "ak",
		HCSecretKey:     "sk",
		HCRegion:        "ap-southeast-1",
		HCProjectID:     "project",
		ImageArchive:    ArchiveLocal,
		ImageArchiveDir: "output",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on complete config: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{"missing mongo uri", func(c *Config) { c.MongoURI = "" }, "MONGO_URI"},
		{"missing huawei keys", func(c *Config) { c.HCSecretKey = "" }, "HC_OCR_SECRET_ACCESS_KEY_ID"},
		{"unknown provider", func(c *Config) { c.OCRProvider = "tesseract" }, "unknown OCR_PROVIDER"},
		{"gcs without bucket", func(c *Config) { c.ImageArchive = ArchiveGCS }, "GCS_BUCKET"},
		{"unknown storage", func(c *Config) { c.StorageDriver = "sqlite" }, "unknown STORAGE_DRIVER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}
