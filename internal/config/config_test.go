package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"EMS_ADDRESS", "PORT", "EMS_PHOTO_TIMEOUT", "EMS_BARCODE_SYMBOLOGY", "EMS_S3_ENDPOINT", "EMS_REDIS_ADDR", "EMS_DOCUMENT_TIME"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != ":8080" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.PhotoTimeout != 10*time.Second {
		t.Errorf("PhotoTimeout = %v", cfg.PhotoTimeout)
	}
	if cfg.Symbology != "CODE128" {
		t.Errorf("Symbology = %q", cfg.Symbology)
	}
	if cfg.UseS3() || cfg.UseQueue() {
		t.Errorf("optional backends enabled by default")
	}
	if !cfg.DocumentTime.IsZero() {
		t.Errorf("DocumentTime = %v, want zero", cfg.DocumentTime)
	}
}

func TestLoadDocumentTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T12:00:00Z", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"2024-03-01T09:00:00-03:00", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Setenv("EMS_DOCUMENT_TIME", tt.in)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if !cfg.DocumentTime.Equal(tt.want) {
			t.Errorf("%q: DocumentTime = %v, want %v", tt.in, cfg.DocumentTime, tt.want)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EMS_ADDRESS", "")
	t.Setenv("PORT", "9000")
	t.Setenv("EMS_PHOTO_TIMEOUT", "3s")
	t.Setenv("EMS_PHOTO_FALLBACK", "true")
	t.Setenv("EMS_BARCODE_SYMBOLOGY", "qr")
	t.Setenv("EMS_WORKER_CONCURRENCY", "-1")
	t.Setenv("EMS_DOWNLOAD_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address != ":9000" {
		t.Errorf("Address = %q, want :9000", cfg.Address)
	}
	if cfg.PhotoTimeout != 3*time.Second {
		t.Errorf("PhotoTimeout = %v", cfg.PhotoTimeout)
	}
	if !cfg.PhotoFallback {
		t.Errorf("PhotoFallback = false")
	}
	if cfg.Symbology != "QR" {
		t.Errorf("Symbology = %q", cfg.Symbology)
	}
	if cfg.WorkerConcurrency != 2 {
		t.Errorf("WorkerConcurrency = %d", cfg.WorkerConcurrency)
	}
	if cfg.DownloadTTL != 15*time.Minute {
		t.Errorf("DownloadTTL = %v", cfg.DownloadTTL)
	}
}
