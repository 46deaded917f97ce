package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crawlscope/crawlscope/internal/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_BACKEND", "GCS_BUCKET", "S3_BUCKET", "FIX_DELAY_MS", "REMEDIATION_URL"} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("Backend = %q, want local", cfg.Storage.Backend)
	}
	if cfg.FixDelay != time.Second {
		t.Errorf("FixDelay = %v, want 1s", cfg.FixDelay)
	}
}

func TestLoadConfigS3Bucket(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "audits")
	t.Setenv("GCS_BUCKET", "other")
	t.Setenv("FIX_DELAY_MS", "0")

	cfg := loadConfig()
	if cfg.Storage.Bucket != "audits" {
		t.Errorf("Bucket = %q, want audits", cfg.Storage.Bucket)
	}
	if cfg.FixDelay != 0 {
		t.Errorf("FixDelay = %v, want 0", cfg.FixDelay)
	}
}

type fakePinger struct {
	*store.Memory
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name    string
		backend store.Store
		want    int
	}{
		{"no pinger", store.NewMemory(), http.StatusOK},
		{"healthy", fakePinger{Memory: store.NewMemory()}, http.StatusOK},
		{"unreachable", fakePinger{Memory: store.NewMemory(), err: errors.New("down")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			healthHandler(tt.backend)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
