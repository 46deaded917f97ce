package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalSetGet(t *testing.T) {
	dir := t.TempDir()
	s := NewLocal(dir)
	ctx := context.Background()

	data := []byte(`{"score":87}`)
	if err := s.Set(ctx, "audit_results/sess1", data); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "audit_results/sess1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}

	// Verify file path layout
	expectedPath := filepath.Join(dir, "audit_results", "sess1.json")
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected file at %s: %v", expectedPath, err)
	}
	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestLocalOverwrite(t *testing.T) {
	s := NewLocal(t.TempDir())
	ctx := context.Background()

	s.Set(ctx, "k", []byte("one"))
	if err := s.Set(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ := s.Get(ctx, "k")
	if string(got) != "two" {
		t.Errorf("Get = %q, want two", got)
	}
}

func TestLocalGetNotFound(t *testing.T) {
	s := NewLocal(t.TempDir())

	_, err := s.Get(context.Background(), "audit_results/nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLocalRemove(t *testing.T) {
	s := NewLocal(t.TempDir())
	ctx := context.Background()

	s.Set(ctx, "k", []byte("v"))
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Remove err = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Errorf("Remove of missing key: %v", err)
	}
}
