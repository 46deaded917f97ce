// Package store persists session state as opaque values under string keys.
// Backends cover in-memory, local filesystem, S3, GCS, and Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crawlscope/crawlscope/pkg/config"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// Store is a key-value persistence collaborator. Remove of a missing key is
// not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Open creates the backend named by cfg.Backend. The returned close function
// releases backend resources and is never nil.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocal(cfg.Path), noop, nil
	case "memory":
		return NewMemory(), noop, nil
	case "s3":
		if cfg.Bucket == "" {
			return nil, noop, fmt.Errorf("open s3 store: bucket is required")
		}
		s, err := NewS3(ctx, S3Config{Bucket: cfg.Bucket, Region: cfg.Region, Endpoint: cfg.Endpoint, Prefix: cfg.Prefix})
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "gcs":
		if cfg.Bucket == "" {
			return nil, noop, fmt.Errorf("open gcs store: bucket is required")
		}
		s, err := NewGCS(ctx, cfg.Bucket, cfg.Prefix)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// objectKey maps a store key to an object name under an optional prefix.
func objectKey(prefix, key string) string {
	name := key + ".json"
	if prefix == "" {
		return name
	}
	return strings.TrimRight(prefix, "/") + "/" + name
}
