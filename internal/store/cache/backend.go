package cache

import (
	"context"
	"fmt"
	"path/filepath"
)

// Backend stores opaque values under string keys. Read returns
// models.ErrCacheMiss when the key is absent.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// NewBackend opens the backend named by kind. dir holds the cache files.
func NewBackend(kind, dir string) (Backend, error) {
	switch kind {
	case "file":
		return NewFileBackend(dir)
	case "sqlite":
		return NewSQLiteBackend(filepath.Join(dir, "cache.db"))
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", kind)
	}
}
