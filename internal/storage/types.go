package storage

import (
	"context"
	"time"
)

// Store is the minimal persistence API used by core/services.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free JSON snapshot file (default)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
