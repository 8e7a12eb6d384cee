package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "retrobot/pkg/logx"
)

// fileStore keeps the whole mapping in memory and rewrites the snapshot
// atomically (tmp + rename) on every Put. Entries are tiny and writes are
// rare (one per never-seen badge URL), so a full rewrite per key is fine.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	m  map[string]string
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	m := map[string]string{}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// first run
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(b, &m); err != nil {
			// Corrupt snapshot: start fresh rather than refuse to boot.
			log.Warn("discarding unreadable store snapshot", logx.String("path", path), logx.Err(err))
			m = map[string]string{}
		}
	}

	return &fileStore{log: log, path: path, m: m}, nil
}

func (s *fileStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *fileStore) Put(ctx context.Context, key, value string) error {
	_ = ctx
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return s.writeLocked()
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) writeLocked() error {
	b, err := json.MarshalIndent(s.m, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
