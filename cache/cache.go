package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Store keeps rendered pages for a fixed time-to-live.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte) error
	Clear(ctx context.Context) error
}

// Key hashes the parts identifying a request into a fixed-size cache key.
func Key(parts ...string) string {
	return generateHash(strings.Join(parts, "\x00"))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// FileStore keeps one HTML file per key under dir. An entry expires maxAge
// after it was written.
type FileStore struct {
	dir    string
	maxAge time.Duration
}

func NewFileStore(dir string, maxAge time.Duration) *FileStore {
	return &FileStore{dir: dir, maxAge: maxAge}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".html")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool) {
	cachePath := s.path(key)

	info, err := os.Stat(cachePath)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > s.maxAge {
		return nil, false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Set writes to a temporary file and renames it into place so readers
// never see a partially written entry.
func (s *FileStore) Set(_ context.Context, key string, body []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Clear removes every cached page.
func (s *FileStore) Clear(_ context.Context) error {
	return os.RemoveAll(s.dir)
}

// Prune removes cache files older than maxAge.
func (s *FileStore) Prune() error {
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		if time.Since(info.ModTime()) > s.maxAge {
			os.Remove(path)
		}
		return nil
	})
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// PruneEvery calls Prune on every tick until ctx is done.
func (s *FileStore) PruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Prune(); err != nil {
				log.Printf("Error pruning page cache: %v", err)
			}
		}
	}
}
