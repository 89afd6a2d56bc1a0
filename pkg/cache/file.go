package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileBackend stores one JSON file per key under a directory. Writes go to
// a temporary file that is renamed into place, so readers never see a
// partial entry.
type FileBackend struct {
	dir string
	mu  sync.Mutex // serializes read-modify-write in Touch against Save
}

// NewFileBackend creates a file backend rooted at dir.
// The directory will be created if it doesn't exist.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileBackend) Dir() string { return c.dir }

// fileRecord is the on-disk form. The key is kept so Keys can list entries
// without reversing the path hash.
type fileRecord struct {
	Key string `json:"key"`
	Entry
}

func (c *FileBackend) Load(_ context.Context, key string) (*Entry, error) {
	rec, err := c.read(c.path(key))
	if err != nil || rec == nil {
		return nil, err
	}
	e := rec.Entry
	return &e, nil
}

func (c *FileBackend) Save(_ context.Context, key string, e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(key, e)
}

func (c *FileBackend) Touch(_ context.Context, key string, storedAt time.Time, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, err := c.read(c.path(key))
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrCacheMiss
	}
	rec.StoredAt = storedAt
	rec.TTL = ttl
	return c.write(key, &rec.Entry)
}

func (c *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *FileBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rec, err := c.read(path)
		if err != nil || rec == nil {
			return nil
		}
		if strings.HasPrefix(rec.Key, prefix) {
			keys = append(keys, rec.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close does nothing for the file backend.
func (c *FileBackend) Close() error { return nil }

// Clear removes every cached file.
func (c *FileBackend) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *FileBackend) read(path string) (*fileRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// corrupt entry, treat as absent
		_ = os.Remove(path)
		return nil, nil
	}
	return &rec, nil
}

func (c *FileBackend) write(key string, e *Entry) error {
	data, err := json.Marshal(fileRecord{Key: key, Entry: *e})
	if err != nil {
		return err
	}
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// path converts a cache key to a file path. The first two hash characters
// name a subdirectory to avoid too many files in one dir.
func (c *FileBackend) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".json")
}

var _ Backend = (*FileBackend)(nil)
