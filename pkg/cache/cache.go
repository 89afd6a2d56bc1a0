// Package cache implements the key-addressed store behind the proxy.
//
// A [Store] holds JSON payloads as [Entry] values with a time-to-live and an
// optional revalidation token. Stale entries are kept (not deleted) so a later
// refresh can present the token upstream and, on "not modified", extend the
// entry's freshness without recomputing it.
//
// # Lifecycle of a key
//
//	ABSENT → COMPUTING → FRESH → STALE → REVALIDATING → FRESH
//	                              STALE → COMPUTING    → FRESH (replaced)
//
// COMPUTING and REVALIDATING are the only states in which callers wait:
// [GetOrCompute] and [GetOrRevalidate] run at most one computation per key
// per process and every concurrent caller observes its single result.
// Failed computations are never written to the backend.
//
// # Backends
//
// Storage is pluggable through [Backend]:
//
//   - [MemoryBackend]: in-process map with optional LRU capacity
//   - [FileBackend]: one JSON file per key, atomic replace
//   - [NullBackend]: stores nothing (caching disabled)
//   - redis.Backend, sqlite.Backend, mongo.Backend in subpackages
//
// The at-most-one-computation guarantee is process-local for every backend;
// several proxy instances sharing Redis may each compute the same key once.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// DefaultTTL is the freshness window applied when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// ErrCacheMiss is returned by [Backend.Touch] when the key has no entry.
var ErrCacheMiss = errors.New("cache miss")

// Status reports how a value was produced.
type Status string

const (
	// StatusHit means a fresh entry was served without upstream work.
	StatusHit Status = "HIT"

	// StatusMiss means the value was computed (or replaced) from upstream.
	StatusMiss Status = "MISS"

	// StatusRevalidated means a stale entry was confirmed unchanged upstream.
	StatusRevalidated Status = "REVALIDATED"
)

// Entry is a stored payload with its freshness metadata.
type Entry struct {
	Value      json.RawMessage `json:"value"`
	StoredAt   time.Time       `json:"stored_at"`
	TTL        time.Duration   `json:"ttl"`
	Token      string          `json:"token,omitempty"`
	SourcePath string          `json:"source_path,omitempty"`
}

// Fresh reports whether now - StoredAt < TTL.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// ExpiresAt returns the instant the entry turns stale.
func (e *Entry) ExpiresAt() time.Time {
	return e.StoredAt.Add(e.TTL)
}

// Clone returns a deep copy so callers never share Value's backing array.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Value = append(json.RawMessage(nil), e.Value...)
	return &c
}

// Backend is the storage behind a [Store].
//
// Implementations must replace entries atomically: a concurrent Load never
// observes a half-written entry.
type Backend interface {
	// Load returns the entry for key, or nil, nil when absent.
	// Stale entries are returned as well.
	Load(ctx context.Context, key string) (*Entry, error)

	// Save stores e under key, replacing any previous entry.
	Save(ctx context.Context, key string, e *Entry) error

	// Touch sets StoredAt and TTL of an existing entry without rewriting
	// its value. It returns ErrCacheMiss when key is absent.
	Touch(ctx context.Context, key string, storedAt time.Time, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists stored keys beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}
