package cache

import (
	"context"
	"time"
)

// NullBackend stores nothing. Every Load misses, so each request reaches
// upstream; concurrent callers for one key still share a computation.
type NullBackend struct{}

// NewNullBackend creates a null backend.
func NewNullBackend() *NullBackend { return &NullBackend{} }

func (NullBackend) Load(context.Context, string) (*Entry, error) { return nil, nil }

func (NullBackend) Save(context.Context, string, *Entry) error { return nil }

// Touch always reports a miss since nothing is ever stored.
func (NullBackend) Touch(context.Context, string, time.Time, time.Duration) error {
	return ErrCacheMiss
}

func (NullBackend) Delete(context.Context, string) error { return nil }

func (NullBackend) Keys(context.Context, string) ([]string, error) { return nil, nil }

func (NullBackend) Close() error { return nil }

var _ Backend = (*NullBackend)(nil)
