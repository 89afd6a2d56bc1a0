// Package cachetest provides a conformance suite for cache.Backend
// implementations.
package cachetest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"
)

// RunBackendTests exercises the behavior every backend must share.
// newBackend is called once per subtest and must return an empty backend.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) cache.Backend) {
	t.Helper()
	ctx := context.Background()
	storedAt := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("LoadAbsent", func(t *testing.T) {
		b := newBackend(t)
		e, err := b.Load(ctx, "repos:absent")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if e != nil {
			t.Errorf("Load absent = %+v, want nil", e)
		}
	})

	t.Run("SaveLoad", func(t *testing.T) {
		b := newBackend(t)
		want := &cache.Entry{
			Value:      json.RawMessage(`{"name":"a"}`),
			StoredAt:   storedAt,
			TTL:        10 * time.Minute,
			Token:      `W/"etag"`,
			SourcePath: "docs/progress.md",
		}
		if err := b.Save(ctx, "doc:1", want); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := b.Load(ctx, "doc:1")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		assertEntry(t, got, want)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		b := newBackend(t)
		first := &cache.Entry{Value: json.RawMessage(`1`), StoredAt: storedAt, TTL: time.Minute, Token: "a"}
		second := &cache.Entry{Value: json.RawMessage(`2`), StoredAt: storedAt.Add(time.Hour), TTL: time.Minute}
		if err := b.Save(ctx, "k:1", first); err != nil {
			t.Fatal(err)
		}
		if err := b.Save(ctx, "k:1", second); err != nil {
			t.Fatal(err)
		}
		got, err := b.Load(ctx, "k:1")
		if err != nil {
			t.Fatal(err)
		}
		assertEntry(t, got, second)
	})

	t.Run("Touch", func(t *testing.T) {
		b := newBackend(t)
		orig := &cache.Entry{Value: json.RawMessage(`[1,2]`), StoredAt: storedAt, TTL: time.Minute, Token: "t", SourcePath: "a.md"}
		if err := b.Save(ctx, "k:2", orig); err != nil {
			t.Fatal(err)
		}
		later := storedAt.Add(2 * time.Hour)
		if err := b.Touch(ctx, "k:2", later, 5*time.Minute); err != nil {
			t.Fatalf("Touch: %v", err)
		}
		got, err := b.Load(ctx, "k:2")
		if err != nil {
			t.Fatal(err)
		}
		want := orig.Clone()
		want.StoredAt = later
		want.TTL = 5 * time.Minute
		assertEntry(t, got, want)
	})

	t.Run("TouchAbsent", func(t *testing.T) {
		b := newBackend(t)
		err := b.Touch(ctx, "k:none", storedAt, time.Minute)
		if !errors.Is(err, cache.ErrCacheMiss) {
			t.Errorf("Touch absent = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		if err := b.Save(ctx, "k:3", &cache.Entry{Value: json.RawMessage(`true`), StoredAt: storedAt, TTL: time.Minute}); err != nil {
			t.Fatal(err)
		}
		if err := b.Delete(ctx, "k:3"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if e, _ := b.Load(ctx, "k:3"); e != nil {
			t.Error("entry survived Delete")
		}
		if err := b.Delete(ctx, "k:3"); err != nil {
			t.Errorf("Delete absent: %v", err)
		}
	})

	t.Run("Keys", func(t *testing.T) {
		b := newBackend(t)
		for _, k := range []string{"repos:a", "repos:b", "commits:a"} {
			if err := b.Save(ctx, k, &cache.Entry{Value: json.RawMessage(`0`), StoredAt: storedAt, TTL: time.Minute}); err != nil {
				t.Fatal(err)
			}
		}
		keys, err := b.Keys(ctx, "repos:")
		if err != nil {
			t.Fatalf("Keys: %v", err)
		}
		if len(keys) != 2 || keys[0] != "repos:a" || keys[1] != "repos:b" {
			t.Errorf("Keys(repos:) = %v", keys)
		}
		all, err := b.Keys(ctx, "")
		if err != nil {
			t.Fatal(err)
		}
		if len(all) != 3 {
			t.Errorf("Keys() = %v, want 3 keys", all)
		}
	})

	t.Run("StaleRetained", func(t *testing.T) {
		b := newBackend(t)
		old := &cache.Entry{Value: json.RawMessage(`"x"`), StoredAt: time.Now().Add(-time.Hour), TTL: time.Second}
		if err := b.Save(ctx, "k:stale", old); err != nil {
			t.Fatal(err)
		}
		got, err := b.Load(ctx, "k:stale")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Fatal("stale entry was dropped")
		}
		if got.Fresh(time.Now()) {
			t.Error("stale entry reported fresh")
		}
	})
}

func assertEntry(t *testing.T, got, want *cache.Entry) {
	t.Helper()
	if got == nil {
		t.Fatal("entry is nil")
	}
	if string(got.Value) != string(want.Value) {
		t.Errorf("Value = %s, want %s", got.Value, want.Value)
	}
	if !got.StoredAt.Equal(want.StoredAt) {
		t.Errorf("StoredAt = %v, want %v", got.StoredAt, want.StoredAt)
	}
	if got.TTL != want.TTL {
		t.Errorf("TTL = %v, want %v", got.TTL, want.TTL)
	}
	if got.Token != want.Token {
		t.Errorf("Token = %q, want %q", got.Token, want.Token)
	}
	if got.SourcePath != want.SourcePath {
		t.Errorf("SourcePath = %q, want %q", got.SourcePath, want.SourcePath)
	}
}
