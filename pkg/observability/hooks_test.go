package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "repos")
	c.OnCacheMiss(ctx, "commits")
	c.OnCacheRevalidated(ctx, "doc")
	c.OnCacheShared(ctx, "repos")
	c.OnCacheSet(ctx, "repos", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "api.github.com", "/users/octocat/repos")
	h.OnResponse(ctx, "GET", "api.github.com", "/users/octocat/repos", 200, time.Second)
	h.OnError(ctx, "GET", "api.github.com", "/users/octocat/repos", nil)

	p := NoopProbeHooks{}
	p.OnProbe(ctx, "https://example.com", "HEAD", 200, true, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}
	if _, ok := Probe().(NoopProbeHooks); !ok {
		t.Error("Probe() should return NoopProbeHooks by default")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	customProbe := &testProbeHooks{}
	SetProbeHooks(customProbe)
	if Probe() != customProbe {
		t.Error("SetProbeHooks should set custom hooks")
	}

	// nil does not replace registered hooks
	SetCacheHooks(nil)
	if Cache() != customCache {
		t.Error("SetCacheHooks(nil) should keep existing hooks")
	}

	Reset()
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Reset should restore NoopCacheHooks")
	}
	if _, ok := Probe().(NoopProbeHooks); !ok {
		t.Error("Reset should restore NoopProbeHooks")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	hooks := &testCacheHooks{}
	SetCacheHooks(hooks)

	ctx := context.Background()
	Cache().OnCacheHit(ctx, "repos")
	Cache().OnCacheHit(ctx, "repos")
	Cache().OnCacheMiss(ctx, "commits")
	Cache().OnCacheRevalidated(ctx, "doc")

	if hooks.hits != 2 || hooks.misses != 1 || hooks.revalidated != 1 {
		t.Errorf("got hits=%d misses=%d revalidated=%d, want 2/1/1",
			hooks.hits, hooks.misses, hooks.revalidated)
	}
}

type testCacheHooks struct {
	NoopCacheHooks
	hits, misses, revalidated int
}

func (h *testCacheHooks) OnCacheHit(context.Context, string)         { h.hits++ }
func (h *testCacheHooks) OnCacheMiss(context.Context, string)        { h.misses++ }
func (h *testCacheHooks) OnCacheRevalidated(context.Context, string) { h.revalidated++ }

type testHTTPHooks struct{ NoopHTTPHooks }

type testProbeHooks struct{ NoopProbeHooks }
