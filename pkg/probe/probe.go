// Package probe decides whether a project's public site is reachable.
//
// A candidate URL is live when a HEAD request, or failing that a GET whose
// body is never read, answers with a status in [200, 400). Network failures
// of any kind mean "not live"; they are never returned as errors.
package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gundaminthecode/showcase/pkg/buildinfo"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/observability"
)

// Defaults for [New].
const (
	DefaultTimeout     = 4 * time.Second
	DefaultConcurrency = 8
)

// Prober checks candidate URLs for liveness.
type Prober struct {
	http        *http.Client
	timeout     time.Duration
	concurrency int
	userAgent   string
}

// Option configures a [Prober].
type Option func(*Prober)

// WithTimeout bounds each HEAD or GET.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithConcurrency limits how many repositories ProbeAll checks at once.
func WithConcurrency(n int) Option {
	return func(p *Prober) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithHTTPClient replaces the HTTP client. Its redirect policy is kept.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.http = c
		}
	}
}

// New creates a Prober. The default client follows redirects.
func New(opts ...Option) *Prober {
	p := &Prober{
		http:        &http.Client{},
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
		userAgent:   buildinfo.UserAgent(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe returns the first live candidate, checking them strictly in order.
func (p *Prober) Probe(ctx context.Context, candidates []string) (string, bool) {
	for _, c := range candidates {
		if ctx.Err() != nil {
			return "", false
		}
		if p.IsLive(ctx, c) {
			return c, true
		}
	}
	return "", false
}

// ProbeAll probes each candidate set concurrently, at most the configured
// concurrency at a time. Result i is the live URL of sets[i], or "".
func (p *Prober) ProbeAll(ctx context.Context, sets [][]string) []string {
	out := make([]string, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, set := range sets {
		g.Go(func() error {
			if u, ok := p.Probe(gctx, set); ok {
				out[i] = u
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// IsLive reports whether rawURL answers with a status in [200, 400).
// Only http and https URLs are probed.
func (p *Prober) IsLive(ctx context.Context, rawURL string) bool {
	if errors.ValidateURL(rawURL) != nil {
		return false
	}
	if p.check(ctx, http.MethodHead, rawURL) {
		return true
	}
	return p.check(ctx, http.MethodGet, rawURL)
}

func (p *Prober) check(ctx context.Context, method, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		observability.Probe().OnProbe(ctx, rawURL, method, 0, false, time.Since(start))
		return false
	}
	// status only; the body is discarded unread
	if method == http.MethodHead {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	resp.Body.Close()

	live := resp.StatusCode >= 200 && resp.StatusCode < 400
	observability.Probe().OnProbe(ctx, rawURL, method, resp.StatusCode, live, time.Since(start))
	return live
}

// Candidates returns the URLs to probe for a repository, in priority order:
// the declared homepage (https:// is assumed for bare hosts), then the
// project's GitHub Pages URL. Duplicates are removed.
func Candidates(homepage, owner, name string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	add(normalizeHomepage(homepage))
	if owner != "" && name != "" {
		add(PagesURL(owner, name))
	}
	return out
}

// PagesURL is the conventional GitHub Pages address of a project site.
func PagesURL(owner, name string) string {
	return "https://" + strings.ToLower(owner) + ".github.io/" + name + "/"
}

func normalizeHomepage(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	if errors.ValidateURL(s) != nil {
		return ""
	}
	return s
}
