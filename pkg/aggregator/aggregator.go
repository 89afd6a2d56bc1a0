package aggregator

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
)

// Upstream is the subset of the GitHub client the aggregator depends on.
type Upstream interface {
	ListUserRepos(ctx context.Context, username string, b github.Bounds) ([]github.Repository, error)
	ListCommits(ctx context.Context, owner, repo string, since time.Time, b github.Bounds, etag string) (github.CommitListing, error)
	FetchContent(ctx context.Context, owner, repo, path, etag string) (github.Content, error)
}

// LiveChecker resolves the live URL of each candidate set, index-aligned.
type LiveChecker interface {
	ProbeAll(ctx context.Context, sets [][]string) []string
}

// CandidateFunc lists the URLs to probe for one repository, in order.
type CandidateFunc func(homepage, owner, name string) []string

// Aggregator runs the cached fetch pipelines behind every proxy endpoint.
//
// It holds no per-request state; one Aggregator is shared by all requests.
type Aggregator struct {
	upstream   Upstream
	store      *cache.Store
	prober     LiveChecker
	keyer      cache.Keyer
	logger     *log.Logger
	ttl        time.Duration
	repoBounds github.Bounds
	commitBnds github.Bounds
	candidates CandidateFunc
	documents  map[DocumentKind][]string
}

// Option configures an [Aggregator].
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTTL sets how long fetched results stay fresh.
func WithTTL(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.ttl = d
		}
	}
}

// WithKeyer replaces the cache key derivation, e.g. with a [cache.ScopedKeyer].
func WithKeyer(k cache.Keyer) Option {
	return func(a *Aggregator) {
		if k != nil {
			a.keyer = k
		}
	}
}

// WithRepoBounds sets the page size and page bound of repository listings.
func WithRepoBounds(b github.Bounds) Option {
	return func(a *Aggregator) { a.repoBounds = mergeBounds(a.repoBounds, b) }
}

// WithCommitBounds sets the page size and page bound of commit listings.
func WithCommitBounds(b github.Bounds) Option {
	return func(a *Aggregator) { a.commitBnds = mergeBounds(a.commitBnds, b) }
}

// WithCandidates replaces how live URL candidates are derived.
func WithCandidates(f CandidateFunc) Option {
	return func(a *Aggregator) {
		if f != nil {
			a.candidates = f
		}
	}
}

// WithDocumentPaths replaces the candidate paths tried for a document kind.
func WithDocumentPaths(kind DocumentKind, paths []string) Option {
	return func(a *Aggregator) {
		a.documents[kind] = append([]string(nil), paths...)
	}
}

// New creates an Aggregator. A nil store disables caching; a nil prober
// leaves every live URL empty.
func New(upstream Upstream, store *cache.Store, prober LiveChecker, opts ...Option) *Aggregator {
	if store == nil {
		store = cache.NewStore(nil)
	}
	a := &Aggregator{
		upstream:   upstream,
		store:      store,
		prober:     prober,
		keyer:      cache.NewDefaultKeyer(),
		logger:     log.Default(),
		ttl:        cache.DefaultTTL,
		repoBounds: github.Bounds{PerPage: github.DefaultPerPage, MaxPages: github.RepoPageBound},
		commitBnds: github.Bounds{PerPage: github.DefaultPerPage, MaxPages: github.CommitPageBound},
		candidates: defaultCandidates,
		documents:  defaultDocumentPaths(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TTL is the freshness window applied to every entry the aggregator stores.
func (a *Aggregator) TTL() time.Duration { return a.ttl }

// Store returns the underlying cache store.
func (a *Aggregator) Store() *cache.Store { return a.store }

func mergeBounds(cur, b github.Bounds) github.Bounds {
	if b.PerPage > 0 {
		cur.PerPage = b.PerPage
	}
	if b.MaxPages > 0 {
		cur.MaxPages = b.MaxPages
	}
	return cur
}
