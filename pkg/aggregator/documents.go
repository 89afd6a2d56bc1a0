package aggregator

import (
	"context"
	"slices"
	"strings"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
)

// DocumentKind names a markdown document looked up by candidate paths.
type DocumentKind string

const (
	DocumentProgress  DocumentKind = "progress"
	DocumentCaseStudy DocumentKind = "case-study"
)

// ParseDocumentKind validates a document kind.
func ParseDocumentKind(raw string) (DocumentKind, error) {
	switch k := DocumentKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case DocumentProgress, DocumentCaseStudy:
		return k, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown document kind %q (want %s or %s)", raw, DocumentProgress, DocumentCaseStudy)
}

// Required reports whether a missing document is an error for callers that
// serve it. Case studies are required; progress notes are optional.
func (k DocumentKind) Required() bool { return k == DocumentCaseStudy }

func defaultDocumentPaths() map[DocumentKind][]string {
	return map[DocumentKind][]string{
		DocumentProgress: {
			"progress.md", "Progress.md", "PROGRESS.md",
			"docs/progress.md", "docs/Progress.md", "docs/PROGRESS.md",
			".github/progress.md", ".github/PROGRESS.md",
		},
		DocumentCaseStudy: {
			"docs/CASESTUDY.md", "docs/casestudy.md",
			"CASESTUDY.md", "casestudy.md", "CASE_STUDY.md",
		},
	}
}

// DocumentPaths returns the candidate paths of kind in priority order.
func (a *Aggregator) DocumentPaths(kind DocumentKind) []string {
	return append([]string(nil), a.documents[kind]...)
}

// DocumentFetch is a looked-up document. Path is nil and Content empty when
// no candidate exists.
type DocumentFetch struct {
	Path    *string `json:"path"`
	Content string  `json:"content"`

	// FrontMatter holds the parsed leading YAML block, if any.
	FrontMatter map[string]any `json:"front_matter,omitempty"`
	// Body is Content without its front matter.
	Body string `json:"-"`
}

// DocumentState distinguishes a found document from a valid empty result.
type DocumentState string

const (
	DocumentFound DocumentState = "found"
	DocumentEmpty DocumentState = "empty"
)

// DocumentResult is the outcome of a successful lookup. Failures are
// reported as errors, never as a result.
type DocumentResult struct {
	State    DocumentState
	Document DocumentFetch
}

// Found reports whether a candidate path existed.
func (r DocumentResult) Found() bool { return r.State == DocumentFound }

// FetchDocument looks up a document of q.Kind, trying each candidate path in
// order. The first path that exists wins. When none exists the result is
// [DocumentEmpty], which is cached like any other result.
//
// A stale entry first re-checks the candidates ranked above its stored path,
// then revalidates the stored path with its ETag, so a newly added
// higher-priority document replaces it at the next refresh.
//
// When every attempt was rate limited the rate-limit error is returned. Any
// other failure without a success is UPSTREAM_UNAVAILABLE, and nothing is
// cached.
func (a *Aggregator) FetchDocument(ctx context.Context, q DocumentQuery) (DocumentResult, cache.Status, error) {
	owner, repo := strings.TrimSpace(q.Owner), strings.TrimSpace(q.Repo)
	if err := github.ValidateRepoRef(owner, repo); err != nil {
		return DocumentResult{}, "", err
	}
	paths, ok := a.documents[q.Kind]
	if !ok {
		_, err := ParseDocumentKind(string(q.Kind))
		return DocumentResult{}, "", err
	}

	key := a.keyer.DocumentKey(string(q.Kind), owner, repo)
	doc, status, err := cache.GetOrRevalidate(ctx, a.store, key, a.ttl, func(ctx context.Context, prior *cache.Entry) (cache.Fetched[DocumentFetch], error) {
		if prior != nil && prior.SourcePath != "" && prior.Token != "" && slices.Contains(paths, prior.SourcePath) {
			if f, ok := a.preferredDocument(ctx, owner, repo, paths[:slices.Index(paths, prior.SourcePath)]); ok {
				return f, nil
			}
			f, err := a.revalidateDocument(ctx, owner, repo, prior)
			if err == nil || !errors.Is(err, errors.ErrCodeNotFound) {
				return f, err
			}
			a.logger.Debug("document moved, searching candidates", "repo", owner+"/"+repo, "path", prior.SourcePath)
		}
		return a.searchDocument(ctx, q.Kind, owner, repo, paths)
	})
	if err != nil {
		return DocumentResult{}, "", err
	}

	if doc.Path == nil {
		return DocumentResult{State: DocumentEmpty, Document: doc}, status, nil
	}
	doc.FrontMatter, doc.Body = ParseFrontMatter(doc.Content)
	return DocumentResult{State: DocumentFound, Document: doc}, status, nil
}

// preferredDocument looks for a document at the candidates ranked above the
// stored path. Failures of any kind leave the stored path in charge.
func (a *Aggregator) preferredDocument(ctx context.Context, owner, repo string, paths []string) (cache.Fetched[DocumentFetch], bool) {
	for _, p := range paths {
		c, err := a.upstream.FetchContent(ctx, owner, repo, p, "")
		if err == nil {
			a.logger.Debug("higher-priority document appeared", "repo", owner+"/"+repo, "path", p)
			return foundDocument(c), true
		}
	}
	return cache.Fetched[DocumentFetch]{}, false
}

// revalidateDocument asks for the previously found path with its ETag.
func (a *Aggregator) revalidateDocument(ctx context.Context, owner, repo string, prior *cache.Entry) (cache.Fetched[DocumentFetch], error) {
	c, err := a.upstream.FetchContent(ctx, owner, repo, prior.SourcePath, prior.Token)
	if err != nil {
		return cache.Fetched[DocumentFetch]{}, err
	}
	if c.NotModified {
		return cache.Fetched[DocumentFetch]{NotModified: true}, nil
	}
	return foundDocument(c), nil
}

func (a *Aggregator) searchDocument(ctx context.Context, kind DocumentKind, owner, repo string, paths []string) (cache.Fetched[DocumentFetch], error) {
	var (
		limited  int
		limitErr error
		failure  error
	)
	for _, p := range paths {
		c, err := a.upstream.FetchContent(ctx, owner, repo, p, "")
		if err == nil {
			a.logger.Debug("found document", "kind", kind, "repo", owner+"/"+repo, "path", p)
			return foundDocument(c), nil
		}
		switch {
		case errors.Is(err, errors.ErrCodeInvalidInput):
			return cache.Fetched[DocumentFetch]{}, err
		case errors.Is(err, errors.ErrCodeNotFound):
		case errors.Is(err, errors.ErrCodeRateLimited):
			limited++
			limitErr = err
		default:
			if failure == nil {
				failure = err
			}
		}
	}

	switch {
	case failure != nil:
		if errors.Is(failure, errors.ErrCodeUpstreamUnavailable) {
			return cache.Fetched[DocumentFetch]{}, failure
		}
		return cache.Fetched[DocumentFetch]{}, errors.Wrap(errors.ErrCodeUpstreamUnavailable, failure, "fetch %s document of %s/%s", kind, owner, repo)
	case len(paths) > 0 && limited == len(paths):
		return cache.Fetched[DocumentFetch]{}, limitErr
	}
	return cache.Fetched[DocumentFetch]{Value: DocumentFetch{Content: ""}}, nil
}

func foundDocument(c github.Content) cache.Fetched[DocumentFetch] {
	path := c.Path
	return cache.Fetched[DocumentFetch]{
		Value:      DocumentFetch{Path: &path, Content: c.Body},
		Token:      c.ETag,
		SourcePath: c.Path,
	}
}
