package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/buildinfo"
	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/integrations"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// APIVersion is sent as X-GitHub-Api-Version.
	APIVersion = "2022-11-28"

	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeRaw  = "application/vnd.github.v3.raw"
)

// Page bounds cap worst-case latency and upstream load per request.
const (
	DefaultPerPage  = 100
	RepoPageBound   = 5
	CommitPageBound = 10
)

// Client provides access to the GitHub REST API.
type Client struct {
	*integrations.Client
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// Option configures a [Client].
type Option func(*clientOptions)

// WithBaseURL points the client at another API root, e.g. a test server or
// GitHub Enterprise.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithHTTPClient replaces the HTTP client. The caller is then responsible
// for attaching credentials.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// NewClient creates a GitHub API client with optional authentication.
// Pass an empty string for token to use unauthenticated requests (lower rate limits).
func NewClient(token string, opts ...Option) *Client {
	o := clientOptions{
		baseURL:   DefaultBaseURL,
		timeout:   integrations.DefaultTimeout,
		userAgent: buildinfo.UserAgent(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = integrations.NewAuthHTTPClient(token, o.timeout)
	}

	headers := map[string]string{
		"Accept":               mediaTypeJSON,
		"X-GitHub-Api-Version": APIVersion,
		"User-Agent":           o.userAgent,
	}
	return &Client{Client: integrations.NewClient(o.httpClient, o.baseURL, headers)}
}

// Query holds the parameters of a list request.
type Query struct {
	Values      url.Values // resource-specific parameters
	PerPage     int        // page size; DefaultPerPage when zero
	IfNoneMatch string     // token presented on the first page only
}

// Page is one page of a list resource.
type Page struct {
	Records     []json.RawMessage
	ETag        string
	NotModified bool
}

// Bounds limits a paginated listing.
type Bounds struct {
	PerPage  int
	MaxPages int
}

// Listing is the concatenation of every fetched page.
type Listing struct {
	Records     []json.RawMessage
	ETag        string // first page's ETag, the listing's revalidation token
	NotModified bool
	Pages       int
}

// FetchPage fetches page (1-based) of resourcePath.
func (c *Client) FetchPage(ctx context.Context, resourcePath string, q Query, page int) (Page, error) {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	values := url.Values{}
	for k, v := range q.Values {
		values[k] = v
	}
	values.Set("per_page", strconv.Itoa(perPage))
	values.Set("page", strconv.Itoa(page))

	resp, err := c.Get(ctx, integrations.Request{
		Path:        resourcePath,
		Query:       values,
		IfNoneMatch: q.IfNoneMatch,
	})
	if err != nil {
		return Page{}, err
	}
	if resp.NotModified {
		return Page{ETag: resp.ETag(), NotModified: true}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(resp.Body, &records); err != nil {
		return Page{}, errors.Wrap(errors.ErrCodeUpstreamUnavailable, err, "decode %s page %d", resourcePath, page)
	}
	return Page{Records: records, ETag: resp.ETag()}, nil
}

// Paginate fetches pages sequentially until a page holds fewer than
// b.PerPage records or b.MaxPages pages have been fetched. Any page failure
// aborts the listing. A not-modified first page yields a NotModified listing.
func (c *Client) Paginate(ctx context.Context, resourcePath string, q Query, b Bounds) (Listing, error) {
	if b.PerPage <= 0 {
		b.PerPage = DefaultPerPage
	}
	if b.MaxPages <= 0 {
		b.MaxPages = 1
	}
	q.PerPage = b.PerPage

	var out Listing
	for page := 1; page <= b.MaxPages; page++ {
		p, err := c.FetchPage(ctx, resourcePath, q, page)
		if err != nil {
			return Listing{}, err
		}
		if page == 1 {
			if p.NotModified {
				return Listing{ETag: q.IfNoneMatch, NotModified: true, Pages: 1}, nil
			}
			out.ETag = p.ETag
			q.IfNoneMatch = ""
		}
		out.Records = append(out.Records, p.Records...)
		out.Pages = page
		if len(p.Records) < b.PerPage {
			break
		}
	}
	return out, nil
}

// ListUserRepos returns the repositories owned by username, most recently
// updated first.
func (c *Client) ListUserRepos(ctx context.Context, username string, b Bounds) ([]Repository, error) {
	values, err := integrations.EncodeQuery(RepoListOptions{Type: "owner", Sort: "updated"})
	if err != nil {
		return nil, err
	}
	path := "/users/" + url.PathEscape(username) + "/repos"
	l, err := c.Paginate(ctx, path, Query{Values: values}, b)
	if err != nil {
		return nil, err
	}
	return decodeRecords[Repository](l.Records)
}

// CommitListing is a decoded commit history.
type CommitListing struct {
	Commits     []Commit
	ETag        string
	NotModified bool
}

// ListCommits returns the commits of owner/repo, newest first. A zero since
// lists the whole (bounded) history. A non-empty etag makes the request
// conditional.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, since time.Time, b Bounds, etag string) (CommitListing, error) {
	opts := CommitListOptions{}
	if !since.IsZero() {
		s := since.UTC()
		opts.Since = &s
	}
	values, err := integrations.EncodeQuery(opts)
	if err != nil {
		return CommitListing{}, err
	}
	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/commits"
	l, err := c.Paginate(ctx, path, Query{Values: values, IfNoneMatch: etag}, b)
	if err != nil {
		return CommitListing{}, err
	}
	if l.NotModified {
		return CommitListing{ETag: l.ETag, NotModified: true}, nil
	}
	commits, err := decodeRecords[Commit](l.Records)
	if err != nil {
		return CommitListing{}, err
	}
	return CommitListing{Commits: commits, ETag: l.ETag}, nil
}

// FetchContent retrieves the raw content of a file from a repository.
// A non-empty etag makes the request conditional; an unchanged file yields
// Content{NotModified: true}.
func (c *Client) FetchContent(ctx context.Context, owner, repo, path, etag string) (Content, error) {
	if err := errors.ValidatePath(path); err != nil {
		return Content{}, err
	}
	resource := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/contents/" + escapePath(path)
	resp, err := c.Get(ctx, integrations.Request{
		Path:        resource,
		Accept:      mediaTypeRaw,
		IfNoneMatch: etag,
	})
	if err != nil {
		return Content{}, err
	}
	if resp.NotModified {
		return Content{Path: path, ETag: etag, NotModified: true}, nil
	}
	return Content{Path: path, Body: string(resp.Body), ETag: resp.ETag()}, nil
}

func decodeRecords[T any](records []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, r := range records {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, errors.Wrap(errors.ErrCodeUpstreamUnavailable, err, "decode record %d", i)
		}
		out = append(out, v)
	}
	return out, nil
}

// escapePath escapes each segment of a repository file path.
func escapePath(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
