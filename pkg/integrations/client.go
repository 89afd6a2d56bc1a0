package integrations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/errors"
	"github.com/gundaminthecode/showcase/pkg/observability"
)

// maxBodyBytes caps how much of one upstream response is read.
const maxBodyBytes = 10 << 20

// Client provides shared HTTP functionality for upstream API clients.
// It applies default headers, maps response statuses to the error taxonomy
// and reports every request through the observability hooks. It never
// retries: callers decide what a failure means.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
}

// NewClient creates a Client rooted at baseURL. Headers are applied to all
// requests made through this client; pass nil when none are needed.
// A nil httpClient uses [NewHTTPClient] with the default timeout.
func NewClient(httpClient *http.Client, baseURL string, headers map[string]string) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
	}
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Request describes one GET against the upstream API.
type Request struct {
	Path        string     // resource path, e.g. "/users/octocat/repos"
	Query       url.Values // encoded into the query string
	Accept      string     // overrides the default Accept header when set
	IfNoneMatch string     // conditional request token
}

// Response is a successful (2xx) or not-modified (304) upstream response.
type Response struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	NotModified bool
}

// ETag returns the response's entity tag, if any.
func (r *Response) ETag() string { return r.Header.Get("ETag") }

// Get performs req and returns the response body. Non-success statuses are
// returned as *errors.Error values; see [CheckStatus].
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "build request for %s", req.Path)
	}
	for k, v := range c.headers {
		hr.Header.Set(k, v)
	}
	if req.Accept != "" {
		hr.Header.Set("Accept", req.Accept)
	}
	if req.IfNoneMatch != "" {
		hr.Header.Set("If-None-Match", req.IfNoneMatch)
	}

	hooks := observability.HTTP()
	host := hr.URL.Host
	hooks.OnRequest(ctx, http.MethodGet, host, req.Path)
	start := time.Now()

	resp, err := c.http.Do(hr)
	if err != nil {
		hooks.OnError(ctx, http.MethodGet, host, req.Path, err)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "request %s", req.Path)
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, http.MethodGet, host, req.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotModified {
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, NotModified: true}, nil
	}
	if err := CheckStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read %s", req.Path)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// CheckStatus maps a non-success response to the error taxonomy:
//
//	403, 429 → RATE_LIMITED
//	404      → NOT_FOUND
//	other    → UPSTREAM_UNAVAILABLE carrying the status
func CheckStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusForbidden || code == http.StatusTooManyRequests:
		return errors.RateLimited(&errors.RateLimitedError{
			RetryAfter: retryAfter(resp.Header, time.Now()),
			Message:    resp.Status,
		})
	case code == http.StatusNotFound:
		e := errors.New(errors.ErrCodeNotFound, "%s not found upstream", requestPath(resp))
		e.Status = code
		return e
	default:
		return errors.Upstream(code, "upstream returned %s", statusText(resp))
	}
}

// retryAfter reads Retry-After (seconds) or X-RateLimit-Reset (Unix time).
func retryAfter(h http.Header, now time.Time) int {
	if s, err := strconv.Atoi(h.Get("Retry-After")); err == nil && s > 0 {
		return s
	}
	if reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64); err == nil {
		if d := time.Unix(reset, 0).Sub(now); d > 0 {
			return int(d.Round(time.Second) / time.Second)
		}
	}
	return 0
}

func statusText(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}

func requestPath(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return "resource"
	}
	return resp.Request.URL.Path
}
