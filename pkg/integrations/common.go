package integrations

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds one upstream request.
const DefaultTimeout = 15 * time.Second

// NewHTTPClient creates an HTTP client with the given per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewAuthHTTPClient creates an HTTP client that sends token as a bearer
// credential on every request. An empty token yields a plain client, which
// is legal and only lowers upstream rate limits.
func NewAuthHTTPClient(token string, timeout time.Duration) *http.Client {
	if token == "" {
		return NewHTTPClient(timeout)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: src,
			Base:   http.DefaultTransport,
		},
	}
}

// EncodeQuery converts an options struct tagged with `url:"..."` into query
// values. A nil opts yields empty values.
func EncodeQuery(opts any) (url.Values, error) {
	if opts == nil {
		return url.Values{}, nil
	}
	return query.Values(opts)
}
