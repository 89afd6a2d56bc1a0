package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNewAndWrap(t *testing.T) {
	err := New(ErrCodeInvalidInput, "unknown sort mode %q", "size")
	if err.Code != ErrCodeInvalidInput || err.Message != `unknown sort mode "size"` {
		t.Errorf("New = %+v", err)
	}
	if got, want := err.Error(), `INVALID_INPUT: unknown sort mode "size"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("dial tcp: connection refused")
	wrapped := Wrap(ErrCodeNetwork, cause, "list repositories of %s", "octocat")
	if got, want := wrapped.Error(), "NETWORK_ERROR: list repositories of octocat: dial tcp: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if errors.Unwrap(wrapped) != cause || !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}

	up := Upstream(http.StatusBadGateway, "github answered %d", 502)
	if up.Code != ErrCodeUpstreamUnavailable || up.Status != http.StatusBadGateway {
		t.Errorf("Upstream = %+v", up)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeInvalidInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeNetwork,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeNetwork, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeNetwork,
			expected: true,
		},
		{
			name:     "fmt wrapped",
			err:      wrapf(RateLimited(nil)),
			code:     ErrCodeRateLimited,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeNotFound, "test"), ErrCodeNotFound},
		{"upstream", Upstream(502, "bad gateway"), ErrCodeUpstreamUnavailable},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", New(ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{"not found", New(ErrCodeNotFound, "x"), http.StatusNotFound},
		{"rate limited", RateLimited(&RateLimitedError{RetryAfter: 30}), http.StatusTooManyRequests},
		{"network", New(ErrCodeNetwork, "x"), http.StatusGatewayTimeout},
		{"upstream 500", Upstream(500, "x"), http.StatusBadGateway},
		{"upstream 422", Upstream(422, "x"), 422},
		{"upstream no status", New(ErrCodeUpstreamUnavailable, "x"), http.StatusBadGateway},
		{"internal", New(ErrCodeInternal, "x"), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimitedError(t *testing.T) {
	t.Run("with retry after", func(t *testing.T) {
		err := &RateLimitedError{RetryAfter: 60}
		expected := "rate limited: retry after 60 seconds"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("without retry after", func(t *testing.T) {
		err := &RateLimitedError{}
		expected := "rate limited"
		if err.Error() != expected {
			t.Errorf("Error() = %v, want %v", err.Error(), expected)
		}
	})

	t.Run("code method", func(t *testing.T) {
		err := &RateLimitedError{}
		if err.Code() != ErrCodeRateLimited {
			t.Errorf("Code() = %v, want %v", err.Code(), ErrCodeRateLimited)
		}
	})

	t.Run("cause is reachable", func(t *testing.T) {
		err := RateLimited(&RateLimitedError{RetryAfter: 5})
		var rl *RateLimitedError
		if !errors.As(err, &rl) || rl.RetryAfter != 5 {
			t.Errorf("errors.As(RateLimitedError) failed for %v", err)
		}
	})
}

func wrapf(err error) error {
	return &wrapped{err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "context: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
