package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gundaminthecode/showcase/pkg/errors"
)

func testClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	return NewClient(token, WithBaseURL(baseURL), WithTimeout(5*time.Second), WithUserAgent("showcase/test"))
}

func TestClientHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := map[string]string{
			"Accept":               mediaTypeJSON,
			"X-Github-Api-Version": APIVersion,
			"User-Agent":           "showcase/test",
			"Authorization":        "Bearer tok",
		}
		for k, v := range want {
			if got := r.Header.Get(k); got != v {
				t.Errorf("header %s = %q, want %q", k, got, v)
			}
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := testClient(t, server.URL, "tok")
	if _, err := c.FetchPage(context.Background(), "/users/x/repos", Query{}, 1); err != nil {
		t.Fatal(err)
	}
}

func TestClientNoTokenNoAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("Authorization = %q, want none", auth)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := testClient(t, server.URL, "").FetchPage(context.Background(), "/x", Query{}, 1); err != nil {
		t.Fatal(err)
	}
}

// pagedServer serves total records in pages and records the pages requested.
func pagedServer(t *testing.T, total int, requested *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		*requested = append(*requested, page)

		start := (page - 1) * perPage
		var recs []map[string]int
		for i := start; i < total && i < start+perPage; i++ {
			recs = append(recs, map[string]int{"id": i})
		}
		if recs == nil {
			recs = []map[string]int{}
		}
		w.Header().Set("ETag", fmt.Sprintf(`"page-%d"`, page))
		json.NewEncoder(w).Encode(recs)
	}))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		bounds    Bounds
		wantPages []int
		wantLen   int
	}{
		{"short first page", 3, Bounds{PerPage: 10, MaxPages: 5}, []int{1}, 3},
		{"stops at short page", 25, Bounds{PerPage: 10, MaxPages: 5}, []int{1, 2, 3}, 25},
		{"exact multiple fetches empty page", 20, Bounds{PerPage: 10, MaxPages: 5}, []int{1, 2, 3}, 20},
		{"bounded", 1000, Bounds{PerPage: 10, MaxPages: 5}, []int{1, 2, 3, 4, 5}, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requested []int
			server := pagedServer(t, tt.total, &requested)
			defer server.Close()

			l, err := testClient(t, server.URL, "").Paginate(context.Background(), "/things", Query{}, tt.bounds)
			if err != nil {
				t.Fatalf("Paginate: %v", err)
			}
			if len(l.Records) != tt.wantLen {
				t.Errorf("records = %d, want %d", len(l.Records), tt.wantLen)
			}
			if fmt.Sprint(requested) != fmt.Sprint(tt.wantPages) {
				t.Errorf("pages requested = %v, want %v", requested, tt.wantPages)
			}
			if l.ETag != `"page-1"` {
				t.Errorf("listing ETag = %q, want first page's", l.ETag)
			}
		})
	}
}

func TestPaginateRateLimitedMidway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		recs := make([]struct{}, 10)
		json.NewEncoder(w).Encode(recs)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, "").Paginate(context.Background(), "/x", Query{}, Bounds{PerPage: 10, MaxPages: 5})
	if !errors.Is(err, errors.ErrCodeRateLimited) {
		t.Errorf("err = %v, want RATE_LIMITED", err)
	}
}

func TestPaginateNotModified(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	l, err := testClient(t, server.URL, "").Paginate(context.Background(), "/x", Query{IfNoneMatch: `"v1"`}, Bounds{PerPage: 10, MaxPages: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !l.NotModified || l.ETag != `"v1"` || calls != 1 {
		t.Errorf("listing = %+v after %d calls", l, calls)
	}
}

func TestListUserRepos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/repos" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("type") != "owner" || q.Get("sort") != "updated" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"name":"hello","fork":false,"stargazers_count":3,"homepage":null,"owner":{"login":"octocat"},"updated_at":"2024-01-02T03:04:05Z"}]`))
	}))
	defer server.Close()

	repos, err := testClient(t, server.URL, "").ListUserRepos(context.Background(), "octocat", Bounds{PerPage: 100, MaxPages: RepoPageBound})
	if err != nil {
		t.Fatal(err)
	}
	if len(repos) != 1 {
		t.Fatalf("repos = %d", len(repos))
	}
	r := repos[0]
	if r.Name != "hello" || r.Stars != 3 || r.Homepage != nil || r.Owner.Login != "octocat" {
		t.Errorf("repo = %+v", r)
	}
	if r.UpdatedAt == nil || r.UpdatedAt.Year() != 2024 {
		t.Errorf("UpdatedAt = %v", r.UpdatedAt)
	}
}

func TestListCommitsSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != "2024-03-01T00:00:00Z" {
			t.Errorf("since = %q", got)
		}
		w.Header().Set("ETag", `"c1"`)
		w.Write([]byte(`[{"sha":"abc","commit":{"message":"init","author":{"name":"A","date":"2024-03-02T00:00:00Z"}},"author":null,"committer":null}]`))
	}))
	defer server.Close()

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l, err := testClient(t, server.URL, "").ListCommits(context.Background(), "o", "r", since, Bounds{PerPage: 100, MaxPages: CommitPageBound}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Commits) != 1 || l.Commits[0].SHA != "abc" || l.Commits[0].Author != nil {
		t.Errorf("commits = %+v", l.Commits)
	}
	if l.ETag != `"c1"` {
		t.Errorf("ETag = %q", l.ETag)
	}
}

func TestFetchContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != mediaTypeRaw {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		switch r.URL.Path {
		case "/repos/o/r/contents/docs/progress.md":
			if r.Header.Get("If-None-Match") == `"d1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"d1"`)
			w.Write([]byte("# Progress"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL, "")
	ctx := context.Background()

	got, err := c.FetchContent(ctx, "o", "r", "docs/progress.md", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Body != "# Progress" || got.ETag != `"d1"` || got.Path != "docs/progress.md" {
		t.Errorf("content = %+v", got)
	}

	got, err = c.FetchContent(ctx, "o", "r", "docs/progress.md", `"d1"`)
	if err != nil {
		t.Fatal(err)
	}
	if !got.NotModified || got.Body != "" {
		t.Errorf("conditional content = %+v", got)
	}

	_, err = c.FetchContent(ctx, "o", "r", "missing.md", "")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing file err = %v, want NOT_FOUND", err)
	}
}

func TestFetchContentRejectsUnsafePaths(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	c := testClient(t, server.URL, "")
	for _, p := range []string{"../x.md", "docs/../../secrets.md", "/etc/passwd", `docs\progress.md`, ""} {
		_, err := c.FetchContent(context.Background(), "o", "r", p, "")
		if !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("FetchContent(%q) err = %v, want INVALID_INPUT", p, err)
		}
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("unsafe paths reached upstream %d times", n)
	}
}

func TestFetchPageBadPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"not a list"}`))
	}))
	defer server.Close()

	_, err := testClient(t, server.URL, "").FetchPage(context.Background(), "/x", Query{}, 1)
	if !errors.Is(err, errors.ErrCodeUpstreamUnavailable) {
		t.Errorf("err = %v, want UPSTREAM_UNAVAILABLE", err)
	}
}

func TestEscapePath(t *testing.T) {
	tests := map[string]string{
		"progress.md":         "progress.md",
		"/docs/CASESTUDY.md":  "docs/CASESTUDY.md",
		"docs/my notes.md":    "docs/my%20notes.md",
		".github/PROGRESS.md": ".github/PROGRESS.md",
	}
	for in, want := range tests {
		if got := escapePath(in); got != want {
			t.Errorf("escapePath(%q) = %q, want %q", in, got, want)
		}
	}
}
