package aggregator

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/errors"
)

func abHarness(t *testing.T) *harness {
	t.Helper()
	return newHarness(t, WithDocumentPaths(DocumentProgress, []string{"a.md", "b.md"}))
}

var progressQuery = DocumentQuery{Kind: DocumentProgress, Owner: "o", Repo: "r"}

func TestFetchDocumentSecondCandidate(t *testing.T) {
	h := abHarness(t)
	h.gh.files["b.md"] = "# B notes"

	res, status, err := h.agg.FetchDocument(context.Background(), progressQuery)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found() || status != cache.StatusMiss {
		t.Fatalf("result = %+v, status %s", res, status)
	}
	if res.Document.Path == nil || *res.Document.Path != "b.md" || res.Document.Content != "# B notes" {
		t.Errorf("document = %+v", res.Document)
	}

	data, _ := json.Marshal(res.Document)
	if string(data) != `{"path":"b.md","content":"# B notes"}` {
		t.Errorf("json = %s", data)
	}
}

func TestFetchDocumentFirstCandidateWins(t *testing.T) {
	h := abHarness(t)
	h.gh.files["a.md"] = "A"
	h.gh.files["b.md"] = "B"

	res, _, err := h.agg.FetchDocument(context.Background(), progressQuery)
	if err != nil {
		t.Fatal(err)
	}
	if *res.Document.Path != "a.md" {
		t.Errorf("path = %s, want a.md", *res.Document.Path)
	}
	if n := h.gh.count("/repos/o/r/contents/b.md"); n != 0 {
		t.Errorf("b.md fetched %d times after a.md succeeded", n)
	}
}

func TestFetchDocumentEmpty(t *testing.T) {
	h := abHarness(t)
	ctx := context.Background()

	res, status, err := h.agg.FetchDocument(ctx, progressQuery)
	if err != nil {
		t.Fatalf("missing document should not be an error: %v", err)
	}
	if res.State != DocumentEmpty || res.Found() || status != cache.StatusMiss {
		t.Errorf("result = %+v, status %s", res, status)
	}
	data, _ := json.Marshal(res.Document)
	if string(data) != `{"path":null,"content":""}` {
		t.Errorf("json = %s", data)
	}

	if _, status, _ := h.agg.FetchDocument(ctx, progressQuery); status != cache.StatusHit {
		t.Errorf("empty result should be cached, status = %s", status)
	}
}

func TestFetchDocumentOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]int
		wantCode errors.Code
		cached   bool
	}{
		{"all missing", map[string]int{"a.md": 404, "b.md": 404}, "", true},
		{"all rate limited", map[string]int{"a.md": 403, "b.md": 429}, errors.ErrCodeRateLimited, false},
		{"missing and rate limited", map[string]int{"a.md": 404, "b.md": 403}, "", true},
		{"server error", map[string]int{"a.md": 500, "b.md": 404}, errors.ErrCodeUpstreamUnavailable, false},
		{"client error", map[string]int{"a.md": 404, "b.md": 401}, errors.ErrCodeUpstreamUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := abHarness(t)
			h.gh.statuses = tt.statuses

			res, _, err := h.agg.FetchDocument(context.Background(), progressQuery)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("err = %v, want empty result", err)
				}
				if res.Found() {
					t.Errorf("result = %+v, want empty", res)
				}
			} else if !errors.Is(err, tt.wantCode) {
				t.Fatalf("err = %v, want %s", err, tt.wantCode)
			}
			if got := len(h.keys(t)) == 1; got != tt.cached {
				t.Errorf("cached = %v, want %v", got, tt.cached)
			}
		})
	}
}

func TestFetchDocumentUpstreamStatusKept(t *testing.T) {
	h := abHarness(t)
	h.gh.statuses = map[string]int{"a.md": http.StatusServiceUnavailable}

	_, _, err := h.agg.FetchDocument(context.Background(), progressQuery)
	if got := errors.HTTPStatus(err); got != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %d, want 502", got)
	}
}

func TestFetchDocumentRevalidatesStoredPath(t *testing.T) {
	h := abHarness(t)
	h.gh.files["b.md"] = "B"
	ctx := context.Background()

	if _, _, err := h.agg.FetchDocument(ctx, progressQuery); err != nil {
		t.Fatal(err)
	}
	before := h.gh.count("/repos/")

	h.clock.Advance(2 * time.Minute)
	res, status, err := h.agg.FetchDocument(ctx, progressQuery)
	if err != nil {
		t.Fatal(err)
	}
	if status != cache.StatusRevalidated || res.Document.Content != "B" {
		t.Errorf("status %s, document %+v", status, res.Document)
	}
	// a.md is re-checked, then b.md answers 304
	if n := h.gh.count("/repos/") - before; n != 2 {
		t.Errorf("revalidation made %d requests, want 2", n)
	}
	if n := h.gh.count("/repos/o/r/contents/b.md"); n != 2 {
		t.Errorf("b.md requested %d times, want 2", n)
	}
}

func TestFetchDocumentHigherPriorityAppears(t *testing.T) {
	h := abHarness(t)
	h.gh.files["b.md"] = "B"
	ctx := context.Background()

	if _, _, err := h.agg.FetchDocument(ctx, progressQuery); err != nil {
		t.Fatal(err)
	}
	h.gh.mu.Lock()
	h.gh.files["a.md"] = "A"
	h.gh.mu.Unlock()
	h.clock.Advance(2 * time.Minute)

	res, status, err := h.agg.FetchDocument(ctx, progressQuery)
	if err != nil {
		t.Fatal(err)
	}
	if status != cache.StatusMiss || *res.Document.Path != "a.md" || res.Document.Content != "A" {
		t.Errorf("status %s, document %+v", status, res.Document)
	}
	entry, _ := h.agg.Store().Get(ctx, h.agg.keyer.DocumentKey(string(DocumentProgress), "o", "r"))
	if entry.SourcePath != "a.md" {
		t.Errorf("entry path %q, want a.md", entry.SourcePath)
	}
}

func TestFetchDocumentMoved(t *testing.T) {
	h := abHarness(t)
	h.gh.files["b.md"] = "B"
	ctx := context.Background()

	if _, _, err := h.agg.FetchDocument(ctx, progressQuery); err != nil {
		t.Fatal(err)
	}
	h.gh.mu.Lock()
	delete(h.gh.files, "b.md")
	h.gh.files["a.md"] = "A"
	h.gh.mu.Unlock()
	h.clock.Advance(2 * time.Minute)

	res, status, err := h.agg.FetchDocument(ctx, progressQuery)
	if err != nil {
		t.Fatal(err)
	}
	if status != cache.StatusMiss || *res.Document.Path != "a.md" {
		t.Errorf("status %s, document %+v", status, res.Document)
	}
	entry, _ := h.agg.Store().Get(ctx, h.agg.keyer.DocumentKey(string(DocumentProgress), "o", "r"))
	if entry.SourcePath != "a.md" || entry.Token != `"a.md"` {
		t.Errorf("entry path %q token %q", entry.SourcePath, entry.Token)
	}
}

func TestFetchDocumentRejectsTraversalCandidate(t *testing.T) {
	h := newHarness(t, WithDocumentPaths(DocumentProgress, []string{"../x.md", "progress.md"}))
	h.gh.files["progress.md"] = "notes"

	_, _, err := h.agg.FetchDocument(context.Background(), progressQuery)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if got := errors.HTTPStatus(err); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want 400", got)
	}
	if n := h.gh.count("/repos/"); n != 0 {
		t.Errorf("made %d upstream requests, want 0", n)
	}
}

func TestFetchDocumentFrontMatter(t *testing.T) {
	h := newHarness(t, WithDocumentPaths(DocumentCaseStudy, []string{"docs/CASESTUDY.md"}))
	h.gh.files["docs/CASESTUDY.md"] = "---\ntitle: Showcase\ntags: [go, cache]\n---\n# Case study\n"

	res, _, err := h.agg.FetchDocument(context.Background(), DocumentQuery{Kind: DocumentCaseStudy, Owner: "o", Repo: "r"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Document.FrontMatter["title"] != "Showcase" {
		t.Errorf("front matter = %v", res.Document.FrontMatter)
	}
	if res.Document.Body != "# Case study\n" {
		t.Errorf("body = %q", res.Document.Body)
	}
	if res.Document.Content != h.gh.files["docs/CASESTUDY.md"] {
		t.Error("content should be the raw file")
	}
}

func TestFetchDocumentInvalid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, _, err := h.agg.FetchDocument(ctx, DocumentQuery{Kind: "readme", Owner: "o", Repo: "r"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown kind err = %v", err)
	}
	if _, _, err := h.agg.FetchDocument(ctx, DocumentQuery{Kind: DocumentProgress, Owner: "o"}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing repo err = %v", err)
	}
}

func TestParseDocumentKind(t *testing.T) {
	tests := map[string]DocumentKind{
		"progress":     DocumentProgress,
		" Case-Study ": DocumentCaseStudy,
		"readme":       "",
	}
	for in, want := range tests {
		got, err := ParseDocumentKind(in)
		if got != want || (err == nil) != (want != "") {
			t.Errorf("ParseDocumentKind(%q) = %q, %v", in, got, err)
		}
	}
	if !DocumentCaseStudy.Required() || DocumentProgress.Required() {
		t.Error("only case studies are required")
	}
}
