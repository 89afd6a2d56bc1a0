package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
)

// fakeGitHub serves one user's repositories, one repository's commits and
// its files.
type fakeGitHub struct {
	mu      sync.Mutex
	site    string // live homepage for every repository
	files   map[string]string
	since   []string
	repoHit int
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/users/octocat/repos":
		f.repoHit++
		repos := []map[string]any{}
		if r.URL.Query().Get("page") == "1" {
			repos = []map[string]any{
				{
					"id": 1, "name": "tower", "full_name": "octocat/tower",
					"html_url": "https://github.com/octocat/tower", "owner": map[string]any{"login": "octocat"},
					"stargazers_count": 3, "updated_at": "2024-04-01T00:00:00Z", "homepage": f.site,
					"language": "Go",
				},
				{
					"id": 2, "name": "notes", "full_name": "octocat/notes",
					"html_url": "https://github.com/octocat/notes", "owner": map[string]any{"login": "octocat"},
					"stargazers_count": 9, "updated_at": "2024-03-01T00:00:00Z", "homepage": f.site,
				},
			}
		}
		json.NewEncoder(w).Encode(repos)

	case r.URL.Path == "/repos/octocat/tower/commits":
		f.since = append(f.since, r.URL.Query().Get("since"))
		commits := []map[string]any{}
		if r.URL.Query().Get("page") == "1" {
			commits = []map[string]any{
				{
					"sha": "abc1234deadbeef", "html_url": "https://github.com/octocat/tower/commit/abc1234",
					"commit": map[string]any{
						"message": "Wire the cache\n\nlonger body",
						"author":  map[string]any{"name": "Ada", "date": "2024-03-02T08:00:00Z"},
					},
				},
			}
		}
		w.Header().Set("ETag", `"c1"`)
		json.NewEncoder(w).Encode(commits)

	case strings.HasPrefix(r.URL.Path, "/repos/octocat/tower/contents/"):
		path := strings.TrimPrefix(r.URL.Path, "/repos/octocat/tower/contents/")
		body, ok := f.files[path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", `"`+path+`"`)
		io.WriteString(w, body)

	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	gh       *fakeGitHub
	site     *httptest.Server
	config   string
	cacheDir string
}

// newTestEnv points the CLI at a fake GitHub and an isolated file cache.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	t.Cleanup(site.Close)

	gh := &fakeGitHub{site: site.URL, files: map[string]string{}}
	api := httptest.NewServer(gh)
	t.Cleanup(api.Close)

	env := &testEnv{gh: gh, site: site, cacheDir: t.TempDir()}
	env.config = filepath.Join(t.TempDir(), "config.toml")
	body := "[probe]\ntimeout = \"500ms\"\n\n[cache]\nbackend = \"file\"\n"
	if err := os.WriteFile(env.config, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	for k, v := range map[string]string{
		"GITHUB_API_URL":  api.URL,
		"GITHUB_TOKEN":    "",
		"CACHE_DIR":       env.cacheDir,
		"CACHE_BACKEND":   "",
		"CACHE_PREFIX":    "",
		"REDIS_URL":       "",
		"MONGO_URI":       "",
		"SHOWCASE_CONFIG": "",
		"XDG_CONFIG_HOME": t.TempDir(),
	} {
		t.Setenv(k, v)
	}
	return env
}

// run executes one CLI invocation and returns its standard output.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &CLI{Logger: log.New(io.Discard), Out: &out, Err: io.Discard}
	root := c.RootCommand()
	root.SetArgs(append([]string{"--config", e.config}, args...))
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestReposCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "repos", "octocat", "--sort", "stars")
	for _, want := range []string{"octocat/tower", "octocat/notes", env.site.URL, "2 repositories", "MISS"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "octocat/notes") > strings.Index(out, "octocat/tower") {
		t.Errorf("stars sort should list notes first:\n%s", out)
	}

	out = env.mustRun(t, "repos", "OctoCat", "--sort", "stars")
	if !strings.Contains(out, "HIT") {
		t.Errorf("second run should be served from the file cache:\n%s", out)
	}
	if env.gh.repoHit != 1 {
		t.Errorf("upstream listed repositories %d times, want 1", env.gh.repoHit)
	}
}

func TestReposJSON(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "repos", "octocat", "--json")
	var repos []map[string]any
	if err := json.Unmarshal([]byte(out), &repos); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(repos) != 2 || repos[0]["full_name"] != "octocat/tower" {
		t.Fatalf("repos = %v", repos)
	}
	if repos[0]["live_url"] != env.site.URL {
		t.Errorf("live_url = %v, want %s", repos[0]["live_url"], env.site.URL)
	}
}

func TestNoCacheFlag(t *testing.T) {
	env := newTestEnv(t)

	for range 2 {
		out := env.mustRun(t, "--no-cache", "repos", "octocat")
		if !strings.Contains(out, "MISS") {
			t.Errorf("--no-cache output:\n%s", out)
		}
	}
	if env.gh.repoHit != 2 {
		t.Errorf("upstream listed repositories %d times, want 2", env.gh.repoHit)
	}
	if out := env.mustRun(t, "cache", "inspect"); strings.TrimSpace(out) != "" {
		t.Errorf("--no-cache wrote entries:\n%s", out)
	}
}

func TestCommitsCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "commits", "octocat/tower", "--since", "2024-01-01T15:00:00Z")
	for _, want := range []string{"octocat/tower", "abc1234", "Wire the cache", "Ada", "1 commits"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "longer body") {
		t.Error("only the commit title should be printed")
	}
	if len(env.gh.since) == 0 || env.gh.since[0] != "2024-01-01T00:00:00Z" {
		t.Errorf("upstream since = %v, want the start of the day", env.gh.since)
	}

	if _, err := env.run(t, "commits", "not-a-ref"); err == nil {
		t.Error("expected an error for a malformed repository reference")
	}
	if _, err := env.run(t, "commits", "octocat/tower", "--since", "yesterday"); err == nil {
		t.Error("expected an error for an invalid since")
	}
}

func TestDocCommand(t *testing.T) {
	env := newTestEnv(t)
	env.gh.files["docs/PROGRESS.md"] = "---\ntitle: Tower log\n---\n[abc1234] - wired the cache\n"

	out := env.mustRun(t, "doc", "progress", "octocat/tower")
	for _, want := range []string{"docs/PROGRESS.md", "Tower log", "[abc1234] - wired the cache"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "---") {
		t.Errorf("front matter fences should not be printed:\n%s", out)
	}

	out = env.mustRun(t, "doc", "case-study", "octocat/tower", "--paths")
	if !strings.HasPrefix(out, "docs/CASESTUDY.md\n") {
		t.Errorf("paths output:\n%s", out)
	}

	if _, err := env.run(t, "doc", "case-study", "octocat/tower"); err == nil || !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("missing case study err = %v", err)
	}
	if _, err := env.run(t, "doc", "readme", "octocat/tower"); err == nil {
		t.Error("expected an error for an unknown document kind")
	}
}

func TestDocCommandEmptyProgress(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "doc", "progress", "octocat/tower", "--json")
	if got := strings.TrimSpace(out); got != `{
  "path": null,
  "content": ""
}` {
		t.Errorf("empty progress JSON = %s", got)
	}
}

func TestActivityCommand(t *testing.T) {
	env := newTestEnv(t)
	env.gh.files["progress.md"] = "## [abc1234]\nFirst cut of the cache.\n"

	out := env.mustRun(t, "activity", "octocat/tower", "--since", "2024-01-01", "--json")
	var act struct {
		Total  int               `json:"total"`
		Counts map[string]int    `json:"counts"`
		Blurbs map[string]string `json:"blurbs"`
	}
	if err := json.Unmarshal([]byte(out), &act); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if act.Total != 1 || act.Counts["2024-03-02"] != 1 {
		t.Errorf("activity = %+v", act)
	}
	if act.Blurbs["abc1234"] != "First cut of the cache." {
		t.Errorf("blurbs = %v", act.Blurbs)
	}

	out = env.mustRun(t, "activity", "octocat/tower", "--since", "2024-01-01")
	for _, want := range []string{"2024-03-02", "Wire the cache", "First cut of the cache."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProbeCommand(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "probe", "--urls", env.site.URL+"/down", env.site.URL+"/up", "ftp://example.com")
	if !strings.Contains(out, iconSuccess+" "+env.site.URL+"/up") {
		t.Errorf("live URL not reported:\n%s", out)
	}
	if strings.Count(out, iconError) != 2 {
		t.Errorf("want two dead candidates:\n%s", out)
	}

	out = env.mustRun(t, "probe", "--urls", env.site.URL+"/down")
	if !strings.Contains(out, "no live site") {
		t.Errorf("output:\n%s", out)
	}

	if _, err := env.run(t, "probe", "a", "b"); err == nil {
		t.Error("expected an error for two repository arguments")
	}
}

func TestCompletionCommand(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "completion", "bash")
	if !strings.Contains(out, "showcase") {
		t.Errorf("bash completion does not mention the binary")
	}
	if _, err := env.run(t, "completion", "tcsh"); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}

func TestBadConfig(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.config, []byte("[cache]\nttl = \"0s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.run(t, "repos", "octocat"); err == nil || !strings.Contains(err.Error(), "cache.ttl") {
		t.Errorf("err = %v", err)
	}
}
