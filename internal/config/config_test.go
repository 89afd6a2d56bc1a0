package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Cache.TTL != cache.DefaultTTL || cfg.Server.Addr != ":8000" || cfg.Server.CORSOrigin != "*" {
		t.Errorf("defaults = %+v", cfg)
	}
	repos, commits := cfg.GitHub.Bounds()
	if repos.MaxPages != 5 || commits.MaxPages != 10 || repos.PerPage != 100 {
		t.Errorf("bounds = %+v / %+v", repos, commits)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, `
[github]
token = "from-file"
repo_pages = 3

[cache]
ttl = "5m"
backend = "file"

[probe]
timeout = "2s"
concurrency = 4

[server]
cors_origin = "https://file.example"
`)

	cfg, err := load(path, envMap(map[string]string{
		"GITHUB_TOKEN": "from-env",
		"CACHE_TTL":    "30",
		"PORT":         "9090",
	}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"env overrides file token", cfg.GitHub.Token, "from-env"},
		{"env overrides file ttl", cfg.Cache.TTL, 30 * time.Second},
		{"file overrides default pages", cfg.GitHub.RepoPages, 3},
		{"default kept", cfg.GitHub.CommitPages, github.CommitPageBound},
		{"file backend", cfg.Cache.Backend, BackendFile},
		{"file probe timeout", cfg.Probe.Timeout, 2 * time.Second},
		{"file concurrency", cfg.Probe.Concurrency, 4},
		{"env port", cfg.Server.Addr, ":9090"},
		{"file cors", cfg.Server.CORSOrigin, "https://file.example"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := writeConfig(t, "[cache]\nprefix = \"staging:\"\n")
	cfg, err := load("", envMap(map[string]string{"SHOWCASE_CONFIG": path}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Prefix != "staging:" {
		t.Errorf("prefix = %q", cfg.Cache.Prefix)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		missing bool
		wantErr string
	}{
		{name: "explicit file missing", missing: true, wantErr: "no such file"},
		{name: "unknown key", file: "[cache]\nttl_seconds = 5\n", wantErr: "unknown keys: cache.ttl_seconds"},
		{name: "bad toml", file: "[cache\n", wantErr: "config"},
		{name: "bad ttl env", env: map[string]string{"CACHE_TTL": "ten"}, wantErr: "CACHE_TTL"},
		{name: "bad port env", env: map[string]string{"PORT": "http"}, wantErr: "PORT"},
		{name: "zero ttl", file: "[cache]\nttl = \"0s\"\n", wantErr: "cache.ttl must be positive"},
		{name: "bad backend", env: map[string]string{"CACHE_BACKEND": "memcached"}, wantErr: "cache.backend"},
		{name: "redis without url", env: map[string]string{"CACHE_BACKEND": "redis"}, wantErr: "REDIS_URL"},
		{name: "mongo without uri", file: "[cache]\nbackend = \"mongo\"\n", wantErr: "MONGO_URI"},
		{name: "page size too large", file: "[github]\nper_page = 500\n", wantErr: "per_page"},
		{name: "zero concurrency", file: "[probe]\nconcurrency = 0\n", wantErr: "probe.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.toml")
			if !tt.missing {
				path = writeConfig(t, tt.file)
			}
			_, err := load(path, envMap(tt.env))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  CacheConfig
		want string
	}{
		{"auto falls back", CacheConfig{Backend: BackendAuto}, BackendMemory},
		{"auto prefers redis", CacheConfig{Backend: BackendAuto, RedisURL: "redis://x", MongoURI: "mongodb://y"}, BackendRedis},
		{"auto uses mongo", CacheConfig{Backend: BackendAuto, MongoURI: "mongodb://y"}, BackendMongo},
		{"explicit wins", CacheConfig{Backend: BackendSQLite, RedisURL: "redis://x"}, BackendSQLite},
		{"empty is auto", CacheConfig{}, BackendMemory},
	}
	for _, tt := range tests {
		if got := tt.cfg.ResolveBackend(BackendMemory); got != tt.want {
			t.Errorf("%s: ResolveBackend = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestCachePaths(t *testing.T) {
	c := CacheConfig{Dir: "/tmp/showcase-cache"}
	if dir, _ := c.CacheDir(); dir != "/tmp/showcase-cache" {
		t.Errorf("CacheDir = %q", dir)
	}
	if p, _ := c.DatabasePath(); p != filepath.Join("/tmp/showcase-cache", "cache.db") {
		t.Errorf("DatabasePath = %q", p)
	}

	t.Setenv("XDG_CACHE_HOME", "/xdg")
	if dir, _ := (CacheConfig{}).CacheDir(); dir != filepath.Join("/xdg", "showcase") {
		t.Errorf("XDG CacheDir = %q", dir)
	}
	if p, _ := (CacheConfig{SQLitePath: "/data/c.db"}).DatabasePath(); p != "/data/c.db" {
		t.Errorf("explicit DatabasePath = %q", p)
	}
}
