// Package config loads showcase settings from defaults, an optional TOML
// file, and the environment, in that order of precedence (later wins).
// Command-line flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/integrations"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
	"github.com/gundaminthecode/showcase/pkg/probe"
)

const appName = "showcase"

// Cache backend kinds.
const (
	BackendAuto   = "auto"
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

var backends = []string{BackendAuto, BackendMemory, BackendFile, BackendRedis, BackendSQLite, BackendMongo, BackendNone}

// Config holds every tunable of the proxy and CLI.
type Config struct {
	GitHub GitHubConfig `toml:"github"`
	Cache  CacheConfig  `toml:"cache"`
	Probe  ProbeConfig  `toml:"probe"`
	Server ServerConfig `toml:"server"`
}

// GitHubConfig configures the upstream client.
type GitHubConfig struct {
	Token       string        `toml:"token"`
	BaseURL     string        `toml:"base_url"`
	Timeout     time.Duration `toml:"timeout"`
	PerPage     int           `toml:"per_page"`
	RepoPages   int           `toml:"repo_pages"`
	CommitPages int           `toml:"commit_pages"`
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend        string        `toml:"backend"`
	TTL            time.Duration `toml:"ttl"`
	StaleRetention time.Duration `toml:"stale_retention"`
	ComputeTimeout time.Duration `toml:"compute_timeout"`
	Prefix         string        `toml:"prefix"`

	Capacity   int    `toml:"capacity"`
	Dir        string `toml:"dir"`
	RedisURL   string `toml:"redis_url"`
	SQLitePath string `toml:"sqlite_path"`
	MongoURI   string `toml:"mongo_uri"`
	MongoDB    string `toml:"mongo_database"`
}

// ProbeConfig tunes live-site probing.
type ProbeConfig struct {
	Timeout     time.Duration `toml:"timeout"`
	Concurrency int           `toml:"concurrency"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	CORSOrigin string `toml:"cors_origin"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GitHub: GitHubConfig{
			BaseURL:     github.DefaultBaseURL,
			Timeout:     integrations.DefaultTimeout,
			PerPage:     github.DefaultPerPage,
			RepoPages:   github.RepoPageBound,
			CommitPages: github.CommitPageBound,
		},
		Cache: CacheConfig{
			Backend:        BackendAuto,
			TTL:            cache.DefaultTTL,
			StaleRetention: 24 * time.Hour,
			ComputeTimeout: cache.DefaultComputeTimeout,
			Capacity:       1024,
			MongoDB:        appName,
		},
		Probe: ProbeConfig{
			Timeout:     probe.DefaultTimeout,
			Concurrency: probe.DefaultConcurrency,
		},
		Server: ServerConfig{
			Addr:       ":8000",
			CORSOrigin: "*",
		},
	}
}

// Load builds the configuration. path names a TOML file that must exist;
// when empty, $SHOWCASE_CONFIG is used, then the default path if present.
func Load(path string) (*Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p := getenv("SHOWCASE_CONFIG"); p != "" {
			path, explicit = p, true
		} else if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// applyEnv overlays the environment variables the deployment recognizes.
func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := getenv("GITHUB_API_URL"); v != "" {
		c.GitHub.BaseURL = v
	}
	if v := getenv("CACHE_TTL"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: want seconds, got %q", v)
		}
		c.Cache.TTL = time.Duration(secs) * time.Second
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := getenv("CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv("CACHE_PREFIX"); v != "" {
		c.Cache.Prefix = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if v := getenv("MONGO_URI"); v != "" {
		c.Cache.MongoURI = v
	}
	if v := getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("PORT: want a number, got %q", v)
		}
		c.Server.Addr = ":" + v
	}
	if v := getenv("CORS_ORIGIN"); v != "" {
		c.Server.CORSOrigin = v
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d))
		}
	}
	atLeastOne := func(name string, n int) {
		if n < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", name, n))
		}
	}

	positive("github.timeout", c.GitHub.Timeout)
	positive("cache.ttl", c.Cache.TTL)
	positive("cache.stale_retention", c.Cache.StaleRetention)
	positive("cache.compute_timeout", c.Cache.ComputeTimeout)
	positive("probe.timeout", c.Probe.Timeout)
	atLeastOne("github.per_page", c.GitHub.PerPage)
	atLeastOne("github.repo_pages", c.GitHub.RepoPages)
	atLeastOne("github.commit_pages", c.GitHub.CommitPages)
	atLeastOne("probe.concurrency", c.Probe.Concurrency)

	if c.GitHub.PerPage > 100 {
		errs = append(errs, fmt.Errorf("github.per_page must be at most 100, got %d", c.GitHub.PerPage))
	}
	if c.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must not be negative, got %d", c.Cache.Capacity))
	}
	if !slices.Contains(backends, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend %q is not one of %s", c.Cache.Backend, strings.Join(backends, ", ")))
	}
	switch c.Cache.Backend {
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("cache.backend redis requires cache.redis_url or REDIS_URL"))
		}
	case BackendMongo:
		if c.Cache.MongoURI == "" {
			errs = append(errs, errors.New("cache.backend mongo requires cache.mongo_uri or MONGO_URI"))
		}
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	return errors.Join(errs...)
}

// ResolveBackend returns the concrete backend kind. "auto" picks Redis when
// a Redis URL is configured, then MongoDB, then fallback.
func (c CacheConfig) ResolveBackend(fallback string) string {
	if c.Backend != BackendAuto && c.Backend != "" {
		return c.Backend
	}
	switch {
	case c.RedisURL != "":
		return BackendRedis
	case c.MongoURI != "":
		return BackendMongo
	}
	return fallback
}

// Bounds returns the repository and commit pagination bounds.
func (g GitHubConfig) Bounds() (repos, commits github.Bounds) {
	return github.Bounds{PerPage: g.PerPage, MaxPages: g.RepoPages},
		github.Bounds{PerPage: g.PerPage, MaxPages: g.CommitPages}
}

// DefaultPath is the user config file (~/.config/showcase/config.toml).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// CacheDir returns the file cache directory: the configured one, or
// $XDG_CACHE_HOME/showcase, or ~/.cache/showcase.
func (c CacheConfig) CacheDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// DatabasePath returns the SQLite file path, defaulting into CacheDir.
func (c CacheConfig) DatabasePath() (string, error) {
	if c.SQLitePath != "" {
		return c.SQLitePath, nil
	}
	dir, err := c.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}
