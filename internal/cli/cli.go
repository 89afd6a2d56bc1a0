package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/aggregator"
	"github.com/gundaminthecode/showcase/pkg/buildinfo"
	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/integrations/github"
	"github.com/gundaminthecode/showcase/pkg/observability"
	"github.com/gundaminthecode/showcase/pkg/probe"
)

const appName = "showcase"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Out receives command output and Err progress indicators; logs go to
	// the logger's writer.
	Out io.Writer
	Err io.Writer

	configPath string
	noCache    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		Err:    os.Stderr,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Showcase aggregates GitHub portfolio data behind a cache",
		Long: `Showcase is a caching proxy in front of the GitHub REST API. It lists a
user's repositories with their live sites, a repository's recent commits, and
its progress notes and case study, serving repeated requests from a cache.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			registerLogHooks(c.Logger)
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(c.Out)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $SHOWCASE_CONFIG or ~/.config/showcase/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "bypass the cache for this invocation")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.reposCommand())
	root.AddCommand(c.commitsCommand())
	root.AddCommand(c.docCommand())
	root.AddCommand(c.activityCommand())
	root.AddCommand(c.probeCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig loads the configuration once per process.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Aggregator Factory
// =============================================================================

// newAggregator wires the upstream client, prober and cache store. fallback
// is the backend used when the configuration says "auto" and names no
// shared store. The returned store must be closed by the caller.
func (c *CLI) newAggregator(ctx context.Context, fallback string) (*aggregator.Aggregator, *cache.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	backend, err := c.openBackend(ctx, cfg, fallback)
	if err != nil {
		return nil, nil, err
	}
	store := cache.NewStore(backend,
		cache.WithLogger(c.Logger),
		cache.WithComputeTimeout(cfg.Cache.ComputeTimeout),
	)

	client := github.NewClient(cfg.GitHub.Token,
		github.WithBaseURL(cfg.GitHub.BaseURL),
		github.WithTimeout(cfg.GitHub.Timeout),
	)
	prober := probe.New(
		probe.WithTimeout(cfg.Probe.Timeout),
		probe.WithConcurrency(cfg.Probe.Concurrency),
	)

	repoBounds, commitBounds := cfg.GitHub.Bounds()
	opts := []aggregator.Option{
		aggregator.WithLogger(c.Logger),
		aggregator.WithTTL(cfg.Cache.TTL),
		aggregator.WithRepoBounds(repoBounds),
		aggregator.WithCommitBounds(commitBounds),
	}
	if cfg.Cache.Prefix != "" {
		opts = append(opts, aggregator.WithKeyer(cache.NewScopedKeyer(nil, cfg.Cache.Prefix)))
	}
	if cfg.GitHub.Token == "" {
		c.Logger.Debug("no GITHUB_TOKEN set; upstream requests are unauthenticated")
	}
	return aggregator.New(client, store, prober, opts...), store, nil
}

// =============================================================================
// Observability Bridge
// =============================================================================

// logHooks forwards observability events to debug-level log lines.
type logHooks struct {
	logger *log.Logger
}

func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	observability.SetProbeHooks(h)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "kind", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "kind", keyType)
}

func (h logHooks) OnCacheRevalidated(_ context.Context, keyType string) {
	h.logger.Debug("cache revalidated", "kind", keyType)
}

func (h logHooks) OnCacheShared(_ context.Context, keyType string) {
	h.logger.Debug("joined in-flight computation", "kind", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache write", "kind", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("upstream request", "method", method, "url", host+path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("upstream response", "method", method, "url", host+path, "status", status, "took", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("upstream error", "method", method, "url", host+path, "err", err)
}

func (h logHooks) OnProbe(_ context.Context, url, method string, status int, live bool, d time.Duration) {
	h.logger.Debug("probe", "url", url, "method", method, "status", status, "live", live, "took", d.Round(time.Millisecond))
}

// requireArgs is cobra.ExactArgs with a usage hint naming the arguments.
func requireArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("expected %s, got %d argument(s)", names, len(args))
		}
		return nil
	}
}
