package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/internal/server"
	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/cache/sqlite"
)

// sweepInterval is how often the SQLite backend drops long-stale rows.
const sweepInterval = time.Hour

type serveOpts struct {
	addr       string
	corsOrigin string
}

func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy",
		Long: `Run the HTTP proxy until interrupted.

The cache backend is chosen by configuration: Redis when REDIS_URL is set,
then MongoDB when MONGO_URI is set, otherwise an in-process memory cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config, :8000)")
	cmd.Flags().StringVar(&opts.corsOrigin, "cors-origin", "", "allowed CORS origin(s), comma-separated")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.corsOrigin != "" {
		cfg.Server.CORSOrigin = opts.corsOrigin
	}

	agg, store, err := c.newAggregator(ctx, config.BackendMemory)
	if err != nil {
		return err
	}
	defer store.Close()

	if b, ok := store.Backend().(*sqlite.Backend); ok {
		go c.sweepStale(ctx, b, cfg.Cache.StaleRetention)
	}

	srv := server.New(agg,
		server.WithLogger(c.Logger),
		server.WithCORSOrigin(cfg.Server.CORSOrigin),
		server.WithHealthCheck(backendHealth(store)),
	)
	c.Logger.Info("starting proxy", "backend", cfg.Cache.ResolveBackend(config.BackendMemory), "ttl", cfg.Cache.TTL)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// healthKey is never written; looking it up exercises one backend round trip.
const healthKey = "healthz:ping"

// backendHealth checks that the cache backend answers a point lookup.
func backendHealth(store *cache.Store) server.HealthCheck {
	return func(ctx context.Context) error {
		_, err := store.Backend().Load(ctx, healthKey)
		return err
	}
}

func (c *CLI) sweepStale(ctx context.Context, b *sqlite.Backend, retention time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := b.CleanStale(ctx, retention)
			if err != nil {
				c.Logger.Warn("stale sweep failed", "err", err)
				continue
			}
			c.Logger.Debug("stale sweep", "deleted", n)
		}
	}
}
