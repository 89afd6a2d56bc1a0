package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/cache"
)

// cacheCommand creates the cache management command. Subcommands operate on
// the backend the CLI commands use (file by default).
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the response cache",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheStatsCommand())
	cmd.AddCommand(c.cacheInspectCommand())

	return cmd
}

// openStore opens the CLI's cache backend as a store.
func (c *CLI) openStore(ctx context.Context) (*cache.Store, string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, "", err
	}
	b, err := c.openBackend(ctx, cfg, config.BackendFile)
	if err != nil {
		return nil, "", err
	}
	return cache.NewStore(b, cache.WithLogger(c.Logger)), cfg.Cache.ResolveBackend(config.BackendFile), nil
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			switch kind := cfg.Cache.ResolveBackend(config.BackendFile); kind {
			case config.BackendFile:
				dir, err := cfg.Cache.CacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				fmt.Fprintln(c.Out, dir)
			case config.BackendSQLite:
				path, err := cfg.Cache.DatabasePath()
				if err != nil {
					return fmt.Errorf("get cache database path: %w", err)
				}
				fmt.Fprintln(c.Out, path)
			case config.BackendRedis:
				fmt.Fprintln(c.Out, cfg.Cache.RedisURL)
			case config.BackendMongo:
				fmt.Fprintln(c.Out, cfg.Cache.MongoURI)
			default:
				fmt.Fprintf(c.Out, "(%s backend has no location)\n", kind)
			}
			return nil
		},
	}
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	var staleOnly bool

	cmd := &cobra.Command{
		Use:   "clear [prefix]",
		Short: "Delete cached entries",
		Long: `Delete cached entries, optionally only those whose key starts with prefix
(e.g. "repos:", "commits:", "doc:"). With --stale, fresh entries are kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			return c.runCacheClear(cmd.Context(), prefix, staleOnly)
		},
	}

	cmd.Flags().BoolVar(&staleOnly, "stale", false, "only delete stale entries")
	return cmd
}

func (c *CLI) runCacheClear(ctx context.Context, prefix string, staleOnly bool) error {
	store, kind, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if fb, ok := store.Backend().(*cache.FileBackend); ok && prefix == "" && !staleOnly {
		keys, err := store.Keys(ctx, "")
		if err != nil {
			return err
		}
		if err := fb.Clear(); err != nil {
			return err
		}
		printSuccess(c.Out, "Cleared %d cached entries", len(keys))
		printDetail(c.Out, "Directory: %s", fb.Dir())
		return nil
	}

	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	now := time.Now()
	count := 0
	for _, k := range keys {
		if staleOnly {
			e, err := store.Get(ctx, k)
			if err != nil {
				return err
			}
			if e == nil || e.Fresh(now) {
				continue
			}
		}
		if err := store.Delete(ctx, k); err != nil {
			return err
		}
		count++
	}
	printSuccess(c.Out, "Cleared %d cached entries", count)
	printDetail(c.Out, "Backend: %s", kind)
	return nil
}

func (c *CLI) cacheStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [prefix]",
		Short: "Summarize cached entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			store, kind, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Stats(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			printKeyValue(c.Out, "Backend", kind)
			printKeyValue(c.Out, "Entries", humanize.Comma(int64(st.Entries)))
			printKeyValue(c.Out, "Fresh", humanize.Comma(int64(st.Fresh)))
			printKeyValue(c.Out, "Stale", humanize.Comma(int64(st.Stale)))
			printKeyValue(c.Out, "With ETag", humanize.Comma(int64(st.Tokens)))
			printKeyValue(c.Out, "Size", humanize.Bytes(uint64(st.Bytes)))
			return nil
		},
	}
}

func (c *CLI) cacheInspectCommand() *cobra.Command {
	var showValue bool

	cmd := &cobra.Command{
		Use:   "inspect [key]",
		Short: "List cached keys, or show one entry's metadata",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, _, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 0 {
				keys, err := store.Keys(ctx, "")
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(c.Out, k)
				}
				return nil
			}

			e, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("no cache entry for %q", args[0])
			}
			printEntry(c, args[0], e, time.Now())
			if showValue {
				fmt.Fprintln(c.Out, string(e.Value))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showValue, "value", false, "also print the stored JSON")
	return cmd
}

func printEntry(c *CLI, key string, e *cache.Entry, now time.Time) {
	state := StyleSuccess.Render("fresh")
	if !e.Fresh(now) {
		state = StyleWarning.Render("stale")
	}
	printKeyValue(c.Out, "Key", key)
	printKeyValue(c.Out, "Kind", cache.KeyType(key))
	printKeyValue(c.Out, "State", state)
	printKeyValue(c.Out, "Stored", humanize.RelTime(e.StoredAt, now, "ago", "from now"))
	printKeyValue(c.Out, "Expires", humanize.RelTime(e.ExpiresAt(), now, "ago", "from now"))
	printKeyValue(c.Out, "TTL", e.TTL.String())
	printKeyValue(c.Out, "Size", humanize.Bytes(uint64(len(e.Value))))
	if e.Token != "" {
		printKeyValue(c.Out, "ETag", e.Token)
	}
	if e.SourcePath != "" {
		printKeyValue(c.Out, "Path", e.SourcePath)
	}
}
