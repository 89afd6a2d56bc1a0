package cli

import (
	"context"
	"fmt"

	"github.com/gundaminthecode/showcase/internal/config"
	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/cache/mongo"
	"github.com/gundaminthecode/showcase/pkg/cache/redis"
	"github.com/gundaminthecode/showcase/pkg/cache/sqlite"
)

// redisNamespace separates showcase keys from anything else in the database.
const redisNamespace = appName + ":"

// openBackend opens the configured cache backend. --no-cache always wins.
func (c *CLI) openBackend(ctx context.Context, cfg *config.Config, fallback string) (cache.Backend, error) {
	kind := cfg.Cache.ResolveBackend(fallback)
	if c.noCache {
		kind = config.BackendNone
	}
	c.Logger.Debug("opening cache", "backend", kind)

	switch kind {
	case config.BackendNone:
		return cache.NewNullBackend(), nil

	case config.BackendMemory:
		return cache.NewMemoryBackend(cfg.Cache.Capacity), nil

	case config.BackendFile:
		dir, err := cfg.Cache.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("get cache dir: %w", err)
		}
		return cache.NewFileBackend(dir)

	case config.BackendSQLite:
		path, err := cfg.Cache.DatabasePath()
		if err != nil {
			return nil, fmt.Errorf("get cache database path: %w", err)
		}
		return sqlite.Open(path)

	case config.BackendRedis:
		b, err := redis.Open(ctx, cfg.Cache.RedisURL,
			redis.WithPrefix(redisNamespace),
			redis.WithStaleRetention(cfg.Cache.StaleRetention),
		)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return b, nil

	case config.BackendMongo:
		return mongo.Open(ctx, cfg.Cache.MongoURI,
			mongo.WithDatabase(cfg.Cache.MongoDB),
			mongo.WithStaleRetention(cfg.Cache.StaleRetention),
		)
	}
	return nil, fmt.Errorf("unknown cache backend %q", kind)
}
