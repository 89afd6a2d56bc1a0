// Package redis provides a cache.Backend on Redis using go-redis.
//
// Each entry is a Redis hash with the fields value, token, path, stored_at
// (Unix nanoseconds) and ttl (nanoseconds), so Touch can refresh freshness
// without rewriting the payload. The key itself expires TTL plus a stale
// retention window after it was stored; until then a stale entry remains
// available for revalidation.
package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gundaminthecode/showcase/pkg/cache"
	"github.com/gundaminthecode/showcase/pkg/httputil"
)

// Defaults for [New].
const (
	DefaultStaleRetention = 24 * time.Hour
	DefaultQueryTimeout   = 5 * time.Second
)

const (
	fieldValue    = "value"
	fieldToken    = "token"
	fieldPath     = "path"
	fieldStoredAt = "stored_at"
	fieldTTL      = "ttl"
)

// touchScript updates freshness only when the hash exists.
var touchScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "stored_at", ARGV[1], "ttl", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// Backend stores entries in Redis.
type Backend struct {
	client         goredis.UniversalClient
	prefix         string
	staleRetention time.Duration
	queryTimeout   time.Duration
	ownsClient     bool
}

// Option configures a [Backend].
type Option func(*Backend)

// WithPrefix namespaces every key, e.g. "showcase:".
func WithPrefix(p string) Option {
	return func(b *Backend) { b.prefix = p }
}

// WithStaleRetention sets how long a stale entry outlives its TTL.
func WithStaleRetention(d time.Duration) Option {
	return func(b *Backend) {
		if d >= 0 {
			b.staleRetention = d
		}
	}
}

// WithQueryTimeout bounds each Redis round trip.
func WithQueryTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.queryTimeout = d
		}
	}
}

// New wraps an existing client. The caller owns the client's lifecycle and
// Close leaves it open.
func New(client goredis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{
		client:         client,
		staleRetention: DefaultStaleRetention,
		queryTimeout:   DefaultQueryTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open parses a redis:// URL, connects and pings the server. Transient ping
// failures are retried with backoff. The returned backend owns its client.
func Open(ctx context.Context, url string, opts ...Option) (*Backend, error) {
	o, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(o)
	b := New(client, opts...)
	b.ownsClient = true

	err = httputil.RetryWithBackoff(ctx, func() error {
		pctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			return httputil.Retryable(err)
		}
		return nil
	})
	if err != nil {
		client.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) Load(ctx context.Context, key string) (*cache.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	fields, err := b.client.HGetAll(ctx, b.prefix+key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	storedAt, err := strconv.ParseInt(fields[fieldStoredAt], 10, 64)
	if err != nil {
		return nil, nil
	}
	ttl, err := strconv.ParseInt(fields[fieldTTL], 10, 64)
	if err != nil {
		return nil, nil
	}
	return &cache.Entry{
		Value:      []byte(fields[fieldValue]),
		StoredAt:   time.Unix(0, storedAt).UTC(),
		TTL:        time.Duration(ttl),
		Token:      fields[fieldToken],
		SourcePath: fields[fieldPath],
	}, nil
}

func (b *Backend) Save(ctx context.Context, key string, e *cache.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	k := b.prefix + key
	_, err := b.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k,
			fieldValue, string(e.Value),
			fieldToken, e.Token,
			fieldPath, e.SourcePath,
			fieldStoredAt, strconv.FormatInt(e.StoredAt.UnixNano(), 10),
			fieldTTL, strconv.FormatInt(int64(e.TTL), 10),
		)
		p.PExpire(ctx, k, b.expiry(e.StoredAt, e.TTL))
		return nil
	})
	return err
}

func (b *Backend) Touch(ctx context.Context, key string, storedAt time.Time, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()

	n, err := touchScript.Run(ctx, b.client, []string{b.prefix + key},
		strconv.FormatInt(storedAt.UnixNano(), 10),
		strconv.FormatInt(int64(ttl), 10),
		b.expiry(storedAt, ttl).Milliseconds(),
	).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return cache.ErrCacheMiss
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.queryTimeout)
	defer cancel()
	return b.client.Del(ctx, b.prefix+key).Err()
}

func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, escapeGlob(b.prefix+prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the client when the backend opened it.
func (b *Backend) Close() error {
	if !b.ownsClient {
		return nil
	}
	err := b.client.Close()
	if errors.Is(err, goredis.ErrClosed) {
		return nil
	}
	return err
}

// expiry is the key lifetime measured from now: the remaining freshness
// plus the stale retention window, never below one millisecond.
func (b *Backend) expiry(storedAt time.Time, ttl time.Duration) time.Duration {
	d := time.Until(storedAt.Add(ttl + b.staleRetention))
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

var _ cache.Backend = (*Backend)(nil)
