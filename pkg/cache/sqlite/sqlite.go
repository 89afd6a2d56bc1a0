// Package sqlite provides a cache.Backend on a single SQLite database file
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gundaminthecode/showcase/pkg/cache"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	key         TEXT PRIMARY KEY,
	value       BLOB NOT NULL,
	stored_at   INTEGER NOT NULL,
	ttl         INTEGER NOT NULL,
	token       TEXT NOT NULL DEFAULT '',
	source_path TEXT NOT NULL DEFAULT '',
	expires_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries(expires_at);
`

// Backend stores entries in SQLite. Times are stored as Unix nanoseconds.
type Backend struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. Use ":memory:" for a
// throwaway database.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Load(ctx context.Context, key string) (*cache.Entry, error) {
	row := b.db.QueryRowContext(ctx,
		`SELECT value, stored_at, ttl, token, source_path FROM cache_entries WHERE key = ?`, key)

	var (
		e        cache.Entry
		value    []byte
		storedAt int64
		ttl      int64
	)
	err := row.Scan(&value, &storedAt, &ttl, &e.Token, &e.SourcePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}
	e.Value = value
	e.StoredAt = time.Unix(0, storedAt).UTC()
	e.TTL = time.Duration(ttl)
	return &e, nil
}

func (b *Backend) Save(ctx context.Context, key string, e *cache.Entry) error {
	_, err := b.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO cache_entries (key, value, stored_at, ttl, token, source_path, expires_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key, []byte(e.Value), e.StoredAt.UnixNano(), int64(e.TTL), e.Token, e.SourcePath,
		e.ExpiresAt().UnixNano())
	if err != nil {
		return fmt.Errorf("save cache entry: %w", err)
	}
	return nil
}

func (b *Backend) Touch(ctx context.Context, key string, storedAt time.Time, ttl time.Duration) error {
	res, err := b.db.ExecContext(ctx,
		`UPDATE cache_entries SET stored_at = ?, ttl = ?, expires_at = ? WHERE key = ?`,
		storedAt.UnixNano(), int64(ttl), storedAt.Add(ttl).UnixNano(), key)
	if err != nil {
		return fmt.Errorf("touch cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return cache.ErrCacheMiss
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (b *Backend) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT key FROM cache_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escapeLike(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CleanStale removes entries that have been stale for longer than retention
// and reports how many were deleted.
func (b *Backend) CleanStale(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixNano()
	res, err := b.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("clean stale cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ cache.Backend = (*Backend)(nil)
