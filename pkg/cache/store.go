package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/gundaminthecode/showcase/pkg/observability"
)

// DefaultComputeTimeout bounds a shared computation once it is detached
// from the caller that started it.
const DefaultComputeTimeout = time.Minute

// Store is the cache front end used by the aggregator. It is safe for
// concurrent use; construct one per process with [NewStore] and close it on
// shutdown.
type Store struct {
	backend        Backend
	group          singleflight.Group
	logger         *log.Logger
	now            func() time.Time
	computeTimeout time.Duration
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used for backend warnings.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithComputeTimeout bounds each detached computation.
func WithComputeTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.computeTimeout = d
		}
	}
}

// NewStore creates a Store over b. A nil backend disables caching.
func NewStore(b Backend, opts ...Option) *Store {
	if b == nil {
		b = NewNullBackend()
	}
	s := &Store{
		backend:        b,
		logger:         log.Default(),
		now:            time.Now,
		computeTimeout: DefaultComputeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying storage.
func (s *Store) Backend() Backend { return s.backend }

// Get returns the entry stored under key, fresh or stale, or nil when absent.
func (s *Store) Get(ctx context.Context, key string) (*Entry, error) {
	e, err := s.backend.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return e.Clone(), nil
}

// PutOption sets optional Entry fields on [Store.Put].
type PutOption func(*Entry)

// WithToken attaches a revalidation token (an upstream ETag).
func WithToken(token string) PutOption {
	return func(e *Entry) { e.Token = token }
}

// WithSourcePath records where upstream the value came from.
func WithSourcePath(path string) PutOption {
	return func(e *Entry) { e.SourcePath = path }
}

// Put marshals value to JSON and stores it under key.
func (s *Store) Put(ctx context.Context, key string, value any, ttl time.Duration, opts ...PutOption) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	e := &Entry{Value: data, StoredAt: s.now(), TTL: ttl}
	for _, opt := range opts {
		opt(e)
	}
	if err := s.backend.Save(ctx, key, e); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	return nil
}

// Delete removes key from the backend.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Keys lists stored keys beginning with prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.backend.Keys(ctx, prefix)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Stats summarizes the entries currently held by the backend.
type Stats struct {
	Entries int
	Fresh   int
	Stale   int
	Bytes   int
	Tokens  int
}

// Stats walks every key with prefix and classifies it as fresh or stale.
func (s *Store) Stats(ctx context.Context, prefix string) (Stats, error) {
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		return Stats{}, err
	}
	now := s.now()
	var st Stats
	for _, k := range keys {
		e, err := s.backend.Load(ctx, k)
		if err != nil {
			return Stats{}, err
		}
		if e == nil {
			continue
		}
		st.Entries++
		st.Bytes += len(e.Value)
		if e.Fresh(now) {
			st.Fresh++
		} else {
			st.Stale++
		}
		if e.Token != "" {
			st.Tokens++
		}
	}
	return st, nil
}

// outcome is the single result shared by every caller of one computation.
type outcome struct {
	entry  *Entry
	status Status
}

// GetOrCompute returns the fresh value under key or runs compute to produce it.
//
// At most one compute per key runs at a time within the process; callers
// arriving while it runs wait for its result. A failed compute is returned
// to every waiter and nothing is stored, so the next request retries.
func GetOrCompute[T any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, Status, error) {
	var zero T
	if v, ok := freshValue[T](ctx, s, key); ok {
		return v, StatusHit, nil
	}

	res, err := s.do(ctx, key, func(ctx context.Context) (*outcome, error) {
		if e := s.loadFresh(ctx, key); e != nil {
			return &outcome{entry: e, status: StatusHit}, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		e, err := s.save(ctx, key, v, ttl, "", "")
		if err != nil {
			return nil, err
		}
		return &outcome{entry: e, status: StatusMiss}, nil
	})
	if err != nil {
		return zero, "", err
	}
	return decode[T](res)
}

// Fetched is what a revalidating fetch reports back to [GetOrRevalidate].
type Fetched[T any] struct {
	// NotModified means upstream confirmed the prior entry is current.
	NotModified bool

	Value      T
	Token      string
	SourcePath string
}

// Revalidator fetches a value from upstream. prior is the stored entry (nil
// when absent); fetchers present prior.Token as a conditional request token.
type Revalidator[T any] func(ctx context.Context, prior *Entry) (Fetched[T], error)

// GetOrRevalidate behaves like [GetOrCompute] but lets a stale entry be
// confirmed by upstream instead of recomputed.
//
// When fetch reports NotModified, the stored entry's StoredAt is refreshed
// in place and the stored value is returned with [StatusRevalidated]. When
// fetch returns a new payload, it replaces the entry with its new token.
func GetOrRevalidate[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fetch Revalidator[T]) (T, Status, error) {
	var zero T
	if v, ok := freshValue[T](ctx, s, key); ok {
		return v, StatusHit, nil
	}

	res, err := s.do(ctx, key, func(ctx context.Context) (*outcome, error) {
		prior, err := s.backend.Load(ctx, key)
		if err != nil {
			s.logger.Warn("cache load failed", "key", key, "err", err)
			prior = nil
		}
		if prior != nil && prior.Fresh(s.now()) {
			return &outcome{entry: prior, status: StatusHit}, nil
		}

		f, err := fetch(ctx, prior.Clone())
		if err != nil {
			return nil, err
		}

		if f.NotModified {
			if prior == nil {
				return nil, errors.New("cache: upstream reported not modified for an absent entry")
			}
			now := s.now()
			if err := s.backend.Touch(ctx, key, now, ttl); err != nil {
				if errors.Is(err, ErrCacheMiss) {
					// evicted between Load and Touch; the prior value is still current
					if _, err := s.saveEntry(ctx, key, &Entry{Value: prior.Value, StoredAt: now, TTL: ttl, Token: prior.Token, SourcePath: prior.SourcePath}); err != nil {
						return nil, err
					}
				} else {
					s.logger.Warn("cache touch failed", "key", key, "err", err)
				}
			}
			refreshed := prior.Clone()
			refreshed.StoredAt = now
			refreshed.TTL = ttl
			return &outcome{entry: refreshed, status: StatusRevalidated}, nil
		}

		e, err := s.save(ctx, key, f.Value, ttl, f.Token, f.SourcePath)
		if err != nil {
			return nil, err
		}
		return &outcome{entry: e, status: StatusMiss}, nil
	})
	if err != nil {
		return zero, "", err
	}
	return decode[T](res)
}

// freshValue decodes a fresh entry into a new T. Backend failures and
// undecodable entries count as misses.
func freshValue[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var v T
	e := s.loadFresh(ctx, key)
	if e == nil {
		return v, false
	}
	if err := json.Unmarshal(e.Value, &v); err != nil {
		s.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
		var zero T
		return zero, false
	}
	observability.Cache().OnCacheHit(ctx, KeyType(key))
	return v, true
}

func (s *Store) loadFresh(ctx context.Context, key string) *Entry {
	e, err := s.backend.Load(ctx, key)
	if err != nil {
		s.logger.Warn("cache load failed", "key", key, "err", err)
		return nil
	}
	if e == nil || !e.Fresh(s.now()) {
		return nil
	}
	return e
}

func (s *Store) save(ctx context.Context, key string, v any, ttl time.Duration, token, path string) (*Entry, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.saveEntry(ctx, key, &Entry{
		Value:      data,
		StoredAt:   s.now(),
		TTL:        ttl,
		Token:      token,
		SourcePath: path,
	})
}

// saveEntry writes e. A backend write failure is logged, not returned: the
// computed value is still valid for this request.
func (s *Store) saveEntry(ctx context.Context, key string, e *Entry) (*Entry, error) {
	if err := s.backend.Save(ctx, key, e); err != nil {
		s.logger.Warn("cache save failed", "key", key, "err", err)
		return e, nil
	}
	observability.Cache().OnCacheSet(ctx, KeyType(key), len(e.Value))
	return e, nil
}

// do runs fn once per key across concurrent callers. The computation runs on
// a context detached from the first caller and bounded by computeTimeout, so
// a caller giving up only stops its own wait.
//
// The caller whose fn ran reports the outcome's status; every other caller
// reports that it shared the result.
func (s *Store) do(ctx context.Context, key string, fn func(context.Context) (*outcome, error)) (*outcome, error) {
	kt := KeyType(key)
	ran := false
	ch := s.group.DoChan(key, func() (any, error) {
		ran = true
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.computeTimeout)
		defer cancel()
		res, err := fn(cctx)
		if err == nil {
			switch res.status {
			case StatusMiss:
				observability.Cache().OnCacheMiss(ctx, kt)
			case StatusRevalidated:
				observability.Cache().OnCacheRevalidated(ctx, kt)
			case StatusHit:
				observability.Cache().OnCacheHit(ctx, kt)
			}
		}
		return res, err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		// ran is only written by fn, which finished before ch was sent
		if !ran {
			observability.Cache().OnCacheShared(ctx, kt)
		}
		return r.Val.(*outcome), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// decode gives each caller its own copy of the shared result.
func decode[T any](res *outcome) (T, Status, error) {
	var v T
	if err := json.Unmarshal(res.entry.Value, &v); err != nil {
		return v, "", fmt.Errorf("decode cached value: %w", err)
	}
	return v, res.status, nil
}
